package ledger

import (
	"context"

	"AttendanceBot/internal/model"
)

// Store 请假台账，只追加不修改
type Store interface {
	// Append 追加一条记录，成功后 rec.ID 被填充。
	// rec.RequestKey 已登记过时不再追加，rec 被替换为已有记录。
	Append(ctx context.Context, rec *model.LeaveRecord) error
	// QueryActiveAsOf 返回 EndDate >= date 的记录，按登记顺序
	QueryActiveAsOf(ctx context.Context, date string) ([]model.LeaveRecord, error)
}
