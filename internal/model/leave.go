package model

import "time"

// LeaveStatus 请假状态枚举
type LeaveStatus string

const (
	LeaveStatusApproved LeaveStatus = "approved" // 目前提交即批准
	LeaveStatusPending  LeaveStatus = "pending"
)

// LeaveRecord 请假台账记录，只追加不修改
type LeaveRecord struct {
	BaseModel
	PublicID   int64       `gorm:"uniqueIndex;not null" json:"public_id"`
	MemberID   string      `gorm:"type:varchar(32);not null;default:''" json:"member_id"`
	MemberName string      `gorm:"type:varchar(128);not null" json:"member_name"`
	LeaveType  string      `gorm:"type:varchar(32);not null" json:"leave_type"`
	StartDate  string      `gorm:"type:char(10);not null" json:"start_date"`
	EndDate    string      `gorm:"type:char(10);not null;index:idx_leave_records_end_date" json:"end_date"`
	Reason     string      `gorm:"type:text;not null;default:''" json:"reason"`
	Status     LeaveStatus `gorm:"type:varchar(16);not null;default:'approved'" json:"status"`
	FiledBy    string      `gorm:"type:varchar(64);not null" json:"filed_by"`
	FiledAt    time.Time   `gorm:"type:timestamptz;not null" json:"filed_at"`
	// RequestKey 触发登记的命令消息 ID，重投时据此去重；进程内直接执行时为空
	RequestKey *string `gorm:"type:varchar(64);uniqueIndex" json:"request_key,omitempty"`
}

// TableName 指定表名
func (LeaveRecord) TableName() string {
	return "leave_records"
}

// CoversDate 日期是否落在 [StartDate, EndDate] 内
func (r LeaveRecord) CoversDate(date string) bool {
	return r.StartDate <= date && date <= r.EndDate
}
