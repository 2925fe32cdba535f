package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"AttendanceBot/internal/model"
)

// 与 AutoMigrate 生成的表结构一致，只是去掉了 sqlite 不支持的 now() 默认值
var leaveRecordsDDL = []string{`CREATE TABLE leave_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	deleted_at DATETIME,
	public_id INTEGER NOT NULL,
	member_id TEXT NOT NULL DEFAULT '',
	member_name TEXT NOT NULL,
	leave_type TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'approved',
	filed_by TEXT NOT NULL,
	filed_at DATETIME NOT NULL,
	request_key TEXT
)`,
	`CREATE UNIQUE INDEX idx_leave_records_public_id ON leave_records(public_id)`,
	`CREATE UNIQUE INDEX idx_leave_records_request_key ON leave_records(request_key)`,
	`CREATE INDEX idx_leave_records_end_date ON leave_records(end_date)`,
}

func newSQLStore(t *testing.T) *PostgresStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	for _, stmt := range leaveRecordsDDL {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewPostgresStore(db)
}

func leave(publicID int64, name, start, end string) *model.LeaveRecord {
	return &model.LeaveRecord{
		PublicID:   publicID,
		MemberName: name,
		LeaveType:  "sick",
		StartDate:  start,
		EndDate:    end,
		Status:     model.LeaveStatusApproved,
		FiledBy:    "U9",
	}
}

func keyed(rec *model.LeaveRecord, key string) *model.LeaveRecord {
	rec.RequestKey = &key
	return rec
}

func TestSQLStoreActiveAsOf(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)

	bob := leave(1, "Bob", "2024-02-01", "2024-02-02")
	bob.Reason = "flu"
	require.NoError(t, s.Append(ctx, bob))
	assert.NotZero(t, bob.ID)

	got, err := s.QueryActiveAsOf(ctx, "2024-02-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].MemberName)
	assert.Equal(t, "flu", got[0].Reason)
	assert.Equal(t, bob.ID, got[0].ID)

	got, err = s.QueryActiveAsOf(ctx, "2024-02-02")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.QueryActiveAsOf(ctx, "2024-02-03")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)

	require.NoError(t, s.Append(ctx, leave(30, "Carol", "2024-03-01", "2024-03-05")))
	require.NoError(t, s.Append(ctx, leave(10, "Alice", "2024-01-01", "2024-01-02")))
	require.NoError(t, s.Append(ctx, leave(20, "Bob", "2024-02-01", "2024-02-10")))

	got, err := s.QueryActiveAsOf(ctx, "2024-02-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Carol", got[0].MemberName)
	assert.Equal(t, "Bob", got[1].MemberName)
}

func TestSQLStoreRequestKeyAppendsOnce(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)

	first := keyed(leave(101, "Bob", "2024-02-01", "2024-02-02"), "cmd_42")
	require.NoError(t, s.Append(ctx, first))

	replay := keyed(leave(102, "Bob", "2024-02-01", "2024-02-02"), "cmd_42")
	require.NoError(t, s.Append(ctx, replay))
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, int64(101), replay.PublicID)

	require.NoError(t, s.Append(ctx, leave(103, "Bob", "2024-02-01", "2024-02-02")))
	require.NoError(t, s.Append(ctx, leave(104, "Bob", "2024-02-01", "2024-02-02")))

	got, err := s.QueryActiveAsOf(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
