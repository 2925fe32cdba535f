package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"AttendanceBot/internal/model"
)

// PostgresStore 基于 gorm 的持久化台账。配置了只读副本时查询走副本（dbresolver）。
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec *model.LeaveRecord) error {
	db := s.db.WithContext(ctx)
	if requestKey(rec) == "" {
		if err := db.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to append leave record: %w", err)
		}
		return nil
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_key"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return fmt.Errorf("failed to append leave record: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// 同一条命令消息已经登记过，从主库读回原记录
	var existing model.LeaveRecord
	err := db.Clauses(dbresolver.Write).
		Where("request_key = ?", *rec.RequestKey).
		First(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to load leave record for %s: %w", *rec.RequestKey, err)
	}
	*rec = existing
	return nil
}

func (s *PostgresStore) QueryActiveAsOf(ctx context.Context, date string) ([]model.LeaveRecord, error) {
	var records []model.LeaveRecord
	err := s.db.WithContext(ctx).
		Where("end_date >= ?", date).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}
	return records, nil
}
