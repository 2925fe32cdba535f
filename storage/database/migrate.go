package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/logger"
)

// Migrate 创建请假台账表
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	if err := db.AutoMigrate(&model.LeaveRecord{}); err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
