package storage

import (
	"strings"

	"AttendanceBot/config"
	"AttendanceBot/storage/database"
	"AttendanceBot/storage/mq"
	"AttendanceBot/storage/redis"
)

// Init 按配置初始化存储层，未启用的部分跳过
func Init() error {
	if strings.EqualFold(config.Cfg.LedgerBackend, "postgres") {
		if err := database.Init(); err != nil {
			return err
		}
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
