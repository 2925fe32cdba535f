package snowflake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	mu   sync.RWMutex

	errInvalidMachineID     = errors.New("invalid snowflake machine id")
	errInvalidDataCenter    = errors.New("invalid snowflake datacenter id")
	errGeneratorUninitiated = errors.New("snowflake generator is not initialized")
)

// Init 设置当前进程的节点。server、worker、scheduler 需要配置不同的 machine id，
// 否则同一毫秒内登记的请假可能拿到相同的编号。
func Init(machineID, dataCenterID int64) error {
	if machineID < 0 || machineID > 31 {
		return errInvalidMachineID
	}
	if dataCenterID < 0 || dataCenterID > 31 {
		return errInvalidDataCenter
	}

	n, err := snowflake.NewNode(dataCenterID<<5 | machineID)
	if err != nil {
		return err
	}

	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextID 请假记录的公开编号
func NextID() (int64, error) {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		return 0, errGeneratorUninitiated
	}
	return n.Generate().Int64(), nil
}

// CommandID 队列消息 ID，形如 cmd_<id>
func CommandID() (string, error) {
	id, err := NextID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cmd_%d", id), nil
}
