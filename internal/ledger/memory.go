package ledger

import (
	"context"
	"sync"

	"AttendanceBot/internal/model"
)

// MemoryStore 进程内台账，重启即丢失
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.LeaveRecord
	byKey   map[string]int
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]int)}
}

func (s *MemoryStore) Append(ctx context.Context, rec *model.LeaveRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := requestKey(rec)
	if i, ok := s.byKey[key]; ok && key != "" {
		*rec = s.records[i]
		return nil
	}

	s.nextID++
	rec.ID = s.nextID
	s.records = append(s.records, *rec)
	if key != "" {
		s.byKey[key] = len(s.records) - 1
	}
	return nil
}

func (s *MemoryStore) QueryActiveAsOf(ctx context.Context, date string) ([]model.LeaveRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]model.LeaveRecord, 0, len(s.records))
	for _, rec := range s.records {
		if rec.EndDate >= date {
			active = append(active, rec)
		}
	}
	return active, nil
}

func requestKey(rec *model.LeaveRecord) string {
	if rec.RequestKey == nil {
		return ""
	}
	return *rec.RequestKey
}
