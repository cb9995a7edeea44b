package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultSystemLogCapacity = 1000
	defaultLogPageSize       = 20
	maxLogPageSize           = 200
)

// SystemLogEntry is one captured log record, shaped for the console's
// log viewer.
type SystemLogEntry struct {
	ID        int64                  `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Stack     string                 `json:"stack,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (e SystemLogEntry) matches(level string, from, to time.Time, keyword string) bool {
	if level != "" && !strings.EqualFold(e.Level, level) {
		return false
	}
	if !from.IsZero() && e.Timestamp.Before(from.UTC()) {
		return false
	}
	if !to.IsZero() && e.Timestamp.After(to.UTC()) {
		return false
	}
	if keyword == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Message), keyword) ||
		strings.Contains(strings.ToLower(e.Caller), keyword) {
		return true
	}
	return len(e.Fields) > 0 && strings.Contains(strings.ToLower(fmt.Sprintf("%v", e.Fields)), keyword)
}

func (e SystemLogEntry) clone() SystemLogEntry {
	cloned := e
	if len(e.Fields) == 0 {
		return cloned
	}
	fields := make(map[string]interface{}, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	cloned.Fields = fields
	return cloned
}

// SystemLogStore is a fixed-capacity ring of recent log records. The
// wrapped zap core feeds it; the console reads it through QueryLogs.
type SystemLogStore struct {
	mu       sync.RWMutex
	entries  []SystemLogEntry
	capacity int
	next     int
	count    int
	seq      int64
}

func NewSystemLogStore(capacity int) *SystemLogStore {
	if capacity <= 0 {
		capacity = defaultSystemLogCapacity
	}
	return &SystemLogStore{
		entries:  make([]SystemLogEntry, capacity),
		capacity: capacity,
	}
}

// WrapZapLogger tees every record the base logger emits into the store.
func WrapZapLogger(base *zap.Logger, store *SystemLogStore) *zap.Logger {
	if base == nil || store == nil {
		return base
	}

	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &systemLogCore{
			Core:  core,
			store: store,
		}
	}))
}

// QueryLogs returns one page of matching records, newest first, and the
// total match count.
func (s *SystemLogStore) QueryLogs(
	level string,
	from, to time.Time,
	keyword string,
	page, pageSize int,
) ([]SystemLogEntry, int64) {
	if s == nil {
		return nil, 0
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultLogPageSize
	}
	if pageSize > maxLogPageSize {
		pageSize = maxLogPageSize
	}

	level = strings.ToLower(strings.TrimSpace(level))
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	var filtered []SystemLogEntry
	for _, entry := range s.snapshotNewestFirst() {
		if entry.matches(level, from, to, keyword) {
			filtered = append(filtered, entry)
		}
	}

	total := int64(len(filtered))
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return []SystemLogEntry{}, total
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total
}

func (s *SystemLogStore) add(entry zapcore.Entry, fields []zapcore.Field) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.entries[s.next] = SystemLogEntry{
		ID:        s.seq,
		Timestamp: entry.Time.UTC(),
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    entry.Caller.TrimmedPath(),
		Stack:     entry.Stack,
		Fields:    fieldsToMap(fields),
	}
	s.next = (s.next + 1) % s.capacity
	if s.count < s.capacity {
		s.count++
	}
}

func fieldsToMap(fields []zapcore.Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}
	if len(enc.Fields) == 0 {
		return nil
	}

	result := make(map[string]interface{}, len(enc.Fields))
	for k, v := range enc.Fields {
		result[k] = v
	}
	return result
}

func (s *SystemLogStore) snapshotNewestFirst() []SystemLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return nil
	}

	result := make([]SystemLogEntry, 0, s.count)
	for i := 0; i < s.count; i++ {
		idx := s.next - 1 - i
		if idx < 0 {
			idx += s.capacity
		}
		result = append(result, s.entries[idx].clone())
	}
	return result
}

type systemLogCore struct {
	zapcore.Core
	store *SystemLogStore
}

func (c *systemLogCore) With(fields []zapcore.Field) zapcore.Core {
	return &systemLogCore{
		Core:  c.Core.With(fields),
		store: c.store,
	}
}

func (c *systemLogCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Core.Check(entry, nil) == nil {
		return checked
	}
	return checked.AddCore(entry, c)
}

func (c *systemLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.store != nil {
		c.store.add(entry, fields)
	}
	return c.Core.Write(entry, fields)
}
