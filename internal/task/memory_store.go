package task

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	xerrors "taskpager/internal/errors"
)

// MemoryStore 以内存方式保存任务，主要用于测试和单机开发。
type MemoryStore struct {
	mu sync.RWMutex
	// tasks 始终按 (createdAt desc, id desc) 排列。
	tasks []*Task
	ids   map[string]struct{}
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, task *Task) error {
	if task == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "task 不能为空")
	}
	if strings.TrimSpace(task.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "任务 ID 不能为空")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[task.ID]; ok {
		return ErrTaskConflict
	}
	clone := cloneTask(task)
	clone.CreatedAt = normalizeCreatedAt(clone.CreatedAt)
	idx := sort.Search(len(m.tasks), func(i int) bool {
		return precedes(clone, m.tasks[i])
	})
	m.tasks = slices.Insert(m.tasks, idx, clone)
	m.ids[clone.ID] = struct{}{}
	return nil
}

// Scan 实现 Store 接口。
func (m *MemoryStore) Scan(_ context.Context, opts ScanOptions) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if opts.After != nil {
		after := *opts.After
		start = sort.Search(len(m.tasks), func(i int) bool {
			return after.follows(m.tasks[i])
		})
	}

	capacity := opts.Limit
	if capacity <= 0 || capacity > len(m.tasks)-start {
		capacity = len(m.tasks) - start
	}
	results := make([]*Task, 0, capacity)
	for _, task := range m.tasks[start:] {
		if opts.Status != "" && task.Status != opts.Status {
			continue
		}
		results = append(results, cloneTask(task))
		if opts.Limit > 0 && len(results) == opts.Limit {
			break
		}
	}
	return results, nil
}

// count 返回当前保存的任务数量。
func (m *MemoryStore) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

// ensure interface compliance at compile time
var _ Store = (*MemoryStore)(nil)
