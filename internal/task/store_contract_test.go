package task

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var contractBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedID(n int) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
}

func newTask(n int, offset time.Duration, status Status) *Task {
	return &Task{
		Title:     fmt.Sprintf("task %d", n),
		Status:    status,
		Priority:  DefaultPriority,
		CreatedAt: contractBase.Add(offset),
		ID:        fixedID(n),
	}
}

func ids(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func equalIDs(got []*Task, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].ID != want[i] {
			return false
		}
	}
	return true
}

// testStoreContract 对任意 Store 实现验证排序、游标与过滤语义。
func testStoreContract(t *testing.T, open func(t *testing.T) Store) {
	seed := func(t *testing.T) Store {
		t.Helper()
		store := open(t)
		// 插入顺序故意打乱；task 2 与 task 3 的 createdAt 相同。
		for _, task := range []*Task{
			newTask(2, 2*time.Second, StatusDoing),
			newTask(4, 3*time.Second, StatusDone),
			newTask(1, 1*time.Second, StatusTodo),
			newTask(3, 2*time.Second, StatusTodo),
		} {
			if err := store.Create(context.Background(), task); err != nil {
				t.Fatalf("create %s: %v", task.ID, err)
			}
		}
		return store
	}
	ctx := context.Background()

	t.Run("orders by createdAt then id descending", func(t *testing.T) {
		store := seed(t)
		got, err := store.Scan(ctx, ScanOptions{})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equalIDs(got, fixedID(4), fixedID(3), fixedID(2), fixedID(1)) {
			t.Fatalf("unexpected order: %v", ids(got))
		}
		if !got[1].CreatedAt.Equal(contractBase.Add(2*time.Second)) || got[1].Title != "task 3" || got[1].Status != StatusTodo {
			t.Fatalf("fields not preserved: %+v", got[1])
		}
	})

	t.Run("limit bounds the result", func(t *testing.T) {
		store := seed(t)
		got, err := store.Scan(ctx, ScanOptions{Limit: 2})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equalIDs(got, fixedID(4), fixedID(3)) {
			t.Fatalf("unexpected page: %v", ids(got))
		}
	})

	t.Run("scan after cursor excludes the cursor record", func(t *testing.T) {
		store := seed(t)
		after := CursorOf(newTask(3, 2*time.Second, StatusTodo))
		got, err := store.Scan(ctx, ScanOptions{After: &after})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equalIDs(got, fixedID(2), fixedID(1)) {
			t.Fatalf("unexpected records after cursor: %v", ids(got))
		}
	})

	t.Run("cursor need not reference a stored record", func(t *testing.T) {
		store := seed(t)
		after := Cursor{CreatedAt: contractBase.Add(2 * time.Second), ID: fixedID(9)}
		got, err := store.Scan(ctx, ScanOptions{After: &after})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equalIDs(got, fixedID(3), fixedID(2), fixedID(1)) {
			t.Fatalf("unexpected records: %v", ids(got))
		}

		past := Cursor{CreatedAt: contractBase, ID: fixedID(0)}
		got, err = store.Scan(ctx, ScanOptions{After: &past})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty scan past the end, got %v", ids(got))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		store := seed(t)
		got, err := store.Scan(ctx, ScanOptions{Status: StatusTodo})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equalIDs(got, fixedID(3), fixedID(1)) {
			t.Fatalf("unexpected todo records: %v", ids(got))
		}

		after := CursorOf(got[0])
		got, err = store.Scan(ctx, ScanOptions{Status: StatusTodo, After: &after, Limit: 5})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !equalIDs(got, fixedID(1)) {
			t.Fatalf("unexpected todo records after cursor: %v", ids(got))
		}
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		store := seed(t)
		err := store.Create(ctx, newTask(1, time.Hour, StatusTodo))
		if !errors.Is(err, ErrTaskConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		got, err := store.Scan(ctx, ScanOptions{})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("conflicting create must not add a record: %v", ids(got))
		}
	})

	t.Run("createdAt truncated to microseconds", func(t *testing.T) {
		store := open(t)
		task := newTask(7, 1500*time.Nanosecond, StatusTodo)
		if err := store.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := store.Scan(ctx, ScanOptions{})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(got) != 1 || !got[0].CreatedAt.Equal(contractBase.Add(time.Microsecond)) {
			t.Fatalf("unexpected createdAt: %v", got)
		}
		if !task.CreatedAt.Equal(contractBase.Add(1500 * time.Nanosecond)) {
			t.Fatalf("create must not modify the caller's task: %v", task.CreatedAt)
		}
	})
}
