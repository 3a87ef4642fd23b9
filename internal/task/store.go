package task

import (
	"context"
	stdErrors "errors"

	xerrors "taskpager/internal/errors"
)

// ScanOptions 描述一次有序范围扫描。
type ScanOptions struct {
	Status Status
	// After 非空时只返回严格排在该游标之后的任务。
	After *Cursor
	// Limit 小于等于 0 表示不限制条数。
	Limit int
}

// Store 抽象了按 (createdAt desc, id desc) 排序的任务集合。
type Store interface {
	Create(ctx context.Context, task *Task) error
	Scan(ctx context.Context, opts ScanOptions) ([]*Task, error)
	Close() error
}

// storageError 包装存储层错误。超过截止时间的操作归为 TIMEOUT，其余归为 STORAGE_FAILURE。
func storageError(err error, message string) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, message)
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}
