package task

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "taskpager/internal/errors"
	"taskpager/pkg/logger"
)

// CreateRequest 是创建任务的输入。Status 为空时使用 todo，Priority 为空时使用 DefaultPriority。
type CreateRequest struct {
	Title    string `json:"title"`
	Status   Status `json:"status"`
	Priority *int   `json:"priority"`
}

// Service 负责任务的创建与分页查询。
type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
	newID     func() (string, error)
}

// ServiceOption 定制 Service。
type ServiceOption func(*Service)

// WithClock 替换创建时间的来源。
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator 替换任务 ID 的生成方式。
func WithIDGenerator(gen func() (string, error)) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService 构造任务服务。publisher 可以为 nil，此时不发布事件。
func NewService(store Store, publisher Publisher, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		newID:     newTaskID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func newTaskID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Create 校验输入并写入一条新任务。
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}
	status := req.Status
	if status == "" {
		status = StatusTodo
	} else if !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	priority := DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}

	id, err := s.newID()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUnknown, err, "生成任务 ID 失败")
	}
	task := &Task{
		Title:     req.Title,
		Status:    status,
		Priority:  priority,
		CreatedAt: normalizeCreatedAt(s.now()),
		ID:        id,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, asStorageError(err, "写入任务失败")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, newCreatedEvent(task)); err != nil {
			// 任务已经落库，事件丢失不影响请求结果。
			wrapped := xerrors.Wrap(CodeTaskPublish, err, "")
			logger.L().Warn("任务事件发布失败",
				slog.Any("error", wrapped),
				slog.Bool("retryable", xerrors.RetryableError(wrapped)),
				slog.String("task_id", task.ID),
			)
		}
	}
	logger.Audit().Info("任务创建成功",
		slog.String("task_id", task.ID),
		slog.String("status", string(task.Status)),
		slog.Int("priority", task.Priority),
	)
	return cloneTask(task), nil
}

// List 返回一页任务。实际向存储多取一条，用来判断是否存在下一页。
func (s *Service) List(ctx context.Context, opts ...ListOption) (Page, error) {
	options, err := buildListOptions(opts)
	if err != nil {
		return Page{}, err
	}
	if s.store == nil {
		return Page{}, xerrors.New(xerrors.CodeInitializationFailure, "任务存储未初始化")
	}

	fetched, err := s.store.Scan(ctx, ScanOptions{
		Status: options.Status,
		After:  options.After,
		Limit:  options.Limit + 1,
	})
	if err != nil {
		return Page{}, asStorageError(err, "查询任务列表失败")
	}
	return paginate(fetched, options.Limit), nil
}

// Close 释放存储与发布器。
func (s *Service) Close() error {
	var err error
	if s.store != nil {
		err = stdErrors.Join(err, s.store.Close())
	}
	if s.publisher != nil {
		err = stdErrors.Join(err, s.publisher.Close())
	}
	return err
}

func asStorageError(err error, message string) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return storageError(err, message)
}
