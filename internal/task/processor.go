package task

import (
	"context"
	"log/slog"
	"sync"

	xerrors "taskpager/internal/errors"
	"taskpager/pkg/logger"
)

// EventHandler 处理一条任务事件。
type EventHandler func(ctx context.Context, event Event) error

// Processor 从事件通道消费任务事件并交给 EventHandler。
// 进程内使用 MemoryPublisher 时由它负责排空通道。
type Processor struct {
	events      <-chan Event
	handler     EventHandler
	workerCount int
	logger      *slog.Logger
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(events <-chan Event, handler EventHandler, opts ...ProcessorOption) *Processor {
	p := &Processor{
		events:      events,
		handler:     handler,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.workerCount <= 0 {
		p.workerCount = 1
	}
	return p
}

// Start 启动消费协程，直到上下文取消或事件通道关闭。
// 通道关闭时返回 nil，上下文取消时返回 ctx.Err()。
func (p *Processor) Start(ctx context.Context) error {
	if p.events == nil || p.handler == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "事件处理器未初始化")
	}

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Processor) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.events:
			if !ok {
				return
			}
			p.handle(ctx, event)
		}
	}
}

func (p *Processor) handle(ctx context.Context, event Event) {
	if err := p.handler(ctx, event); err != nil {
		logger.L().Error("处理任务事件失败",
			slog.Any("error", err),
			slog.String("error_code", string(xerrors.CodeOf(err))),
			slog.String("severity", string(xerrors.SeverityOf(err))),
			slog.Bool("retryable", xerrors.RetryableError(err)),
			slog.String("event", event.Type),
			slog.String("task_id", event.TaskID),
		)
		return
	}
	p.logDebug("任务事件已处理", slog.String("event", event.Type), slog.String("task_id", event.TaskID))
}

func (p *Processor) logDebug(msg string, attrs ...slog.Attr) {
	if p.logger != nil {
		p.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}

// AuditEventHandler 将事件写入审计日志。
func AuditEventHandler() EventHandler {
	return func(_ context.Context, event Event) error {
		logger.Audit().Info("任务事件",
			slog.String("event", event.Type),
			slog.String("task_id", event.TaskID),
			slog.String("status", string(event.Status)),
			slog.Int("priority", event.Priority),
			slog.Time("created_at", event.CreatedAt),
		)
		return nil
	}
}
