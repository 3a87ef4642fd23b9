package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	xerrors "taskpager/internal/errors"
	"taskpager/internal/observability/metrics"
	"taskpager/internal/task"
	"taskpager/pkg/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// ErrorResponse 是所有错误响应的统一格式。
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse 是健康检查的响应体。
type HealthResponse struct {
	Status string `json:"status"`
}

// Server 负责暴露任务的 REST 接口。
type Server struct {
	addr            string
	tasks           *task.Service
	metrics         *metrics.Collector
	shutdownTimeout time.Duration
	log             *slog.Logger
	engine          *gin.Engine
}

// Option 定制 Server。
type Option func(*Server)

// WithMetrics 使用外部传入的指标收集器。
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		if collector != nil {
			s.metrics = collector
		}
	}
}

// WithShutdownTimeout 设置优雅退出的最长等待时间。
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.shutdownTimeout = timeout
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, tasks *task.Service, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		tasks:           tasks,
		shutdownTimeout: defaultShutdownTimeout,
		log:             logger.Named("api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector("taskpager")
	}
	s.engine = s.routes()
	return s
}

// Handler 返回完整的 HTTP 处理器，便于测试或挂载到其他服务。
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		s.metrics.Middleware(),
		s.requestLogger(),
		gin.CustomRecoveryWithWriter(io.Discard, s.recoverPanic),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	})
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	tasks := engine.Group("/api/tasks")
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	return engine
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.engine),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("API 服务已启动", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("API 服务关闭超时", slog.Any("error", err))
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleListTasks(c *gin.Context) {
	if s.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
		return
	}

	// limit=（出现但为空）与缺省不同，按非法值处理。
	rawLimit, present := c.GetQuery("limit")
	if present && rawLimit == "" {
		s.writeError(c, task.ErrInvalidLimit)
		return
	}
	opts, err := task.ParseListQuery(rawLimit, c.Query("status"), c.Query("cursor"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	page, err := s.tasks.List(c.Request.Context(), opts...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	if s.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable"})
		return
	}

	var req task.CreateRequest
	// 空请求体视为 {}，交给后续校验给出 "title is required"。
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	created, err := s.tasks.Create(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// writeError 将客户端错误映射为 400，其余错误统一返回 500 且不暴露内部细节。
func (s *Server) writeError(c *gin.Context, err error) {
	if xerrors.IsClientError(err) {
		coded, _ := xerrors.From(err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: coded.Message()})
		return
	}
	s.log.Error("请求处理失败",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("code", string(xerrors.CodeOf(err))),
		slog.String("severity", string(xerrors.SeverityOf(err))),
		slog.Bool("retryable", xerrors.RetryableError(err)),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.log.Error("请求处理发生 panic",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Any("panic", recovered),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
