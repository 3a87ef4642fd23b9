package task

import (
	"time"

	xerrors "taskpager/internal/errors"
)

// Status 表示任务所处的阶段。
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

const (
	// DefaultPriority 是未指定优先级时写入的值。
	DefaultPriority = 1
)

// Task 描述一条任务记录。字段顺序即对外 JSON 的输出顺序。
type Task struct {
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

const (
	CodeInvalidLimit        xerrors.Code = "TASK_INVALID_LIMIT"
	CodeInvalidStatusFilter xerrors.Code = "TASK_INVALID_STATUS_FILTER"
	CodeInvalidCursor       xerrors.Code = "TASK_INVALID_CURSOR"
	CodeTitleRequired       xerrors.Code = "TASK_TITLE_REQUIRED"
	CodeInvalidStatus       xerrors.Code = "TASK_INVALID_STATUS"
	CodeTaskConflict        xerrors.Code = "TASK_CONFLICT"
	CodeTaskPublish         xerrors.Code = "TASK_PUBLISH_FAILED"
)

var (
	// ErrInvalidLimit 表示分页大小无法解析或超出 [MinLimit, MaxLimit]。
	ErrInvalidLimit = xerrors.New(CodeInvalidLimit, "limit must be between 1 and 50")
	// ErrInvalidStatusFilter 表示列表查询中的 status 不是受支持的枚举值。
	ErrInvalidStatusFilter = xerrors.New(CodeInvalidStatusFilter, "Invalid status")
	// ErrInvalidCursor 表示游标格式错误。
	ErrInvalidCursor = xerrors.New(CodeInvalidCursor, "Invalid cursor")
	// ErrTitleRequired 表示创建任务时缺少标题。
	ErrTitleRequired = xerrors.New(CodeTitleRequired, "title is required")
	// ErrInvalidStatus 表示创建任务时给出的 status 不合法。
	ErrInvalidStatus = xerrors.New(CodeInvalidStatus, "invalid status")
	// ErrTaskConflict 表示任务 ID 已存在。
	ErrTaskConflict = xerrors.New(CodeTaskConflict, "task already exists", xerrors.WithSeverity(xerrors.SeverityWarning))
)

func init() {
	for code, message := range map[xerrors.Code]string{
		CodeInvalidLimit:        "limit must be between 1 and 50",
		CodeInvalidStatusFilter: "Invalid status",
		CodeInvalidCursor:       "Invalid cursor",
		CodeTitleRequired:       "title is required",
		CodeInvalidStatus:       "invalid status",
	} {
		xerrors.Register(code, xerrors.Attributes{
			Message:  message,
			Severity: xerrors.SeverityInfo,
			Client:   true,
		})
	}
	xerrors.Register(CodeTaskConflict, xerrors.Attributes{
		Message:  "task already exists",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeTaskPublish, xerrors.Attributes{
		Message:   "failed to publish task event",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
}

// IsValidStatus 检查给定的任务状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	default:
		return false
	}
}

// Statuses 返回全部合法状态，顺序固定。
func Statuses() []Status {
	return []Status{StatusTodo, StatusDoing, StatusDone}
}

func cloneTask(task *Task) *Task {
	clone := *task
	return &clone
}

// precedes 判断 a 在列表顺序 (createdAt desc, id desc) 中是否排在 b 之前。
func precedes(a, b *Task) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// normalizeCreatedAt 统一时间精度，保证各存储实现持有相同的排序键。
func normalizeCreatedAt(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Microsecond)
}
