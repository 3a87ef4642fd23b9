package task

import (
	"strconv"

	xerrors "taskpager/internal/errors"
)

const (
	// DefaultLimit 是未指定 limit 时的分页大小。
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50
)

// ListOptions 控制一次分页查询。
type ListOptions struct {
	Limit  int
	Status Status
	After  *Cursor
}

// ListOption mutates ListOptions.
type ListOption func(*ListOptions)

// WithLimit 设置单页返回的最大条数。
func WithLimit(limit int) ListOption {
	return func(opts *ListOptions) {
		opts.Limit = limit
	}
}

// WithStatus 只返回指定状态的任务。空字符串表示不过滤。
func WithStatus(status Status) ListOption {
	return func(opts *ListOptions) {
		opts.Status = status
	}
}

// WithCursor 从游标之后继续扫描。
func WithCursor(cursor Cursor) ListOption {
	return func(opts *ListOptions) {
		c := cursor
		opts.After = &c
	}
}

// buildListOptions applies option functions on top of defaults and validates the result.
func buildListOptions(opts []ListOption) (ListOptions, error) {
	options := ListOptions{Limit: DefaultLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.Limit < MinLimit || options.Limit > MaxLimit {
		return ListOptions{}, ErrInvalidLimit
	}
	if options.Status != "" && !IsValidStatus(options.Status) {
		return ListOptions{}, ErrInvalidStatusFilter
	}
	return options, nil
}

// ParseLimit 将查询参数解析为分页大小。空字符串表示参数缺省，返回 DefaultLimit；
// 其余输入必须是十进制整数，空白不会被忽略。
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, xerrors.Wrap(CodeInvalidLimit, err, "")
	}
	if limit < MinLimit || limit > MaxLimit {
		return 0, ErrInvalidLimit
	}
	return limit, nil
}

// ParseStatus 解析列表查询的 status 过滤条件。空字符串表示不过滤。
func ParseStatus(raw string) (Status, error) {
	if raw == "" {
		return "", nil
	}
	status := Status(raw)
	if !IsValidStatus(status) {
		return "", ErrInvalidStatusFilter
	}
	return status, nil
}

// ParseListQuery 按 limit、status、cursor 的顺序校验原始查询参数，遇到第一个错误即返回。
func ParseListQuery(rawLimit, rawStatus, rawCursor string) ([]ListOption, error) {
	limit, err := ParseLimit(rawLimit)
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	opts := []ListOption{WithLimit(limit), WithStatus(status)}
	if rawCursor != "" {
		cursor, err := DecodeCursor(rawCursor)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCursor(cursor))
	}
	return opts, nil
}
