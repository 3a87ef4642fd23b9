package task

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "taskpager/internal/errors"
)

// Cursor 记录上一页最后一条任务的排序键。对外以不透明字符串出现。
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorOf 返回指向给定任务的游标。
func CursorOf(task *Task) Cursor {
	return Cursor{CreatedAt: normalizeCreatedAt(task.CreatedAt), ID: task.ID}
}

// Encode 将游标编码为 base64url("<unix micros>:<id>")。
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor 解析 Encode 生成的令牌。游标不要求指向现存的任务。
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, xerrors.Wrap(CodeInvalidCursor, err, "")
	}
	micros, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	// 只接受无符号十进制，拒绝 "+1" 之类 ParseInt 能接受的写法。
	if micros == "" || strings.TrimLeft(micros, "0123456789") != "" {
		return Cursor{}, ErrInvalidCursor
	}
	value, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return Cursor{}, xerrors.Wrap(CodeInvalidCursor, err, "")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Cursor{}, xerrors.Wrap(CodeInvalidCursor, err, "")
	}
	if parsed.String() != id {
		// uuid.Parse 也接受带花括号或 urn 前缀的写法，游标只认规范形式。
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{CreatedAt: time.UnixMicro(value).UTC(), ID: id}, nil
}

// sortKey 返回可按字典序比较的排序键，Redis 的有序集合依赖它。
func (c Cursor) sortKey() string {
	return fmt.Sprintf("%020d:%s", c.CreatedAt.UnixMicro(), c.ID)
}

// follows 判断任务是否严格排在游标之后，即属于下一页的候选。
func (c Cursor) follows(task *Task) bool {
	if task.CreatedAt.Equal(c.CreatedAt) {
		return task.ID < c.ID
	}
	return task.CreatedAt.Before(c.CreatedAt)
}
