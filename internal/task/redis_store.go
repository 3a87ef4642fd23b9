package task

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	xerrors "taskpager/internal/errors"
	"taskpager/pkg/logger"
)

// RedisStore 将任务保存为 JSON 字符串，并用分值恒为 0 的有序集合维护排序键。
// 成员格式为 "%020d:<id>"，按字典序倒序即 (createdAt desc, id desc)。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 基于已建立的连接创建 RedisStore。
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis client 不能为空")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "taskpager"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) taskKey(id string) string {
	return s.prefix + ":task:" + id
}

func (s *RedisStore) orderKey(status Status) string {
	if status == "" {
		return s.prefix + ":order"
	}
	return s.prefix + ":order:" + string(status)
}

// Create 在一个 MULTI 事务中写入任务体和两个排序索引。
func (s *RedisStore) Create(ctx context.Context, task *Task) error {
	if task == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "task 不能为空")
	}
	if strings.TrimSpace(task.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "任务 ID 不能为空")
	}
	record := cloneTask(task)
	record.CreatedAt = normalizeCreatedAt(record.CreatedAt)

	payload, err := json.Marshal(record)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "编码任务失败")
	}

	created, err := s.client.SetNX(ctx, s.taskKey(record.ID), payload, 0).Result()
	if err != nil {
		return storageError(err, "写入任务失败")
	}
	if !created {
		return ErrTaskConflict
	}

	member := redis.Z{Score: 0, Member: CursorOf(record).sortKey()}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.orderKey(""), member)
		pipe.ZAdd(ctx, s.orderKey(record.Status), member)
		return nil
	})
	if err != nil {
		_ = s.client.Del(ctx, s.taskKey(record.ID)).Err()
		return storageError(err, "写入任务索引失败")
	}
	return nil
}

// Scan 通过 ZREVRANGEBYLEX 读取游标之后的排序键，再用 MGET 取回任务体。
// 缺少任务体的索引成员会被跳过并从索引中移除，随后继续向后读取直到凑满 Limit。
func (s *RedisStore) Scan(ctx context.Context, opts ScanOptions) ([]*Task, error) {
	upper := "+"
	if opts.After != nil {
		upper = "(" + opts.After.sortKey()
	}

	tasks := make([]*Task, 0, max(opts.Limit, 0))
	for {
		rangeBy := &redis.ZRangeBy{Min: "-", Max: upper}
		want := 0
		if opts.Limit > 0 {
			want = opts.Limit - len(tasks)
			rangeBy.Count = int64(want)
		}

		members, err := s.client.ZRevRangeByLex(ctx, s.orderKey(opts.Status), rangeBy).Result()
		if err != nil {
			return nil, storageError(err, "查询任务索引失败")
		}
		if len(members) == 0 {
			return tasks, nil
		}

		found, orphans, err := s.load(ctx, members)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, found...)
		if len(orphans) > 0 {
			s.prune(ctx, orphans)
		}

		if want == 0 || len(members) < want || len(tasks) >= opts.Limit {
			return tasks, nil
		}
		upper = "(" + members[len(members)-1]
	}
}

// load 取回索引成员对应的任务体，并返回缺少任务体的成员。
func (s *RedisStore) load(ctx context.Context, members []string) ([]*Task, []string, error) {
	keys := make([]string, 0, len(members))
	for _, member := range members {
		_, id, ok := strings.Cut(member, ":")
		if !ok {
			return nil, nil, xerrors.New(xerrors.CodeStorageFailure, "任务索引格式错误: "+member)
		}
		keys = append(keys, s.taskKey(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, storageError(err, "读取任务失败")
	}
	tasks := make([]*Task, 0, len(values))
	var orphans []string
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			orphans = append(orphans, members[i])
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析任务失败: "+keys[i])
		}
		tasks = append(tasks, &task)
	}
	return tasks, orphans, nil
}

// prune 从全部索引中移除缺少任务体的成员。失败只记录日志，下次扫描仍会跳过它们。
func (s *RedisStore) prune(ctx context.Context, orphans []string) {
	values := make([]any, len(orphans))
	for i, member := range orphans {
		values[i] = member
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.orderKey(""), values...)
		for _, status := range Statuses() {
			pipe.ZRem(ctx, s.orderKey(status), values...)
		}
		return nil
	})
	if err != nil {
		logger.L().Warn("清理任务索引失败", slog.Any("error", err), slog.Int("members", len(orphans)))
	}
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil && !stdErrors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
