package task

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	xerrors "taskpager/internal/errors"
	"taskpager/internal/storage/mysql"
)

const selectTaskColumns = `SELECT id, title, status, priority, created_at FROM tasks`

// MySQLStore 使用 MySQL 保存任务，created_at 以微秒时间戳存储。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 建立连接池、执行迁移并返回 MySQLStore。
func NewMySQLStore(ctx context.Context, cfg mysql.Config) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}
	db, err := mysql.Open(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}
	if err := mysql.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 tasks 表失败")
	}
	return &MySQLStore{db: db}, nil
}

// NewMySQLStoreFromDB 复用已经打开的连接池，不执行迁移。
func NewMySQLStoreFromDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Create 插入新的任务记录。
func (s *MySQLStore) Create(ctx context.Context, task *Task) error {
	if task == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "task 不能为空")
	}
	if strings.TrimSpace(task.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "任务 ID 不能为空")
	}
	createdAt := normalizeCreatedAt(task.CreatedAt)

	const stmt = `INSERT INTO tasks (id, title, status, priority, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		task.ID,
		task.Title,
		string(task.Status),
		task.Priority,
		createdAt.UnixMicro(),
	)
	if err != nil {
		var mysqlErr *gomysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrTaskConflict
		}
		return storageError(err, "插入任务失败")
	}
	return nil
}

// Scan 使用 keyset 条件读取游标之后的任务。
func (s *MySQLStore) Scan(ctx context.Context, opts ScanOptions) ([]*Task, error) {
	query, args := buildScanQuery(opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err, "查询任务列表失败")
	}
	defer rows.Close()

	capacity := opts.Limit
	if capacity <= 0 {
		capacity = DefaultLimit
	}
	tasks := make([]*Task, 0, capacity)
	for rows.Next() {
		var (
			task   Task
			status string
			micros int64
		)
		if err := rows.Scan(&task.ID, &task.Title, &status, &task.Priority, &micros); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析任务记录失败")
		}
		task.Status = Status(status)
		task.CreatedAt = time.UnixMicro(micros).UTC()
		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "遍历任务失败")
	}
	return tasks, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildScanQuery(opts ScanOptions) (string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 5)

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}
	if opts.After != nil {
		micros := opts.After.CreatedAt.UnixMicro()
		conditions = append(conditions, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, micros, micros, opts.After.ID)
	}

	query := selectTaskColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return query, args
}

var _ Store = (*MySQLStore)(nil)
