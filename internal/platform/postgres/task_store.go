package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
	"github.com/ovehub/asset-manager/internal/store"
)

// taskColumns is the select list shared by every task query.
const taskColumns = `id, store_id, project_id, asset_id, worker_type, worker_name,
	username, filename, extension, task_options, credentials, priority, status,
	error_message, created_on, start_time, end_time`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore. It accepts a
// database connection or transaction managed by the caller. If logger is
// nil, the default logger is used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore.
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	options, err := json.Marshal(task.TaskOptions)
	if err != nil {
		return fmt.Errorf("failed to encode task options: %w", err)
	}
	var credentials []byte
	if task.Credentials != nil {
		if credentials, err = json.Marshal(task.Credentials); err != nil {
			return fmt.Errorf("failed to encode credentials: %w", err)
		}
	}

	query := `
		INSERT INTO tasks (id, store_id, project_id, asset_id, worker_type,
			username, filename, extension, task_options, credentials,
			priority, status, created_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.StoreID,
		task.ProjectID,
		task.AssetID,
		task.WorkerType,
		task.Username,
		task.Filename,
		strings.ToLower(task.Extension),
		options,
		credentials,
		task.Priority,
		task.Status,
		task.CreatedOn,
	)
	if err != nil {
		log.Error("failed to insert task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert task: %w", mapError(err))
	}

	log.Info("task scheduled",
		slog.String("task_id", task.ID.String()),
		slog.String("worker_type", task.WorkerType),
		slog.Int("priority", task.Priority))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(mapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// List implements store.TaskStore.List. Tasks come back in consumption
// order: priority descending, then most recent first.
func (s *PostgresTaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY priority DESC, created_on DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// Claim implements store.TaskStore.Claim. The row lock taken by
// FOR UPDATE SKIP LOCKED guarantees that concurrent claimers never receive
// the same task; this single statement is the queue's only mutual-exclusion
// primitive.
func (s *PostgresTaskStore) Claim(ctx context.Context, workerType string, extensions []string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	lowered := make([]string, len(extensions))
	for i, ext := range extensions {
		lowered[i] = strings.ToLower(ext)
	}

	query := `
		UPDATE tasks SET status = $1
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = $2
			  AND worker_type = $3
			  AND extension = ANY(string_to_array($4, ','))
			ORDER BY priority DESC, created_on DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns
	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		domain.TaskStatusProcessing,
		domain.TaskStatusNew,
		workerType,
		strings.Join(lowered, ","),
	))
	if err != nil {
		if store.IsNotFoundError(mapError(err)) {
			return nil, store.ErrNoMatch
		}
		log.Error("failed to claim task",
			slog.String("worker_type", workerType),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	log.Debug("task claimed",
		slog.String("task_id", task.ID.String()),
		slog.String("worker_type", workerType))
	return task, nil
}

// MarkStarted implements store.TaskStore.MarkStarted.
func (s *PostgresTaskStore) MarkStarted(ctx context.Context, id uuid.UUID, workerName string) error {
	query := `UPDATE tasks SET worker_name = $1, start_time = $2 WHERE id = $3`
	return s.exec(ctx, query, workerName, time.Now().UTC(), id)
}

// MarkFinished implements store.TaskStore.MarkFinished.
func (s *PostgresTaskStore) MarkFinished(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errMsg string) error {
	query := `UPDATE tasks SET status = $1, error_message = NULLIF($2, ''), end_time = $3 WHERE id = $4`
	return s.exec(ctx, query, status, errMsg, time.Now().UTC(), id)
}

// Cancel implements store.TaskStore.Cancel. Cancellation is queue
// bookkeeping only; it never interrupts a worker already processing.
func (s *PostgresTaskStore) Cancel(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := `UPDATE tasks SET status = $1, start_time = $2, end_time = $2 WHERE id = $3`
	return s.exec(ctx, query, domain.TaskStatusCanceled, now, id)
}

// Reset implements store.TaskStore.Reset.
func (s *PostgresTaskStore) Reset(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = $1, worker_name = NULL, error_message = NULL,
			start_time = NULL, end_time = NULL
		WHERE id = $2
	`
	return s.exec(ctx, query, domain.TaskStatusNew, id)
}

// exec runs a task mutation and converts "zero rows affected" into
// store.ErrTaskNotFound.
func (s *PostgresTaskStore) exec(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", mapError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		workerName   sql.NullString
		filename     sql.NullString
		extension    sql.NullString
		options      []byte
		credentials  []byte
		status       string
		errorMessage sql.NullString
		startTime    sql.NullTime
		endTime      sql.NullTime
	)

	err := row.Scan(&task.ID, &task.StoreID, &task.ProjectID, &task.AssetID,
		&task.WorkerType, &workerName, &task.Username, &filename, &extension,
		&options, &credentials, &task.Priority, &status, &errorMessage,
		&task.CreatedOn, &startTime, &endTime)
	if err != nil {
		return nil, err
	}

	task.WorkerName = workerName.String
	task.Filename = filename.String
	task.Extension = extension.String
	task.Error = errorMessage.String

	parsed, err := domain.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	task.Status = parsed

	if len(options) > 0 {
		if err := json.Unmarshal(options, &task.TaskOptions); err != nil {
			return nil, fmt.Errorf("failed to decode task options: %w", err)
		}
	}
	if len(credentials) > 0 {
		task.Credentials = &domain.StoreConfig{}
		if err := json.Unmarshal(credentials, task.Credentials); err != nil {
			return nil, fmt.Errorf("failed to decode credentials: %w", err)
		}
	}
	if startTime.Valid {
		t := startTime.Time
		task.StartTime = &t
	}
	if endTime.Valid {
		t := endTime.Time
		task.EndTime = &t
	}

	return &task, nil
}
