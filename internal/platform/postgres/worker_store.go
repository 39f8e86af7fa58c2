package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/platform/logger"
	"github.com/ovehub/asset-manager/internal/store"
)

// PostgresWorkerStore implements the store.WorkerStore interface using
// PostgreSQL.
type PostgresWorkerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWorkerStore creates a new PostgresWorkerStore. If logger is
// nil, the default logger is used.
func NewPostgresWorkerStore(db store.DBTX, logger *slog.Logger) *PostgresWorkerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWorkerStore{
		db:     db,
		logger: logger.With(slog.String("component", "worker_store")),
	}
}

// Ensure PostgresWorkerStore implements store.WorkerStore.
var _ store.WorkerStore = (*PostgresWorkerStore)(nil)

// Register implements store.WorkerStore.Register.
// Returns store.ErrWorkerExists when the name is already taken.
func (s *PostgresWorkerStore) Register(ctx context.Context, worker *domain.WorkerDescriptor) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := worker.Validate(); err != nil {
		return err
	}

	parameters, err := json.Marshal(worker.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode worker parameters: %w", err)
	}

	query := `
		INSERT INTO workers (name, type, description, extensions, status,
			docs, parameters, callback, status_callback, updated_at)
		VALUES ($1, $2, $3, string_to_array($4, ','), $5, $6, $7,
			NULLIF($8, ''), NULLIF($9, ''), $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		worker.Name,
		worker.Type,
		worker.Description,
		strings.Join(worker.Extensions, ","),
		worker.Status,
		worker.Docs,
		parameters,
		worker.Callback,
		worker.StatusCallback,
		time.Now().UTC(),
	)
	if err != nil {
		if store.IsDuplicateError(mapError(err)) {
			return store.ErrWorkerExists
		}
		log.Error("failed to register worker",
			slog.String("worker", worker.Name),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to register worker: %w", err)
	}

	log.Info("worker registered",
		slog.String("worker", worker.Name),
		slog.String("type", worker.Type))
	return nil
}

// Remove implements store.WorkerStore.Remove.
// Returns store.ErrWorkerNotFound when no rows match.
func (s *PostgresWorkerStore) Remove(ctx context.Context, name string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to remove worker: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrWorkerNotFound
	}

	log.Info("worker removed", slog.String("worker", name))
	return nil
}

// List implements store.WorkerStore.List.
func (s *PostgresWorkerStore) List(ctx context.Context, name string) ([]*domain.WorkerDescriptor, error) {
	query := `
		SELECT name, type, description, array_to_string(extensions, ','),
			status, docs, parameters, error_message,
			COALESCE(callback, ''), COALESCE(status_callback, '')
		FROM workers
		WHERE $1 = '' OR name = $1
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var workers []*domain.WorkerDescriptor
	for rows.Next() {
		worker, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker row: %w", err)
		}
		workers = append(workers, worker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worker rows: %w", err)
	}
	return workers, nil
}

// UpdateStatus implements store.WorkerStore.UpdateStatus.
func (s *PostgresWorkerStore) UpdateStatus(ctx context.Context, name string, status domain.WorkerStatus, errMsg string) error {
	query := `
		UPDATE workers
		SET status = $1, error_message = NULLIF($2, ''), updated_at = $3
		WHERE name = $4
	`
	result, err := s.db.ExecContext(ctx, query, status, errMsg, time.Now().UTC(), name)
	if err != nil {
		return fmt.Errorf("failed to update worker status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrWorkerNotFound
	}
	return nil
}

func scanWorker(rows *sql.Rows) (*domain.WorkerDescriptor, error) {
	var (
		worker     domain.WorkerDescriptor
		extensions string
		status     string
		parameters []byte
		errMsg     sql.NullString
	)
	err := rows.Scan(&worker.Name, &worker.Type, &worker.Description,
		&extensions, &status, &worker.Docs, &parameters, &errMsg,
		&worker.Callback, &worker.StatusCallback)
	if err != nil {
		return nil, err
	}

	if extensions != "" {
		worker.Extensions = strings.Split(extensions, ",")
	}
	parsed, err := domain.ParseWorkerStatus(status)
	if err != nil {
		return nil, err
	}
	worker.Status = parsed
	worker.Error = errMsg.String

	if len(parameters) > 0 {
		if err := json.Unmarshal(parameters, &worker.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode worker parameters: %w", err)
		}
	}
	return &worker, nil
}
