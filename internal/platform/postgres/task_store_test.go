package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovehub/asset-manager/db/migrations"
	"github.com/ovehub/asset-manager/internal/domain"
	"github.com/ovehub/asset-manager/internal/store"
)

// openTestDB connects to the database named by AM_TEST_DATABASE_URL and
// applies the schema. Tests are skipped when the variable is unset so the
// suite stays runnable without a live Postgres.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("AM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("AM_TEST_DATABASE_URL not set, skipping database test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Files)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	_, err = db.Exec(`TRUNCATE tasks`)
	require.NoError(t, err)

	return db
}

func scheduleTestTask(t *testing.T, s *PostgresTaskStore, priority int, extension string) *domain.Task {
	t.Helper()
	task := domain.NewTask("store-1", "project-1", "asset-1", "dz-image", "alice",
		"img"+extension, nil, nil, priority)
	require.NoError(t, s.Create(context.Background(), task))
	return task
}

func TestClaimPriorityOrdering(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	low := scheduleTestTask(t, s, 1, ".png")
	time.Sleep(5 * time.Millisecond)
	high := scheduleTestTask(t, s, 5, ".png")
	time.Sleep(5 * time.Millisecond)
	mid := scheduleTestTask(t, s, 3, ".png")

	var order []string
	for i := 0; i < 3; i++ {
		task, err := s.Claim(ctx, "dz-image", []string{".png"})
		require.NoError(t, err)
		order = append(order, task.ID.String())
	}

	assert.Equal(t, []string{high.ID.String(), mid.ID.String(), low.ID.String()}, order)

	_, err := s.Claim(ctx, "dz-image", []string{".png"})
	assert.ErrorIs(t, err, store.ErrNoMatch)
}

func TestClaimAtMostOnce(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := scheduleTestTask(t, s, 1, ".zip")

	const claimers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed []*domain.Task
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Claim(ctx, "dz-image", []string{".zip"})
			if err != nil {
				return
			}
			mu.Lock()
			claimed = append(claimed, got)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, claimed, 1)
	assert.Equal(t, task.ID, claimed[0].ID)
	assert.Equal(t, domain.TaskStatusProcessing, claimed[0].Status)
}

func TestClaimFiltersTypeAndExtension(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	scheduleTestTask(t, s, 1, ".xyz")

	// Wrong extension set: nothing to claim, the task stays NEW.
	_, err := s.Claim(ctx, "dz-image", []string{".png", ".jpg"})
	assert.ErrorIs(t, err, store.ErrNoMatch)

	tasks, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusNew, tasks[0].Status)
}

func TestCancelAndReset(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := scheduleTestTask(t, s, 1, ".png")

	require.NoError(t, s.Cancel(ctx, task.ID))
	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, got.Status)
	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, *got.StartTime, *got.EndTime)

	// A canceled task is never claimable.
	_, err = s.Claim(ctx, "dz-image", []string{".png"})
	assert.ErrorIs(t, err, store.ErrNoMatch)

	// Reset makes it claimable again; resetting twice is idempotent.
	require.NoError(t, s.Reset(ctx, task.ID))
	require.NoError(t, s.Reset(ctx, task.ID))
	got, err = s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusNew, got.Status)
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.EndTime)

	claimed, err := s.Claim(ctx, "dz-image", []string{".png"})
	require.NoError(t, err)
	assert.Equal(t, task.ID, claimed.ID)
}

func TestTaskNotFound(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	missing := domain.NewTask("s", "p", "a", "t", "u", "f.png", nil, nil, 0)

	_, err := s.GetByID(ctx, missing.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.ErrorIs(t, s.Cancel(ctx, missing.ID), store.ErrTaskNotFound)
	assert.ErrorIs(t, s.Reset(ctx, missing.ID), store.ErrTaskNotFound)
}
