package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

type mockTaskRepo struct {
	listFn   func(ctx context.Context) ([]*model.Task, error)
	createFn func(ctx context.Context, task *model.Task) error
}

func (m *mockTaskRepo) List(ctx context.Context) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}

var _ repository.TaskRepository = (*mockTaskRepo)(nil)

func TestCreate_PersistsAndLists(t *testing.T) {
	db, dialect, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(repository.NewSQLTaskRepo(db, dialect))
	ctx := context.Background()

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(ctx, "user-1", CreateInput{
		Task:          "  Ship release  ",
		Owner:         "alice",
		Status:        "Not Started",
		Timeline:      &due,
		Duration:      5,
		PlannedEffort: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ship release", created.Task)
	assert.Equal(t, []string{}, created.DependentOn)
	assert.False(t, created.CreatedAt.IsZero())

	tasks, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, "alice", tasks[0].Owner)
	require.NotNil(t, tasks[0].Timeline)
	assert.True(t, tasks[0].Timeline.Equal(due))
}

func TestCreate_EmptyNameReturnsInputError(t *testing.T) {
	svc := NewService(&mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			t.Fatal("Create should not be called")
			return nil
		},
	})

	for _, name := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), "user-1", CreateInput{Task: name})
		var apiErr *model.APIError
		require.True(t, errors.As(err, &apiErr), "name %q: err = %v", name, err)
		assert.Equal(t, model.KindInput, apiErr.Kind)
		assert.Equal(t, model.MsgTaskNameRequired, apiErr.Message)
	}
}

func TestCreate_NegativeEffortReturnsInputError(t *testing.T) {
	svc := NewService(&mockTaskRepo{})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{Task: "x", EffortSpent: -1})
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.KindInput, apiErr.Kind)
}

func TestCreate_RepoErrorIsWrapped(t *testing.T) {
	repoErr := errors.New("insert failed")
	svc := NewService(&mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error { return repoErr },
	})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{Task: "x"})
	assert.ErrorIs(t, err, repoErr)
}

func TestList_RepoErrorIsWrapped(t *testing.T) {
	repoErr := errors.New("query failed")
	svc := NewService(&mockTaskRepo{
		listFn: func(ctx context.Context) ([]*model.Task, error) { return nil, repoErr },
	})

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, repoErr)
}
