// Package task はタスクの一覧と作成のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Task             string
	Owner            string
	Status           string
	Timeline         *time.Time
	Duration         float64
	DependentOn      []string
	PlannedEffort    float64
	EffortSpent      float64
	CompletionDate   *time.Time
	CompletionStatus string
}

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo repository.TaskRepository

	now   func() time.Time
	newID func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(taskRepo repository.TaskRepository) *Service {
	return &Service{
		taskRepo: taskRepo,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// List は全タスクを返す。
func (s *Service) List(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。タスク名が空の場合はInputErrorを返す。
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (*model.Task, error) {
	name := strings.TrimSpace(in.Task)
	if name == "" {
		return nil, model.NewInputError(model.MsgTaskNameRequired)
	}
	if in.Duration < 0 || in.PlannedEffort < 0 || in.EffortSpent < 0 {
		return nil, model.NewInputError("Duration and effort must not be negative")
	}

	dependentOn := in.DependentOn
	if dependentOn == nil {
		dependentOn = []string{}
	}

	task := &model.Task{
		ID:               s.newID(),
		Task:             name,
		Owner:            in.Owner,
		Status:           in.Status,
		Timeline:         in.Timeline,
		Duration:         in.Duration,
		DependentOn:      dependentOn,
		PlannedEffort:    in.PlannedEffort,
		EffortSpent:      in.EffortSpent,
		CompletionDate:   in.CompletionDate,
		CompletionStatus: in.CompletionStatus,
		CreatedAt:        s.now(),
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", actorID),
	)
	return task, nil
}
