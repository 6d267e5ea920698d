// Package user はプロフィール参照とユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Profile はセッションのユーザー自身のプロフィールを返す。
// トークン発行後にユーザーが削除されている場合はNotFoundを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update は指定ユーザーのプロフィールを更新する。
// パスワードはこの操作では変更しない。
func (s *Service) Update(ctx context.Context, actorID, targetID string, fields model.UserFields) (*model.User, error) {
	if fields.Name == "" || fields.DateOfBirth == "" || fields.UserRole == "" || fields.Email == "" {
		return nil, model.NewInputError(model.MsgAllFieldsRequired)
	}

	user, err := s.userRepo.Update(ctx, targetID, fields)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, model.NewUserNotFoundError()
	case errors.Is(err, repository.ErrConflict):
		return nil, model.NewConflictError()
	case err != nil:
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("user updated",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
	)
	return user, nil
}

// Delete は指定ユーザーを削除する。
func (s *Service) Delete(ctx context.Context, actorID, targetID string) error {
	err := s.userRepo.Delete(ctx, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted",
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
	)
	return nil
}
