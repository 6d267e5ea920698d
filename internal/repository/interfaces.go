// Package repository はデータ永続化のインターフェースとその実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/taskman/internal/model"
)

var (
	// ErrNotFound は更新・削除対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("record not found")
	// ErrConflict は一意制約（メールアドレス等）に違反したことを表す。
	ErrConflict = errors.New("record conflicts with an existing one")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスが完全一致するユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrConflictを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はプロフィールを更新し、更新後のユーザーを返す。
	// 対象がない場合はErrNotFound、メールアドレスが重複する場合はErrConflictを返す。
	Update(ctx context.Context, id string, fields model.UserFields) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。対象がない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// List は全タスクを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error
}
