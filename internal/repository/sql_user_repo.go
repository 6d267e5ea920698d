package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
)

const userColumns = `id, name, date_of_birth, user_role, email, password_hash, created_at, updated_at`

// SQLUserRepo はPostgreSQLまたはSQLiteを使用したユーザーリポジトリ。
type SQLUserRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db *sql.DB, dialect database.Dialect) *SQLUserRepo {
	return &SQLUserRepo{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.DateOfBirth, &user.UserRole,
		&user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT `+userColumns+` FROM users WHERE id = $1`),
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT `+userColumns+` FROM users WHERE email = $1`),
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// List は全ユーザーを作成日時の昇順で返す。
func (r *SQLUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Create はユーザーを作成する。メールアドレスが重複する場合はErrConflictを返す。
func (r *SQLUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`),
		user.ID, user.Name, user.DateOfBirth, user.UserRole,
		user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if r.dialect.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はプロフィールを更新し、更新後のユーザーを返す。
func (r *SQLUserRepo) Update(ctx context.Context, id string, fields model.UserFields) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`UPDATE users
		 SET name = $1, date_of_birth = $2, user_role = $3, email = $4, updated_at = $5
		 WHERE id = $6
		 RETURNING `+userColumns),
		fields.Name, fields.DateOfBirth, fields.UserRole, fields.Email, time.Now().UTC(), id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if r.dialect.IsUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Delete は指定IDのユーザーを削除する。
func (r *SQLUserRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`DELETE FROM users WHERE id = $1`),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
