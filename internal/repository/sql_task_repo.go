package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
)

const taskColumns = `id, task, owner, status, timeline, duration, dependent_on,
	planned_effort, effort_spent, completion_date, completion_status, created_at`

// SQLTaskRepo はPostgreSQLまたはSQLiteを使用したタスクリポジトリ。
// dependent_onはJSON配列として保存する。
type SQLTaskRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLTaskRepo はSQLTaskRepoを生成する。
func NewSQLTaskRepo(db *sql.DB, dialect database.Dialect) *SQLTaskRepo {
	return &SQLTaskRepo{db: db, dialect: dialect}
}

// List は全タスクを作成日時の昇順で返す。
func (r *SQLTaskRepo) List(ctx context.Context) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		var (
			task           model.Task
			timeline       sql.NullTime
			completionDate sql.NullTime
			dependentOn    []byte
		)
		err := rows.Scan(
			&task.ID, &task.Task, &task.Owner, &task.Status, &timeline, &task.Duration, &dependentOn,
			&task.PlannedEffort, &task.EffortSpent, &completionDate, &task.CompletionStatus, &task.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		task.Timeline = timePtr(timeline)
		task.CompletionDate = timePtr(completionDate)
		if len(dependentOn) > 0 {
			if err := json.Unmarshal(dependentOn, &task.DependentOn); err != nil {
				return nil, fmt.Errorf("failed to decode dependent_on of task %s: %w", task.ID, err)
			}
		}
		if task.DependentOn == nil {
			task.DependentOn = []string{}
		}

		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。
func (r *SQLTaskRepo) Create(ctx context.Context, task *model.Task) error {
	dependentOn := task.DependentOn
	if dependentOn == nil {
		dependentOn = []string{}
	}
	encoded, err := json.Marshal(dependentOn)
	if err != nil {
		return fmt.Errorf("failed to encode dependent_on: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`),
		task.ID, task.Task, task.Owner, task.Status, nullTime(task.Timeline), task.Duration, string(encoded),
		task.PlannedEffort, task.EffortSpent, nullTime(task.CompletionDate), task.CompletionStatus, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// compile-time interface check
var _ TaskRepository = (*SQLTaskRepo)(nil)
