package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
)

// taskDocument はtasksコレクションのドキュメント。
// フィールド名は既存データとの互換のため表示名をそのまま使う。
type taskDocument struct {
	ID               string     `bson:"_id"`
	Task             string     `bson:"Task"`
	Owner            string     `bson:"Owner"`
	Status           string     `bson:"Status"`
	Timeline         *time.Time `bson:"Timeline,omitempty"`
	Duration         float64    `bson:"Duration"`
	DependentOn      []string   `bson:"Dependent On"`
	PlannedEffort    float64    `bson:"Planned Effort"`
	EffortSpent      float64    `bson:"Effort Spent"`
	CompletionDate   *time.Time `bson:"Completion Date,omitempty"`
	CompletionStatus string     `bson:"Completion Status"`
	CreatedAt        time.Time  `bson:"created_at"`
}

func (d *taskDocument) toModel() *model.Task {
	dependentOn := d.DependentOn
	if dependentOn == nil {
		dependentOn = []string{}
	}
	return &model.Task{
		ID:               d.ID,
		Task:             d.Task,
		Owner:            d.Owner,
		Status:           d.Status,
		Timeline:         d.Timeline,
		Duration:         d.Duration,
		DependentOn:      dependentOn,
		PlannedEffort:    d.PlannedEffort,
		EffortSpent:      d.EffortSpent,
		CompletionDate:   d.CompletionDate,
		CompletionStatus: d.CompletionStatus,
		CreatedAt:        d.CreatedAt,
	}
}

// MongoTaskRepo はMongoDBを使用したタスクリポジトリ。
type MongoTaskRepo struct {
	col *mongo.Collection
}

// NewMongoTaskRepo はMongoTaskRepoを生成する。
func NewMongoTaskRepo(db *mongo.Database) *MongoTaskRepo {
	return &MongoTaskRepo{col: db.Collection(database.ColTasks)}
}

// List は全タスクを作成日時の昇順で返す。
func (r *MongoTaskRepo) List(ctx context.Context) ([]*model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findMany[taskDocument](ctx, r.col, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*model.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, doc.toModel())
	}
	return tasks, nil
}

// Create はタスクを作成する。
func (r *MongoTaskRepo) Create(ctx context.Context, task *model.Task) error {
	dependentOn := task.DependentOn
	if dependentOn == nil {
		dependentOn = []string{}
	}
	doc := taskDocument{
		ID:               task.ID,
		Task:             task.Task,
		Owner:            task.Owner,
		Status:           task.Status,
		Timeline:         task.Timeline,
		Duration:         task.Duration,
		DependentOn:      dependentOn,
		PlannedEffort:    task.PlannedEffort,
		EffortSpent:      task.EffortSpent,
		CompletionDate:   task.CompletionDate,
		CompletionStatus: task.CompletionStatus,
		CreatedAt:        task.CreatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert task: %w", wrapMongoError(err))
	}
	return nil
}

// compile-time interface check
var _ TaskRepository = (*MongoTaskRepo)(nil)
