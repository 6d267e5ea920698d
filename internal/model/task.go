package model

import "time"

// Task はタスク管理の1タスクを表す。
type Task struct {
	ID               string
	Task             string
	Owner            string
	Status           string
	Timeline         *time.Time
	Duration         float64
	DependentOn      []string // 依存先タスクのID
	PlannedEffort    float64
	EffortSpent      float64
	CompletionDate   *time.Time
	CompletionStatus string
	CreatedAt        time.Time
}
