package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	List(ctx context.Context) ([]*model.Task, error)
	Create(ctx context.Context, actorID string, in task.CreateInput) (*model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	Task             string        `json:"Task"`
	Owner            string        `json:"Owner"`
	Status           string        `json:"Status"`
	Timeline         *flexibleTime `json:"Timeline"`
	Duration         float64       `json:"Duration"`
	DependentOn      []string      `json:"Dependent On"`
	PlannedEffort    float64       `json:"Planned Effort"`
	EffortSpent      float64       `json:"Effort Spent"`
	CompletionDate   *flexibleTime `json:"Completion Date"`
	CompletionStatus string        `json:"Completion Status"`
}

// ListTasks は全タスクを返す。
// GET /tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	results := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		results[i] = toTaskResponse(t)
	}
	middleware.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: results})
}

// CreateTask はタスクを作成する。
// POST /tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewUnauthenticatedError())
		return
	}

	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), actorID, task.CreateInput{
		Task:             req.Task,
		Owner:            req.Owner,
		Status:           req.Status,
		Timeline:         req.Timeline.ptr(),
		Duration:         req.Duration,
		DependentOn:      req.DependentOn,
		PlannedEffort:    req.PlannedEffort,
		EffortSpent:      req.EffortSpent,
		CompletionDate:   req.CompletionDate.ptr(),
		CompletionStatus: req.CompletionStatus,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, dataResponse{Success: true, Data: toTaskResponse(created)})
}
