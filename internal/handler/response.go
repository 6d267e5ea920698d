package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限（1MiB）。
const maxRequestBodyBytes = 1 << 20

// messageResponse はメッセージとトークンを返す成功レスポンス。
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// dataResponse はdataフィールドに結果を格納する成功レスポンス。
type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// userResponse は一覧で返すユーザー。パスワードハッシュは含めない。
type userResponse struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	UserRole    string `json:"userRole"`
	Email       string `json:"email"`
}

// profileResponse はGET /profileで返すプロフィール。
type profileResponse struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	UserRole    string `json:"userRole"`
	Email       string `json:"email"`
}

// taskResponse はタスクのJSON表現。キー名はフロントエンドの表示名に合わせる。
type taskResponse struct {
	ID               string     `json:"_id"`
	Task             string     `json:"Task"`
	Owner            string     `json:"Owner"`
	Status           string     `json:"Status"`
	Timeline         *time.Time `json:"Timeline,omitempty"`
	Duration         float64    `json:"Duration"`
	DependentOn      []string   `json:"Dependent On"`
	PlannedEffort    float64    `json:"Planned Effort"`
	EffortSpent      float64    `json:"Effort Spent"`
	CompletionDate   *time.Time `json:"Completion Date,omitempty"`
	CompletionStatus string     `json:"Completion Status"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Name:        u.Name,
		DateOfBirth: u.DateOfBirth,
		UserRole:    u.UserRole,
		Email:       u.Email,
	}
}

func toUserResponses(users []*model.User) []userResponse {
	results := make([]userResponse, len(users))
	for i, u := range users {
		results[i] = toUserResponse(u)
	}
	return results
}

func toTaskResponse(t *model.Task) taskResponse {
	dependentOn := t.DependentOn
	if dependentOn == nil {
		dependentOn = []string{}
	}
	return taskResponse{
		ID:               t.ID,
		Task:             t.Task,
		Owner:            t.Owner,
		Status:           t.Status,
		Timeline:         t.Timeline,
		Duration:         t.Duration,
		DependentOn:      dependentOn,
		PlannedEffort:    t.PlannedEffort,
		EffortSpent:      t.EffortSpent,
		CompletionDate:   t.CompletionDate,
		CompletionStatus: t.CompletionStatus,
		CreatedAt:        t.CreatedAt,
	}
}

// decodeJSON はリクエストボディをdstにデコードする。
// ボディは1MiBに制限し、壊れたJSONや上限超過はInputErrorとして返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &model.APIError{Kind: model.KindInput, Message: model.MsgInvalidRequestBody, Err: err}
	}
	return nil
}

// flexibleTime はRFC3339と日付のみ（YYYY-MM-DD）の両方を受け付ける時刻。
type flexibleTime struct {
	time.Time
}

var flexibleTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// UnmarshalJSON は文字列の時刻を解析する。空文字とnullはゼロ値として扱う。
func (ft *flexibleTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range flexibleTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ft.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid time %q", s)
}

// ptr はゼロ値の場合nilを返す。
func (ft *flexibleTime) ptr() *time.Time {
	if ft == nil || ft.IsZero() {
		return nil
	}
	t := ft.Time
	return &t
}
