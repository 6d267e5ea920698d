package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) (string, error)
	loginFn    func(ctx context.Context, email, password string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return "", errors.New("not configured")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return "", errors.New("not configured")
}

type mockOAuthBridge struct {
	signInWithAccessTokenFn func(ctx context.Context, accessToken string) (*auth.SignInResult, error)
	signInWithCodeFn        func(ctx context.Context, code string) (*auth.SignInResult, error)
}

func (m *mockOAuthBridge) SignInWithAccessToken(ctx context.Context, accessToken string) (*auth.SignInResult, error) {
	if m.signInWithAccessTokenFn != nil {
		return m.signInWithAccessTokenFn(ctx, accessToken)
	}
	return nil, errors.New("not configured")
}

func (m *mockOAuthBridge) SignInWithCode(ctx context.Context, code string) (*auth.SignInResult, error) {
	if m.signInWithCodeFn != nil {
		return m.signInWithCodeFn(ctx, code)
	}
	return nil, errors.New("not configured")
}

type mockLoginURLProvider struct{}

func (mockLoginURLProvider) GetLoginURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

type mockUserService struct {
	profileFn func(ctx context.Context, userID string) (*model.User, error)
	listFn    func(ctx context.Context) ([]*model.User, error)
	updateFn  func(ctx context.Context, actorID, targetID string, fields model.UserFields) (*model.User, error)
	deleteFn  func(ctx context.Context, actorID, targetID string) error
}

func (m *mockUserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserService) Update(ctx context.Context, actorID, targetID string, fields model.UserFields) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actorID, targetID, fields)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) Delete(ctx context.Context, actorID, targetID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, targetID)
	}
	return model.NewUserNotFoundError()
}

type mockTaskService struct {
	listFn   func(ctx context.Context) ([]*model.Task, error)
	createFn func(ctx context.Context, actorID string, in task.CreateInput) (*model.Task, error)
}

func (m *mockTaskService) List(ctx context.Context) ([]*model.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskService) Create(ctx context.Context, actorID string, in task.CreateInput) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actorID, in)
	}
	return nil, errors.New("not configured")
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- テストヘルパー ---

// newJSONRequest はJSONボディ付きのリクエストを生成する。
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody はレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

// assertErrorBody はエラーレスポンスのステータスとメッセージを検証する。
func assertErrorBody(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantMessage string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] != wantMessage {
		t.Errorf("error = %v, want %q", body["error"], wantMessage)
	}
}
