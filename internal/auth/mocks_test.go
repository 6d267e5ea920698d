package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	listFn        func(ctx context.Context) ([]*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
	updateFn      func(ctx context.Context, id string, fields model.UserFields) (*model.User, error)
	deleteFn      func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, id string, fields model.UserFields) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, fields)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockProvider struct {
	resolveProfileFn func(ctx context.Context, accessToken string) (*model.OAuthProfile, error)
	exchangeCodeFn   func(ctx context.Context, code string) (string, error)
}

func (m *mockProvider) ResolveProfile(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
	if m.resolveProfileFn != nil {
		return m.resolveProfileFn(ctx, accessToken)
	}
	return nil, nil
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return "", nil
}

// recordingRecorder は記録された認証操作を保持するmetrics.Recorder。
type recordingRecorder struct {
	mu       sync.Mutex
	attempts []string
}

func (r *recordingRecorder) RecordAuthAttempt(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, operation+"/"+outcome)
}

func (r *recordingRecorder) RecordTokenVerification(string)     {}
func (r *recordingRecorder) RecordHTTPStatus(int)               {}
func (r *recordingRecorder) RecordRequestLatency(time.Duration) {}

func (r *recordingRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) == 0 {
		return ""
	}
	return r.attempts[len(r.attempts)-1]
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ ProfileResolver = (*mockProvider)(nil)
var _ CodeExchanger = (*mockProvider)(nil)

// --- ヘルパー ---

// newSQLiteUserRepo はインメモリSQLiteのユーザーリポジトリを返す。
func newSQLiteUserRepo(t *testing.T) *repository.SQLUserRepo {
	t.Helper()
	db, dialect, err := database.Open("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLUserRepo(db, dialect)
}

// newTestHasher はテスト高速化のため最小コストのハッシャーを返す。
func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}
