// Package auth はパスワードハッシュ、セッショントークン、ローカル認証、OAuthサインインを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// TokenVerifier はトークンを検証してユーザーIDを返すインターフェース。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name        string
	DateOfBirth string
	UserRole    string
	Email       string
	Password    string
}

// Service はメールアドレスとパスワードによる登録・ログインを提供する。
type Service struct {
	users    repository.UserRepository
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	recorder metrics.Recorder

	now   func() time.Time
	newID func() string
}

// NewService はServiceを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewService(users repository.UserRepository, hasher *PasswordHasher, tokens *TokenIssuer, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Register はユーザーを登録し、セッショントークンを発行する。
// 未入力の項目があればInputError、メールアドレスが登録済みならConflictを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if in.Name == "" || in.DateOfBirth == "" || in.UserRole == "" || in.Email == "" || in.Password == "" {
		s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeInvalidInput)
		return "", model.NewInputError(model.MsgAllFieldsRequired)
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeError)
		return "", model.NewInternalError(fmt.Errorf("failed to look up email: %w", err))
	}
	if existing != nil {
		s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeConflict)
		return "", model.NewConflictError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.recorder.RecordAuthAttempt(metrics.OperationRegister, outcomeFor(err))
		return "", err
	}

	now := s.now()
	user := &model.User{
		ID:           s.newID(),
		Name:         in.Name,
		DateOfBirth:  in.DateOfBirth,
		UserRole:     in.UserRole,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 同一メールアドレスの同時登録はストアの一意制約で負けた側がConflictになる
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeConflict)
			return "", model.NewConflictError()
		}
		s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeError)
		return "", model.NewInternalError(fmt.Errorf("failed to create user: %w", err))
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeError)
		return "", model.NewInternalError(err)
	}

	s.recorder.RecordAuthAttempt(metrics.OperationRegister, metrics.OutcomeSuccess)
	return token, nil
}

// Login はメールアドレスとパスワードを検証し、セッショントークンを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		s.recorder.RecordAuthAttempt(metrics.OperationLogin, metrics.OutcomeInvalidInput)
		return "", model.NewInputError(model.MsgCredentialsRequired)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.recorder.RecordAuthAttempt(metrics.OperationLogin, metrics.OutcomeError)
		return "", model.NewInternalError(fmt.Errorf("failed to look up email: %w", err))
	}
	if user == nil {
		s.hasher.CompareDummy(password)
		s.recorder.RecordAuthAttempt(metrics.OperationLogin, metrics.OutcomeInvalidCredentials)
		return "", model.NewInputError(model.MsgInvalidCredentials)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recorder.RecordAuthAttempt(metrics.OperationLogin, metrics.OutcomeInvalidCredentials)
		return "", model.NewInputError(model.MsgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recorder.RecordAuthAttempt(metrics.OperationLogin, metrics.OutcomeError)
		return "", model.NewInternalError(err)
	}

	s.recorder.RecordAuthAttempt(metrics.OperationLogin, metrics.OutcomeSuccess)
	return token, nil
}

// outcomeFor はエラー種別をメトリクスの結果ラベルに変換する。
func outcomeFor(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return metrics.OutcomeError
	}
	switch apiErr.Kind {
	case model.KindInput:
		return metrics.OutcomeInvalidInput
	case model.KindConflict:
		return metrics.OutcomeConflict
	case model.KindUpstream:
		return metrics.OutcomeUpstreamError
	default:
		return metrics.OutcomeError
	}
}

// compile-time interface check
var _ TokenVerifier = (*TokenIssuer)(nil)
