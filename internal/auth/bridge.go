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

// ProfileResolver はプロバイダーのアクセストークンからプロフィールを取得する。
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, accessToken string) (*model.OAuthProfile, error)
}

// CodeExchanger は認可コードをプロバイダーのアクセストークンに交換する。
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// SignInResult はOAuthサインインの結果。
type SignInResult struct {
	User    *model.User
	Token   string
	Created bool
}

// Bridge は外部IdPの資格情報をローカルユーザーとセッショントークンに変換する。
// ローカルユーザーとの紐付けはメールアドレスの一致のみで行う。
type Bridge struct {
	resolver  ProfileResolver
	exchanger CodeExchanger
	users     repository.UserRepository
	tokens    *TokenIssuer
	recorder  metrics.Recorder

	now   func() time.Time
	newID func() string
}

// NewBridge はBridgeを生成する。exchangerがnilの場合、SignInWithCodeは使用できない。
func NewBridge(resolver ProfileResolver, exchanger CodeExchanger, users repository.UserRepository, tokens *TokenIssuer, recorder metrics.Recorder) *Bridge {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Bridge{
		resolver:  resolver,
		exchanger: exchanger,
		users:     users,
		tokens:    tokens,
		recorder:  recorder,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// SignInWithAccessToken はプロバイダーのアクセストークンでサインインする。
func (b *Bridge) SignInWithAccessToken(ctx context.Context, accessToken string) (*SignInResult, error) {
	if accessToken == "" {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeInvalidInput)
		return nil, model.NewInputError(model.MsgAccessTokenMissing)
	}

	profile, err := b.resolver.ResolveProfile(ctx, accessToken)
	if err != nil {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeUpstreamError)
		return nil, model.NewUpstreamError(err)
	}
	if profile == nil || profile.Email == "" {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeUpstreamError)
		return nil, model.NewUpstreamError(errors.New("provider profile has no email"))
	}

	return b.signIn(ctx, profile)
}

// SignInWithCode は認可コードをアクセストークンに交換してサインインする。
func (b *Bridge) SignInWithCode(ctx context.Context, code string) (*SignInResult, error) {
	if code == "" {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeInvalidInput)
		return nil, model.NewInputError(model.MsgAuthorizationCodeMissing)
	}
	if b.exchanger == nil {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeError)
		return nil, model.NewInternalError(errors.New("authorization code exchange is not configured"))
	}

	accessToken, err := b.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeUpstreamError)
		return nil, model.NewUpstreamError(err)
	}

	return b.SignInWithAccessToken(ctx, accessToken)
}

// signIn はメールアドレスでユーザーを検索し、なければ作成してトークンを発行する。
func (b *Bridge) signIn(ctx context.Context, profile *model.OAuthProfile) (*SignInResult, error) {
	user, err := b.users.FindByEmail(ctx, profile.Email)
	if err != nil {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeError)
		return nil, model.NewInternalError(fmt.Errorf("failed to look up email: %w", err))
	}

	created := false
	if user == nil {
		user, created, err = b.createUser(ctx, profile)
		if err != nil {
			b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeError)
			return nil, model.NewInternalError(err)
		}
	}

	token, err := b.tokens.Issue(user.ID)
	if err != nil {
		b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeError)
		return nil, model.NewInternalError(err)
	}

	b.recorder.RecordAuthAttempt(metrics.OperationOAuthSignIn, metrics.OutcomeSuccess)
	return &SignInResult{User: user, Token: token, Created: created}, nil
}

// createUser はプロフィールから新規ユーザーを作成する。
// 同時の初回サインインでConflictになった場合は先に作成されたユーザーを読み直す。
func (b *Bridge) createUser(ctx context.Context, profile *model.OAuthProfile) (*model.User, bool, error) {
	name := profile.Name
	if name == "" {
		name = profile.Email
	}

	now := b.now()
	user := &model.User{
		ID:           b.newID(),
		Name:         name,
		DateOfBirth:  model.OAuthPlaceholderDateOfBirth,
		UserRole:     model.DefaultUserRole,
		Email:        profile.Email,
		PasswordHash: PlaceholderPasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := b.users.Create(ctx, user)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err := b.users.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read user after conflict: %w", err)
	}
	if existing == nil {
		return nil, false, errors.New("user vanished after conflicting create")
	}
	return existing, false, nil
}
