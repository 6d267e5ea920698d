package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

func profileProvider(profile *model.OAuthProfile) *mockProvider {
	return &mockProvider{
		resolveProfileFn: func(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
			return profile, nil
		},
	}
}

func TestBridge_SignInWithAccessToken_CreatesUserOnFirstSight(t *testing.T) {
	users := newSQLiteUserRepo(t)
	issuer := newTestIssuer(t, 0)
	rec := &recordingRecorder{}
	bridge := NewBridge(profileProvider(&model.OAuthProfile{Name: "Google User", Email: "g@x.com"}), nil, users, issuer, rec)
	ctx := context.Background()

	result, err := bridge.SignInWithAccessToken(ctx, "provider-token")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Created)
	assert.Equal(t, "oauth_signin/success", rec.last())

	stored, err := users.FindByEmail(ctx, "g@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Google User", stored.Name)
	assert.Equal(t, model.DefaultUserRole, stored.UserRole)
	assert.Equal(t, model.OAuthPlaceholderDateOfBirth, stored.DateOfBirth)
	assert.Equal(t, PlaceholderPasswordHash, stored.PasswordHash)

	subject, err := issuer.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, subject)
}

func TestBridge_SignInWithAccessToken_ReusesExistingUserByEmail(t *testing.T) {
	users := newSQLiteUserRepo(t)
	issuer := newTestIssuer(t, 0)
	ctx := context.Background()

	svc := NewService(users, newTestHasher(), issuer, nil)
	_, err := svc.Register(ctx, RegisterInput{Name: "Local", DateOfBirth: "1990-05-05", UserRole: "admin", Email: "g@x.com", Password: "p1"})
	require.NoError(t, err)
	local, err := users.FindByEmail(ctx, "g@x.com")
	require.NoError(t, err)

	bridge := NewBridge(profileProvider(&model.OAuthProfile{Name: "Google Name", Email: "g@x.com"}), nil, users, issuer, nil)

	result, err := bridge.SignInWithAccessToken(ctx, "provider-token")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, local.ID, result.User.ID)
	assert.Equal(t, "Local", result.User.Name, "existing profile must not be overwritten")

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// ローカルのパスワードは引き続き使える
	_, err = svc.Login(ctx, "g@x.com", "p1")
	assert.NoError(t, err)
}

func TestBridge_SignInWithAccessToken_SecondSignInReusesCreatedUser(t *testing.T) {
	users := newSQLiteUserRepo(t)
	bridge := NewBridge(profileProvider(&model.OAuthProfile{Name: "G", Email: "g@x.com"}), nil, users, newTestIssuer(t, 0), nil)
	ctx := context.Background()

	first, err := bridge.SignInWithAccessToken(ctx, "t1")
	require.NoError(t, err)
	second, err := bridge.SignInWithAccessToken(ctx, "t2")
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestBridge_SignInWithAccessToken_EmptyTokenReturnsInputError(t *testing.T) {
	provider := &mockProvider{
		resolveProfileFn: func(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
			t.Fatal("provider should not be called")
			return nil, nil
		},
	}
	bridge := NewBridge(provider, nil, &mockUserRepo{}, newTestIssuer(t, 0), nil)

	_, err := bridge.SignInWithAccessToken(context.Background(), "")
	assertKind(t, err, model.KindInput, model.MsgAccessTokenMissing)
}

func TestBridge_SignInWithAccessToken_ProviderFailureReturnsUpstreamError(t *testing.T) {
	rec := &recordingRecorder{}
	provider := &mockProvider{
		resolveProfileFn: func(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
			return nil, errors.New("unexpected status 401")
		},
	}
	bridge := NewBridge(provider, nil, &mockUserRepo{}, newTestIssuer(t, 0), rec)

	_, err := bridge.SignInWithAccessToken(context.Background(), "bad-token")
	assertKind(t, err, model.KindUpstream, model.MsgUpstreamFailed)
	assert.Equal(t, "oauth_signin/upstream_error", rec.last())
}

func TestBridge_SignInWithAccessToken_ProfileWithoutEmailReturnsUpstreamError(t *testing.T) {
	bridge := NewBridge(profileProvider(&model.OAuthProfile{Name: "No Email"}), nil, &mockUserRepo{}, newTestIssuer(t, 0), nil)

	_, err := bridge.SignInWithAccessToken(context.Background(), "token")
	assertKind(t, err, model.KindUpstream, model.MsgUpstreamFailed)
}

func TestBridge_SignInWithAccessToken_CreateConflictRereadsByEmail(t *testing.T) {
	winner := &model.User{ID: "winner", Email: "g@x.com", Name: "Winner"}
	lookups := 0
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrConflict
		},
	}
	issuer := newTestIssuer(t, 0)
	bridge := NewBridge(profileProvider(&model.OAuthProfile{Name: "G", Email: "g@x.com"}), nil, users, issuer, nil)

	result, err := bridge.SignInWithAccessToken(context.Background(), "token")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "winner", result.User.ID)

	subject, err := issuer.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "winner", subject)
}

func TestBridge_SignInWithAccessToken_StoreFailureReturnsInternalError(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return errors.New("disk full")
		},
	}
	bridge := NewBridge(profileProvider(&model.OAuthProfile{Email: "g@x.com"}), nil, users, newTestIssuer(t, 0), nil)

	_, err := bridge.SignInWithAccessToken(context.Background(), "token")
	assertKind(t, err, model.KindInternal, model.MsgInternal)
}

func TestBridge_SignInWithAccessToken_NamelessProfileUsesEmailAsName(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	bridge := NewBridge(profileProvider(&model.OAuthProfile{Email: "g@x.com"}), nil, users, newTestIssuer(t, 0), nil)

	_, err := bridge.SignInWithAccessToken(context.Background(), "token")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "g@x.com", created.Name)
}

func TestBridge_SignInWithCode(t *testing.T) {
	provider := &mockProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (string, error) {
			if code != "auth-code" {
				return "", errors.New("invalid_grant")
			}
			return "provider-token", nil
		},
		resolveProfileFn: func(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
			if accessToken != "provider-token" {
				return nil, errors.New("unexpected token")
			}
			return &model.OAuthProfile{Name: "G", Email: "g@x.com"}, nil
		},
	}
	bridge := NewBridge(provider, provider, newSQLiteUserRepo(t), newTestIssuer(t, 0), nil)
	ctx := context.Background()

	result, err := bridge.SignInWithCode(ctx, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "g@x.com", result.User.Email)

	_, err = bridge.SignInWithCode(ctx, "wrong-code")
	assertKind(t, err, model.KindUpstream, model.MsgUpstreamFailed)

	_, err = bridge.SignInWithCode(ctx, "")
	assertKind(t, err, model.KindInput, model.MsgAuthorizationCodeMissing)
}

func TestBridge_SignInWithCode_WithoutExchangerReturnsInternalError(t *testing.T) {
	bridge := NewBridge(&mockProvider{}, nil, &mockUserRepo{}, newTestIssuer(t, 0), nil)

	_, err := bridge.SignInWithCode(context.Background(), "code")
	assertKind(t, err, model.KindInternal, "")
}
