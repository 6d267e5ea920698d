package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken はトークンが提示されなかったことを表す。
	ErrMissingToken = errors.New("token is missing")
	// ErrInvalidToken は署名不一致、不正なペイロード、期限切れのいずれかを表す。
	ErrInvalidToken = errors.New("token is invalid")
)

// Claims はセッショントークンのペイロード。
// ユーザーID以外の属性（ロール、メールアドレス等）は含めない。
// exp/iatはTTLが設定されている場合のみ付与する。
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenIssuer はプロセス共通の共通鍵でHS256署名したトークンの発行と検証を行う。
// 鍵は生成時に固定され、以後変更されない。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
// ttlが0の場合は有効期限のないトークンを発行する。
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl must not be negative: %v", ttl)
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue は指定ユーザーIDに紐づくトークンを発行する。
func (i *TokenIssuer) Issue(subjectID string) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("subject ID is required")
	}

	claims := Claims{UserID: subjectID}
	if i.ttl > 0 {
		now := i.now()
		claims.IssuedAt = jwt.NewNumericDate(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、ユーザーIDを返す。
// 空のトークンにはErrMissingToken、それ以外の失敗にはErrInvalidTokenを返す。
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.ttl > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
