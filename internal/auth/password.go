package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskman/internal/model"
)

const (
	// DefaultBcryptCost はbcryptのコストの既定値。
	DefaultBcryptCost = 10

	// maxPasswordBytes はbcryptが扱える入力の上限バイト数。
	maxPasswordBytes = 72

	// PlaceholderPasswordHash はOAuth経由で作成したユーザーに設定するパスワードハッシュ。
	// bcrypt形式ではないため、どの平文もVerifyに成功しない。
	PlaceholderPasswordHash = "!oauth-account-without-password"

	// dummyPassword は照合対象がない場合の比較に使う平文。
	dummyPassword = "taskman-dummy-password"
)

// PasswordHasher はbcryptによるソルト付き一方向ハッシュを提供する。
// ハッシュ文字列にソルトとコストが埋め込まれるため、検証に追加の状態は不要。
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher はPasswordHasherを生成する。
// bcryptの許容範囲外のコストは既定値に置き換える。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash は平文パスワードをハッシュ化する。
// 空文字列と72バイトを超える入力は入力エラーとする。
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", model.NewInputError("Password must not be empty")
	}
	if len(plaintext) > maxPasswordBytes {
		return "", model.NewInputError("Password is too long")
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", model.NewInternalError(err)
	}
	return string(b), nil
}

// Verify は平文パスワードとハッシュが一致するかを返す。
// 不一致や不正なハッシュでもエラーにはせずfalseを返す。
// bcryptは先頭72バイトしか比較しないため、それを超える平文は常に不一致とする。
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	if plaintext == "" {
		return false
	}
	if len(plaintext) > maxPasswordBytes || hash == "" || hash == PlaceholderPasswordHash {
		h.CompareDummy(plaintext)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// CompareDummy は固定のダミーハッシュと比較し、実在ユーザーの照合と同程度の時間を消費する。
// ユーザーが存在しない場合の応答時間からメールアドレスの登録有無を推測されないようにする。
// 結果は常に不一致として扱う。
func (h *PasswordHasher) CompareDummy(plaintext string) {
	h.dummyOnce.Do(func() {
		// コストが範囲内のため生成に失敗しない
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
	})
	if len(plaintext) > maxPasswordBytes {
		plaintext = plaintext[:maxPasswordBytes]
	}
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}
