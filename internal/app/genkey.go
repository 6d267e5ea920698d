package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// secretKeyBytes は生成する署名鍵のバイト数。16進で64文字になる。
const secretKeyBytes = 32

// generateSecretKey はランダムな署名鍵を16進文字列で返す。
func generateSecretKey() (string, error) {
	b := make([]byte, secretKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// runGenKey は新しいSECRET_KEYを.envファイルに書き込む。
// 既存ファイルの他の変数は保持する。鍵の値はログに出力しない。
func runGenKey(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		env = map[string]string{}
	}

	key, err := generateSecretKey()
	if err != nil {
		return err
	}
	env["SECRET_KEY"] = key

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write env file %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict env file permissions: %w", err)
	}
	return nil
}
