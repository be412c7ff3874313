package util

import (
	"crypto/rand"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/ssh"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

//go:embed version.txt
var embeddedVersion string

func LogSession(logger *zap.Logger, s ssh.Session) {
	fields := []zap.Field{
		zap.String("user", s.User()),
		zap.String("remote", s.RemoteAddr().String()),
	}
	if pk := s.PublicKey(); pk != nil {
		fields = append(fields, zap.String("fingerprint", gossh.FingerprintSHA256(pk)))
	}
	logger.Info("opened a new ssh session", fields...)
}

// HashToken returns the hex sha256 of a secret token. Only hashes of reset
// tokens are ever stored.
func HashToken(token string) string {
	h := sha256.New()
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// RandomToken returns a hex string of n random bytes.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

// NormalizeInput trims text typed into a single-line form field.
func NormalizeInput(text string) string {
	normalized := strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(normalized)
}

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(NormalizeInput(email))
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05"
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}
