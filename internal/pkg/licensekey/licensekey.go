package licensekey

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/smartapplypro/backend/internal/pkg/env"
)

// Alphabet excludes visually confusable characters (0/O, 1/I).
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	minBodyLength = 10
	maxBodyLength = 50
)

var bodyPattern = regexp.MustCompile(`^[A-Z0-9\-]+$`)

// Config is an immutable value describing the key shape. It is passed into
// every codec call; there is no package-level mutable state.
type Config struct {
	Prefix     string
	BodyLength int
}

// ConfigFromEnv builds the default key configuration.
func ConfigFromEnv() Config {
	length, err := strconv.Atoi(env.GetEnv("LICENSE_KEY_LENGTH", "20"))
	if err != nil || length <= 0 {
		length = 20
	}
	return Config{
		Prefix:     env.GetEnv("LICENSE_KEY_PREFIX", "SMARTAPPLY-PRO-"),
		BodyLength: length,
	}
}

// Generate produces a key of the form prefix + body, where the body consists
// of BodyLength random characters with a dash every 4 characters for
// readability. The random source is crypto/rand; keys must not be predictable.
func Generate(cfg Config) (string, error) {
	var b strings.Builder
	b.WriteString(cfg.Prefix)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < cfg.BodyLength; i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}

// GenerateBatch returns up to count unique keys. Generation does not guarantee
// distinctness by construction, so duplicates are retried up to 10*count
// attempts; the result may be shorter than count but never longer.
func GenerateBatch(cfg Config, count int) ([]string, error) {
	keys := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	maxAttempts := count * 10
	for attempts := 0; len(keys) < count && attempts < maxAttempts; attempts++ {
		key, err := Generate(cfg)
		if err != nil {
			return keys, err
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys, nil
}

// ValidateFormat reports whether key has the expected shape: the configured
// prefix followed by uppercase letters, digits and dashes, with a remainder
// length between 10 and 50 (dashes included). This is a cheap shape check
// only; it says nothing about whether the key exists or is active.
func ValidateFormat(cfg Config, key string) bool {
	if key == "" || !strings.HasPrefix(key, cfg.Prefix) {
		return false
	}

	body := key[len(cfg.Prefix):]
	if len(body) < minBodyLength || len(body) > maxBodyLength {
		return false
	}

	return bodyPattern.MatchString(body)
}
