package utils

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadIngestConfig(t *testing.T) {
	t.Setenv("CATALOG_UPLOAD_DIR", "/srv/uploads")
	t.Setenv("CATALOG_ENCODINGS", " utf-8 , ,koi8-r")
	t.Setenv("CATALOG_ON_ENCODING_ERROR", "ABORT")
	t.Setenv("CATALOG_FINGERPRINT_ARITHMETIC", "")

	cfg := LoadIngestConfig()

	assert.Equal(t, "/srv/uploads", cfg.UploadDir)
	assert.Equal(t, []string{"utf-8", "koi8-r"}, cfg.Encodings)
	assert.Equal(t, "abort", cfg.OnEncodingError)
	assert.Equal(t, "exact", cfg.Arithmetic)
	assert.NotEmpty(t, cfg.FingerprintFile)
}

func TestLoadAuthConfigTTL(t *testing.T) {
	t.Setenv("CATALOG_JWT_TTL_HOURS", "6")
	assert.Equal(t, 6*time.Hour, LoadAuthConfig().JWTDuration)

	t.Setenv("CATALOG_JWT_TTL_HOURS", "soon")
	assert.Equal(t, 24*time.Hour, LoadAuthConfig().JWTDuration)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
