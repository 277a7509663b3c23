package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env from the working directory when there is one. Variables
// already set in the environment win.
func LoadEnv() {
	_ = godotenv.Load()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".searchlib")
}

type IngestConfig struct {
	UploadDir       string
	FingerprintFile string
	Encodings       []string
	OnEncodingError string // skip | abort
	Arithmetic      string // exact | float64
	RoutesFile      string // optional YAML routing overrides
}

func LoadIngestConfig() IngestConfig {
	base := dataDir()

	var encodings []string
	for _, e := range strings.Split(getenv("CATALOG_ENCODINGS", "windows-1251,utf-8"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			encodings = append(encodings, e)
		}
	}

	return IngestConfig{
		UploadDir:       getenv("CATALOG_UPLOAD_DIR", filepath.Join(base, "uploads")),
		FingerprintFile: getenv("CATALOG_FINGERPRINT_FILE", filepath.Join(base, "fingerprints.txt")),
		Encodings:       encodings,
		OnEncodingError: strings.ToLower(getenv("CATALOG_ON_ENCODING_ERROR", "skip")),
		Arithmetic:      strings.ToLower(getenv("CATALOG_FINGERPRINT_ARITHMETIC", "exact")),
		RoutesFile:      getenv("CATALOG_ROUTES_FILE", ""),
	}
}

type ServerConfig struct {
	HTTPAddr   string
	EventsAddr string // TCP event feed; empty disables it
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:   getenv("CATALOG_HTTP_ADDR", ":8080"),
		EventsAddr: getenv("CATALOG_EVENTS_ADDR", ":9090"),
	}
}

type GrpcConfig struct {
	Addr string
}

func LoadGrpcConfig() GrpcConfig {
	return GrpcConfig{Addr: getenv("CATALOG_GRPC_ADDR", ":50051")}
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	// dev default (change for production)
	secret := getenv("CATALOG_JWT_SECRET", "dev-secret-change-me")
	issuer := getenv("CATALOG_JWT_ISSUER", "searchlib")

	// hours; fallback to 24h when unset or unparsable
	duration := 24 * time.Hour
	if h, err := strconv.Atoi(getenv("CATALOG_JWT_TTL_HOURS", "")); err == nil && h > 0 {
		duration = time.Duration(h) * time.Hour
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadLogConfig() LogConfig {
	return LogConfig{
		Level:  getenv("LOG_LEVEL", "info"),
		Format: getenv("LOG_FORMAT", "text"),
	}
}
