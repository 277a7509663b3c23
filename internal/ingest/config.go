package ingest

import (
	"fmt"
	"log/slog"

	"searchlib/internal/catalog"
	"searchlib/internal/dialect"
	"searchlib/internal/fingerprint"
	"searchlib/internal/marc"
	"searchlib/pkg/utils"
)

// NewRouter builds the dialect router from cfg's encodings and routes file.
func NewRouter(cfg utils.IngestConfig) (*dialect.Router, error) {
	names := cfg.Encodings
	if len(names) == 0 {
		names = marc.DefaultEncodings
	}
	cands, err := marc.Candidates(names)
	if err != nil {
		return nil, err
	}
	table, err := dialect.LoadTable(cfg.RoutesFile)
	if err != nil {
		return nil, err
	}
	return dialect.NewRouter(table, cands), nil
}

// FromConfig wires an Ingestor over repo.
func FromConfig(cfg utils.IngestConfig, repo *catalog.Repo, notifier Notifier, log *slog.Logger) (*Ingestor, error) {
	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	hasher, err := fingerprint.NewHasher(fingerprint.Arithmetic(cfg.Arithmetic))
	if err != nil {
		return nil, err
	}
	policy, err := ParsePolicy(cfg.OnEncodingError)
	if err != nil {
		return nil, err
	}
	if cfg.UploadDir == "" || cfg.FingerprintFile == "" {
		return nil, fmt.Errorf("upload dir and fingerprint file are required")
	}

	return New(router, hasher, repo, repo, Options{
		UploadDir:       cfg.UploadDir,
		FingerprintFile: cfg.FingerprintFile,
		OnEncodingError: policy,
		Notifier:        notifier,
		Logger:          log,
	}), nil
}
