// Package ingest runs ingestion batches over an upload directory: it routes
// each file to a dialect, extracts and fingerprints its records, stages the
// new ones with their entities and commits the batch in one transaction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"searchlib/internal/catalog"
	"searchlib/internal/dialect"
	"searchlib/internal/extract"
	"searchlib/internal/fingerprint"
	"searchlib/internal/marc"
	"searchlib/pkg/models"
)

// Notifier receives batch progress events. Publish must not block.
type Notifier interface {
	Publish(ev models.BatchEvent)
}

type Options struct {
	UploadDir       string
	FingerprintFile string
	OnEncodingError Policy
	Notifier        Notifier     // optional
	Logger          *slog.Logger // defaults to slog.Default()
}

// Ingestor runs batches one at a time. Concurrent calls wait for the running
// batch to finish, since the fingerprint file and the catalog are single
// writer.
type Ingestor struct {
	router  *dialect.Router
	hasher  *fingerprint.Hasher
	store   catalog.Store
	indexer catalog.Indexer
	opts    Options
	log     *slog.Logger

	mu sync.Mutex
}

func New(router *dialect.Router, hasher *fingerprint.Hasher, store catalog.Store, indexer catalog.Indexer, opts Options) *Ingestor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnEncodingError == "" {
		opts.OnEncodingError = SkipFile
	}
	return &Ingestor{
		router:  router,
		hasher:  hasher,
		store:   store,
		indexer: indexer,
		opts:    opts,
		log:     opts.Logger,
	}
}

// UploadDir is the directory Run ingests.
func (in *Ingestor) UploadDir() string {
	return in.opts.UploadDir
}

// Run ingests every file in the upload directory.
func (in *Ingestor) Run(ctx context.Context) (models.BatchSummary, error) {
	return in.RunWith(ctx, nil)
}

// RunWith calls place to put files into the upload directory and then runs a
// batch over it, holding the batch lock for both so no other batch sees a
// partial upload.
func (in *Ingestor) RunWith(ctx context.Context, place func(dir string) error) (models.BatchSummary, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	dir := in.opts.UploadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.BatchSummary{}, fmt.Errorf("upload dir: %w", err)
	}
	if place != nil {
		if err := place(dir); err != nil {
			clearDir(dir, in.log)
			return models.BatchSummary{}, fmt.Errorf("place uploads: %w", err)
		}
	}
	return in.run(ctx, dir)
}

func (in *Ingestor) run(ctx context.Context, dir string) (sum models.BatchSummary, err error) {
	sum = models.BatchSummary{BatchID: uuid.NewString(), StartedAt: time.Now().UTC(), Files: []models.FileResult{}}
	log := in.log.With("batch_id", sum.BatchID)

	in.publish(models.BatchEvent{Type: models.EventBatchStarted, BatchID: sum.BatchID})
	defer func() {
		clearDir(dir, log)
		sum.FinishedAt = time.Now().UTC()
		ev := models.BatchEvent{Type: models.EventBatchFinished, BatchID: sum.BatchID, Summary: &sum}
		if err != nil {
			ev.Error = err.Error()
		}
		in.publish(ev)
	}()

	files, err := listFiles(dir)
	if err != nil {
		return sum, err
	}

	index, err := fingerprint.Load(in.opts.FingerprintFile)
	if err != nil {
		return sum, err
	}
	snapshot := index.Clone()
	restore := func() {
		if rerr := snapshot.Save(); rerr != nil {
			log.Error("restore fingerprint index", "path", snapshot.Path(), "err", rerr)
		}
	}

	uow := catalog.NewUnitOfWork(in.store)
	log.Info("batch started", "dir", dir, "files", len(files), "known_fingerprints", index.Len())

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			restore()
			return sum, err
		}
		res, ferr := in.ingestFile(ctx, path, index, uow, log)
		sum.Files = append(sum.Files, res)
		sum.Duplicates += res.Duplicates

		var fe *FileError
		switch {
		case ferr == nil && res.Status == models.FileSkipped:
			sum.FilesSkipped++
			in.publish(models.BatchEvent{Type: models.EventFileSkipped, BatchID: sum.BatchID, File: &res})
		case ferr == nil:
			sum.FilesProcessed++
			in.publish(models.BatchEvent{Type: models.EventFileFinished, BatchID: sum.BatchID, File: &res})
		case errors.As(ferr, &fe):
			sum.FilesFailed++
			log.Warn("file failed", "file", fe.File, "reason", fe.Reason, "err", fe.Err)
			in.publish(models.BatchEvent{Type: models.EventFileFailed, BatchID: sum.BatchID, File: &res, Error: ferr.Error()})
			if errors.Is(ferr, ErrEncodingUndetermined) && in.opts.OnEncodingError == AbortBatch {
				restore()
				return sum, fmt.Errorf("batch aborted: %w", ferr)
			}
		default:
			sum.FilesFailed++
			restore()
			return sum, ferr
		}
	}

	res, err := uow.Commit(ctx)
	if err != nil {
		restore()
		return sum, err
	}
	sum.RecordsIngested = res.Records
	sum.Duplicates += res.Conflicts

	if in.indexer != nil {
		if err := in.indexer.Reindex(ctx); err != nil {
			return sum, fmt.Errorf("reindex: %w", err)
		}
	}

	log.Info("batch finished",
		"processed", sum.FilesProcessed,
		"skipped", sum.FilesSkipped,
		"failed", sum.FilesFailed,
		"inserted", sum.RecordsIngested,
		"duplicates", sum.Duplicates,
		"new_entities", res.Entities,
	)
	return sum, nil
}

// ingestFile stages the new records of one file. A *FileError means only this
// file failed; any other error is fatal to the batch.
func (in *Ingestor) ingestFile(ctx context.Context, path string, index *fingerprint.Index, uow *catalog.UnitOfWork, log *slog.Logger) (models.FileResult, error) {
	res := models.FileResult{File: filepath.Base(path), Status: models.FileFailed}

	route, err := in.router.Route(path)
	if err != nil {
		ferr := fileError(res.File, err)
		res.Error = ferr.Error()
		return res, ferr
	}
	res.Encoding = route.Encoding.Name
	res.Source = route.Source
	log = log.With("file", res.File, "encoding", route.Encoding.Name, "source", route.Source)

	if !route.Routable() {
		res.Status = models.FileSkipped
		res.Error = ErrDialectUnroutable.Error()
		log.Info("file skipped", "reason", ErrDialectUnroutable)
		return res, nil
	}
	res.Dialect = string(route.Dialect)

	ex, err := extract.For(route.Dialect)
	if err != nil {
		return res, err
	}

	f, err := os.Open(path)
	if err != nil {
		ferr := &FileError{File: res.File, Reason: "unreadable", Err: err}
		res.Error = ferr.Error()
		return res, ferr
	}
	defer f.Close()

	rd := marc.NewReader(f, route.Encoding.Encoding)
	for rd.Next() {
		x := ex.Extract(rd.Record(), route.Source)
		fp := in.hasher.Sum(x.Key())
		if index.Contains(fp) {
			res.Duplicates++
			continue
		}
		x.Record.Fingerprint = fp

		handles, err := resolve(ctx, uow, &x)
		if err != nil {
			return res, err
		}
		uow.Stage(x.Record, handles)
		index.Add(fp)
		res.Records++
	}

	// Records staged before a malformed one stay staged, so the index must
	// be saved either way.
	if res.Records > 0 {
		if err := index.Save(); err != nil {
			return res, fmt.Errorf("save fingerprint index: %w", err)
		}
	}

	if err := rd.Err(); err != nil {
		ferr := &FileError{File: res.File, Reason: "malformed record", Err: fmt.Errorf("%w: %w", ErrMalformedRecord, err)}
		res.Error = ferr.Error()
		return res, ferr
	}

	res.Status = models.FileProcessed
	log.Info("file ingested", "dialect", route.Dialect, "inserted", res.Records, "duplicates", res.Duplicates)
	return res, nil
}

func resolve(ctx context.Context, uow *catalog.UnitOfWork, x *extract.Extraction) ([]*catalog.Handle, error) {
	names := map[models.EntityKind][]string{
		models.KindSourceDatabase: {x.Source},
		models.KindAuthor:         x.Authors,
		models.KindKeyword:        x.Keywords,
	}
	if x.DocumentType != "" {
		names[models.KindDocumentType] = []string{x.DocumentType}
	}
	if x.Publisher != "" {
		names[models.KindPublisher] = []string{x.Publisher}
	}

	var out []*catalog.Handle
	for _, kind := range models.EntityKinds {
		for _, name := range names[kind] {
			h, err := uow.Resolve(ctx, kind, name)
			if err != nil {
				return nil, err
			}
			out = append(out, h)
		}
	}
	return out, nil
}

func fileError(file string, err error) *FileError {
	switch {
	case errors.Is(err, ErrEncodingUndetermined):
		return &FileError{File: file, Reason: "encoding undetermined", Err: err}
	case errors.Is(err, marc.ErrMalformed), errors.Is(err, marc.ErrDecode):
		return &FileError{File: file, Reason: "malformed record", Err: fmt.Errorf("%w: %w", ErrMalformedRecord, err)}
	default:
		return &FileError{File: file, Reason: "unreadable", Err: err}
	}
}

func (in *Ingestor) publish(ev models.BatchEvent) {
	if in.opts.Notifier == nil {
		return
	}
	ev.Time = time.Now().UTC()
	in.opts.Notifier.Publish(ev)
}

// listFiles returns the regular files directly under dir, sorted by name.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// clearDir removes everything under dir but keeps dir itself.
func clearDir(dir string, log *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error("cleanup upload dir", "dir", dir, "err", err)
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			log.Error("cleanup upload dir", "file", e.Name(), "err", err)
		}
	}
}
