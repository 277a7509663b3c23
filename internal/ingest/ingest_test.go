package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"searchlib/internal/catalog"
	"searchlib/internal/dialect"
	"searchlib/internal/fingerprint"
	"searchlib/internal/marc"
	"searchlib/internal/marc/marctest"
	"searchlib/pkg/database"
	"searchlib/pkg/models"
	"searchlib/pkg/utils"
)

type recorder struct {
	mu     sync.Mutex
	events []models.BatchEvent
}

func (r *recorder) Publish(ev models.BatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type env struct {
	dir    string
	fpFile string
	repo   *catalog.Repo
	events *recorder
	in     *Ingestor
}

func newEnv(t *testing.T, encodings []string, policy Policy) *env {
	t.Helper()
	root := t.TempDir()

	db, err := database.Open(database.Config{Path: filepath.Join(root, "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	cands, err := marc.Candidates(encodings)
	require.NoError(t, err)
	hasher, err := fingerprint.NewHasher(fingerprint.Exact)
	require.NoError(t, err)

	e := &env{
		dir:    filepath.Join(root, "uploads"),
		fpFile: filepath.Join(root, "fingerprints.txt"),
		repo:   catalog.NewRepo(db),
		events: &recorder{},
	}
	require.NoError(t, os.MkdirAll(e.dir, 0o755))
	e.in = New(dialect.NewRouter(dialect.DefaultTable(), cands), hasher, e.repo, e.repo, Options{
		UploadDir:       e.dir,
		FingerprintFile: e.fpFile,
		OnEncodingError: policy,
		Notifier:        e.events,
	})
	return e
}

func (e *env) put(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, name), data, 0o644))
}

func (e *env) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.repo.DB.QueryRow(query, args...).Scan(&n))
	return n
}

func (e *env) assertUploadsEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func warAndPeace() []byte {
	return marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("200", "aВойна и мир"),
		marctest.Data("210", "d1869"),
		marctest.Data("801", "aRU", "bRUCONT"),
	)
}

func rucontRecord(title, surname string) []byte {
	return marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("200", "a"+title),
		marctest.Data("700", "a"+surname, "bИ.И."),
		marctest.Data("801", "bRUCONT"),
	)
}

func TestConcreteRucontRecord(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	e.put(t, "rucont.iso", warAndPeace())

	sum, err := e.in.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.FilesProcessed)
	assert.Equal(t, 1, sum.RecordsIngested)
	require.Len(t, sum.Files, 1)
	assert.Equal(t, "windows-1251", sum.Files[0].Encoding)
	assert.Equal(t, "rusmarc", sum.Files[0].Dialect)

	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM records WHERE fingerprint = ?`, int64(16387964441)))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM source_databases WHERE name = 'RUCONT'`))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM document_types WHERE name = 'Монографический ресурс'`))
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM record_search WHERE title = 'война и мир'`))

	b, err := os.ReadFile(e.fpFile)
	require.NoError(t, err)
	assert.Equal(t, "16387964441\n", string(b))
	e.assertUploadsEmpty(t)
}

func TestSecondUploadIsAllDuplicates(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	ctx := context.Background()
	file := marctest.File(warAndPeace(), rucontRecord("Анна Каренина", "Толстой"))

	e.put(t, "first.iso", file)
	first, err := e.in.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.RecordsIngested)

	before, err := fingerprint.Load(e.fpFile)
	require.NoError(t, err)

	e.put(t, "again.iso", file)
	second, err := e.in.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.RecordsIngested)
	assert.Equal(t, 2, second.Duplicates)

	after, err := fingerprint.Load(e.fpFile)
	require.NoError(t, err)
	assert.Equal(t, before.Len(), after.Len())
	assert.Equal(t, 2, e.count(t, `SELECT COUNT(*) FROM records`))
}

func TestDuplicateWithinOneBatch(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	e.put(t, "a.iso", warAndPeace())
	e.put(t, "b.iso", warAndPeace())

	sum, err := e.in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RecordsIngested)
	assert.Equal(t, 1, sum.Duplicates)
}

func TestAuthorSharedAcrossFilesAndDialects(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	e.put(t, "a.iso", rucontRecord("Первая книга", "Иванов"))
	e.put(t, "b.iso", marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("040", "aИКО Юрайт"),
		marctest.Data("100", "aИванов И.И."),
		marctest.Data("245", "aВторая книга"),
	))

	sum, err := e.in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.RecordsIngested)
	assert.Equal(t, 1, e.count(t, `SELECT COUNT(*) FROM authors WHERE name = ?`, "Иванов И.И."))
	assert.Equal(t, 2, e.count(t, `SELECT COUNT(*) FROM record_authors`))
	assert.Equal(t, 2, e.count(t, `SELECT COUNT(*) FROM source_databases`))
}

func TestUnroutableFilesSkippedAndRemoved(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	e.put(t, "known.iso", warAndPeace())
	e.put(t, "unknown1.iso", marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("200", "aЧужая"), marctest.Data("801", "bДругая библиотека")))
	e.put(t, "nosource.iso", marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("200", "aБез источника")))

	sum, err := e.in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FilesProcessed)
	assert.Equal(t, 2, sum.FilesSkipped)
	assert.Equal(t, 1, sum.RecordsIngested)
	e.assertUploadsEmpty(t)
}

func TestMalformedRecordKeepsEarlierOnes(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	e.put(t, "broken.iso", marctest.File(warAndPeace(), []byte("00099nam  truncated")))

	sum, err := e.in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FilesFailed)
	assert.Equal(t, 1, sum.RecordsIngested)
	require.Len(t, sum.Files, 1)
	assert.Equal(t, models.FileFailed, sum.Files[0].Status)
	assert.Contains(t, sum.Files[0].Error, ErrMalformedRecord.Error())
	e.assertUploadsEmpty(t)
}

func TestEncodingUndeterminedPolicy(t *testing.T) {
	mixedUploads := func(e *env, t *testing.T) {
		// valid utf-8 with a routable source, then a cp1251 file utf-8 cannot decode
		e.put(t, "a.iso", marctest.Record(nil, marctest.Leader('m'),
			marctest.Data("200", "aГод"), marctest.Data("801", "bRUCONT")))
		e.put(t, "b.iso", warAndPeace())
	}

	t.Run("skip", func(t *testing.T) {
		e := newEnv(t, []string{"utf-8"}, SkipFile)
		mixedUploads(e, t)

		sum, err := e.in.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sum.FilesProcessed)
		assert.Equal(t, 1, sum.FilesFailed)
		assert.Equal(t, 1, sum.RecordsIngested)
		e.assertUploadsEmpty(t)
	})

	t.Run("abort", func(t *testing.T) {
		e := newEnv(t, []string{"utf-8"}, AbortBatch)
		mixedUploads(e, t)

		_, err := e.in.Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEncodingUndetermined)

		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "b.iso", fe.File)

		assert.Equal(t, 0, e.count(t, `SELECT COUNT(*) FROM records`))
		ix, lerr := fingerprint.Load(e.fpFile)
		require.NoError(t, lerr)
		assert.Zero(t, ix.Len())
		e.assertUploadsEmpty(t)
	})
}

type failingStore struct{}

func (failingStore) FindByName(context.Context, models.EntityKind, string) (models.Entity, bool, error) {
	return models.Entity{}, false, nil
}

func (failingStore) Begin(context.Context) (catalog.Tx, error) {
	return nil, errors.New("disk full")
}

func TestCommitFailureRestoresIndex(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	fpFile := filepath.Join(root, "fp.txt")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(fpFile, []byte("97\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.iso"), warAndPeace(), 0o644))

	cands, err := marc.Candidates(marc.DefaultEncodings)
	require.NoError(t, err)
	hasher, err := fingerprint.NewHasher("")
	require.NoError(t, err)
	in := New(dialect.NewRouter(dialect.DefaultTable(), cands), hasher, failingStore{}, nil, Options{
		UploadDir:       dir,
		FingerprintFile: fpFile,
	})

	_, err = in.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	b, err := os.ReadFile(fpFile)
	require.NoError(t, err)
	assert.Equal(t, "97\n", string(b))
}

func TestEvents(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)
	e.put(t, "a.iso", warAndPeace())
	e.put(t, "b.iso", marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("801", "bНикто")))

	_, err := e.in.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.EventType{
		models.EventBatchStarted,
		models.EventFileFinished,
		models.EventFileSkipped,
		models.EventBatchFinished,
	}, e.events.types())

	last := e.events.events[len(e.events.events)-1]
	require.NotNil(t, last.Summary)
	assert.Equal(t, 1, last.Summary.RecordsIngested)
	assert.NotEmpty(t, last.BatchID)
}

func TestRunWithPlacesFiles(t *testing.T) {
	e := newEnv(t, marc.DefaultEncodings, SkipFile)

	sum, err := e.in.RunWith(context.Background(), func(dir string) error {
		return os.WriteFile(filepath.Join(dir, "upload.iso"), warAndPeace(), 0o644)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.RecordsIngested)
	e.assertUploadsEmpty(t)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, SkipFile, p)

	p, err = ParsePolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, AbortBatch, p)

	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	root := t.TempDir()
	db, err := database.Open(database.Config{Path: filepath.Join(root, "c.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := catalog.NewRepo(db)

	routes := filepath.Join(root, "routes.yaml")
	require.NoError(t, os.WriteFile(routes, []byte("routes:\n  \"IPRbooks\": marc21\n"), 0o644))

	cfg := utils.IngestConfig{
		UploadDir:       filepath.Join(root, "up"),
		FingerprintFile: filepath.Join(root, "fp.txt"),
		Encodings:       []string{"cp1251", "utf-8"},
		OnEncodingError: "abort",
		Arithmetic:      "float64",
		RoutesFile:      routes,
	}
	in, err := FromConfig(cfg, repo, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, AbortBatch, in.opts.OnEncodingError)
	assert.Equal(t, fingerprint.Float64, in.hasher.Arithmetic())
	d, ok := in.router.Table.Lookup("IPRbooks")
	assert.True(t, ok)
	assert.Equal(t, dialect.MARC21, d)
	assert.Nil(t, in.opts.Notifier)

	cfg.Arithmetic = "bignum"
	_, err = FromConfig(cfg, repo, nil, nil)
	assert.Error(t, err)
}
