package grpcserver

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"searchlib/internal/auth"
	"searchlib/internal/catalog"
	"searchlib/internal/dialect"
	"searchlib/internal/fingerprint"
	"searchlib/internal/ingest"
	"searchlib/internal/marc"
	"searchlib/internal/marc/marctest"
	"searchlib/pkg/database"
)

type fixture struct {
	client *Client
	dir    string
	users  *auth.Repo
	tokens auth.TokenService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	db, err := database.Open(database.Config{Path: filepath.Join(root, "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	cands, err := marc.Candidates(marc.DefaultEncodings)
	require.NoError(t, err)
	hasher, err := fingerprint.NewHasher(fingerprint.Exact)
	require.NoError(t, err)

	repo := catalog.NewRepo(db)
	dir := filepath.Join(root, "uploads")
	in := ingest.New(dialect.NewRouter(dialect.DefaultTable(), cands), hasher, repo, repo, ingest.Options{
		UploadDir:       dir,
		FingerprintFile: filepath.Join(root, "fp.txt"),
	})

	users := auth.NewRepo(db)
	tokens := auth.TokenService{Secret: []byte("k"), Issuer: "test", Duration: time.Hour}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(
		RequireRoleFor(tokens, users, []string{"RunBatch"}, auth.RoleAdministrator, auth.RoleModerator),
	))
	Register(srv, NewServer(repo, in))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, os.MkdirAll(dir, 0o755))
	return &fixture{client: NewClient(conn), dir: dir, users: users, tokens: tokens}
}

func (f *fixture) token(t *testing.T, role auth.Role) string {
	t.Helper()
	u := auth.User{ID: "u-" + string(role), Username: string(role), Email: string(role) + "@example.org", PasswordHash: "x", Role: role}
	require.NoError(t, f.users.CreateUser(t.Context(), u))
	created, err := f.users.GetByID(t.Context(), u.ID)
	require.NoError(t, err)
	tok, _, err := f.tokens.Sign(created)
	require.NoError(t, err)
	return tok
}

func TestRunBatchThenLookup(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "rucont.iso"), marctest.Record(charmap.Windows1251, marctest.Leader('m'),
		marctest.Data("200", "aВойна и мир"),
		marctest.Data("210", "d1869"),
		marctest.Data("801", "bRUCONT"),
	), 0o644))

	_, err := f.client.RunBatch(ctx, &RunBatchRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+f.token(t, auth.RoleModerator))
	run, err := f.client.RunBatch(authed, &RunBatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Summary.RecordsIngested)

	found, err := f.client.SearchRecords(ctx, &SearchRequest{Title: "ВОЙНА"})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, int64(16387964441), found.Items[0].Fingerprint)

	got, err := f.client.GetRecord(ctx, &GetRecordRequest{ID: found.Items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "Война и мир", got.Record.Title)
	assert.Equal(t, []string{"RUCONT"}, got.Record.SourceDatabases)
}

func TestErrorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	_, err := f.client.GetRecord(ctx, &GetRecordRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.GetRecord(ctx, &GetRecordRequest{ID: 5})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.client.SearchRecords(ctx, &SearchRequest{YearFrom: 2000, YearTo: 1000})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
