package dialect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"searchlib/internal/marc"
	"searchlib/internal/marc/marctest"
)

func newRouter(t *testing.T) *Router {
	t.Helper()
	cands, err := marc.Candidates(marc.DefaultEncodings)
	require.NoError(t, err)
	return NewRouter(DefaultTable(), cands)
}

func writeRecords(t *testing.T, recs ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.iso")
	require.NoError(t, os.WriteFile(path, marctest.File(recs...), 0o644))
	return path
}

func rec(fields ...marctest.Field) []byte {
	return marctest.Record(charmap.Windows1251, marctest.Leader('m'), fields...)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name    string
		file    []byte
		source  string
		dialect Dialect
	}{
		{"801b rusmarc", rec(marctest.Data("801", "aRU", "bRUCONT")), "RUCONT", RUSMARC},
		{"040a marc21", rec(marctest.Data("040", "aИКО Юрайт")), "ИКО Юрайт", MARC21},
		{"801b wins over 040a", rec(marctest.Data("040", "aИКО Юрайт"), marctest.Data("801", "bИздательство Лань")), "Издательство Лань", RUSMARC},
		{"unknown collection", rec(marctest.Data("801", "bЧужая база")), "Чужая база", ""},
		{"no collection", rec(marctest.Data("200", "aБез источника")), "", ""},
	}
	r := newRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Route(writeRecords(t, tt.file))
			require.NoError(t, err)
			assert.Equal(t, "windows-1251", got.Encoding.Name)
			assert.Equal(t, tt.source, got.Source)
			assert.Equal(t, tt.dialect, got.Dialect)
			assert.Equal(t, tt.dialect != "", got.Routable())
			assert.Equal(t, "upload.iso", got.File)
		})
	}
}

func TestRouteScansPastRecordsWithoutSource(t *testing.T) {
	path := writeRecords(t,
		rec(marctest.Data("200", "aПервая")),
		rec(marctest.Data("801", "bRUCONT")),
	)
	got, err := newRouter(t).Route(path)
	require.NoError(t, err)
	assert.Equal(t, "RUCONT", got.Source)
}

func TestRouteUndeterminedEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.iso")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err := newRouter(t).Route(path)
	assert.ErrorIs(t, err, marc.ErrEncodingUndetermined)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  IPRbooks: marc21\n  RUCONT: b\n"), 0o644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, MARC21, tbl["IPRbooks"])
	assert.Equal(t, MARC21, tbl["RUCONT"])
	assert.Equal(t, RUSMARC, tbl["Издательство Лань"])

	def, err := LoadTable("")
	require.NoError(t, err)
	assert.Len(t, def, 3)
}

func TestLoadTableBadDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  X: dublin-core\n"), 0o644))
	_, err := LoadTable(path)
	assert.Error(t, err)
}
