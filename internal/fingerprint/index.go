package fingerprint

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Index is the set of fingerprints of every record ever ingested, backed by
// a text file with one integer per line. It is loaded fully, mutated in
// memory and rewritten whole; callers serialize access to the file.
type Index struct {
	path string
	set  map[int64]struct{}
}

// Load reads the index at path. A missing file is an empty index.
func Load(path string) (*Index, error) {
	ix := &Index{path: path, set: make(map[int64]struct{})}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ix, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open fingerprint index: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		fp, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fingerprint index %s line %d: %w", path, line, err)
		}
		ix.set[fp] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fingerprint index: %w", err)
	}
	return ix, nil
}

// Path returns the backing file.
func (ix *Index) Path() string {
	return ix.path
}

// Contains reports whether fp was already ingested.
func (ix *Index) Contains(fp int64) bool {
	_, ok := ix.set[fp]
	return ok
}

// Add inserts fp and reports whether it was new.
func (ix *Index) Add(fp int64) bool {
	if ix.Contains(fp) {
		return false
	}
	ix.set[fp] = struct{}{}
	return true
}

// Len returns the number of fingerprints.
func (ix *Index) Len() int {
	return len(ix.set)
}

// Clone returns an independent copy bound to the same file.
func (ix *Index) Clone() *Index {
	cp := &Index{path: ix.path, set: make(map[int64]struct{}, len(ix.set))}
	for fp := range ix.set {
		cp.set[fp] = struct{}{}
	}
	return cp
}

// Save rewrites the backing file atomically: a temp file in the same
// directory is written, synced and renamed over the old one.
func (ix *Index) Save() error {
	dir := filepath.Dir(ix.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fingerprints-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	fps := make([]int64, 0, len(ix.set))
	for fp := range ix.set {
		fps = append(fps, fp)
	}
	slices.Sort(fps)

	w := bufio.NewWriter(tmp)
	for _, fp := range fps {
		w.WriteString(strconv.FormatInt(fp, 10))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), ix.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}
