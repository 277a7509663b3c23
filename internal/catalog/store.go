// Package catalog stores normalized records and the named entities they
// reference, and serves catalog search.
package catalog

import (
	"context"
	"fmt"

	"searchlib/pkg/models"
)

// Store is the durable side of entity resolution.
type Store interface {
	// FindByName looks up an entity by exact, case-sensitive name.
	FindByName(ctx context.Context, kind models.EntityKind, name string) (models.Entity, bool, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx writes one batch. Nothing is visible to readers before Commit.
type Tx interface {
	InsertEntity(ctx context.Context, kind models.EntityKind, name string) (models.Entity, error)
	// InsertRecord reports inserted=false when a record with the same
	// fingerprint already exists.
	InsertRecord(ctx context.Context, rec *models.NormalizedRecord) (id int64, inserted bool, err error)
	Link(ctx context.Context, recordID int64, e models.Entity) error
	Commit() error
	Rollback() error
}

// Indexer rebuilds derived search data after a commit.
type Indexer interface {
	Reindex(ctx context.Context) error
}

var tables = map[models.EntityKind]string{
	models.KindAuthor:         "authors",
	models.KindPublisher:      "publishers",
	models.KindKeyword:        "keywords",
	models.KindDocumentType:   "document_types",
	models.KindSourceDatabase: "source_databases",
}

// entityTable returns the table for kind and its link table.
func entityTable(kind models.EntityKind) (table, link string, err error) {
	t, ok := tables[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown entity kind %q", kind)
	}
	return t, "record_" + t, nil
}
