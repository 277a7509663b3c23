package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"searchlib/pkg/models"
)

// Repo is the sqlite catalog.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) FindByName(ctx context.Context, kind models.EntityKind, name string) (models.Entity, bool, error) {
	table, _, err := entityTable(kind)
	if err != nil {
		return models.Entity{}, false, err
	}

	e := models.Entity{Kind: kind, Name: name}
	row := r.DB.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name)
	if err := row.Scan(&e.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entity{}, false, nil
		}
		return models.Entity{}, false, fmt.Errorf("find %s: %w", kind, err)
	}
	return e, true, nil
}

func (r *Repo) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

// InsertEntity returns the existing row when the name is already taken.
func (t *sqlTx) InsertEntity(ctx context.Context, kind models.EntityKind, name string) (models.Entity, error) {
	table, _, err := entityTable(kind)
	if err != nil {
		return models.Entity{}, err
	}

	e := models.Entity{Kind: kind, Name: name}
	row := t.tx.QueryRowContext(ctx, `
		INSERT INTO `+table+` (name) VALUES (?)
		ON CONFLICT(name) DO UPDATE SET name = excluded.name
		RETURNING id
	`, name)
	if err := row.Scan(&e.ID); err != nil {
		return models.Entity{}, fmt.Errorf("insert %s %q: %w", kind, name, err)
	}
	return e, nil
}

func (t *sqlTx) InsertRecord(ctx context.Context, rec *models.NormalizedRecord) (int64, bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO records (
		  title, publishing_year, url, description, cover, isbn, issn,
		  pages, udc, bbk, fingerprint, bibliographic_description
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		rec.Title, rec.PublishingYear, rec.URL, rec.Description, rec.Cover, rec.ISBN, rec.ISSN,
		rec.Pages, rec.UDC, rec.BBK, rec.Fingerprint, rec.BibliographicDescription,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert record %d: %w", rec.Fingerprint, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert record rows: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("insert record id: %w", err)
	}
	return id, true, nil
}

func (t *sqlTx) Link(ctx context.Context, recordID int64, e models.Entity) error {
	_, link, err := entityTable(e.Kind)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+link+` (record_id, entity_id) VALUES (?, ?)`,
		recordID, e.ID,
	); err != nil {
		return fmt.Errorf("link record %d to %s %q: %w", recordID, e.Kind, e.Name, err)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}
