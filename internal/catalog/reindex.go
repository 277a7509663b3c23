package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Reindex rebuilds record_search from the stored records.
func (r *Repo) Reindex(ctx context.Context) error {
	views, err := r.All(ctx)
	if err != nil {
		return fmt.Errorf("reindex load: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_search`); err != nil {
		return fmt.Errorf("clear search: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO record_search (record_id, title, authors, keywords, publishers, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, v := range views {
		title := strings.ToLower(v.Title)
		authors := strings.ToLower(strings.Join(v.Authors, "\n"))
		keywords := strings.ToLower(strings.Join(v.Keywords, "\n"))
		publishers := strings.ToLower(strings.Join(v.Publishers, "\n"))
		body := strings.Join([]string{title, authors, keywords, publishers}, "\n")

		if _, err := stmt.ExecContext(ctx, v.ID, title, authors, keywords, publishers, body); err != nil {
			return fmt.Errorf("index record %d: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reindex: %w", err)
	}
	return nil
}
