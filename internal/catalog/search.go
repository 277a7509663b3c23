package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"searchlib/pkg/models"
)

// ErrBadQuery reports an inconsistent search request.
var ErrBadQuery = errors.New("bad query")

type Query struct {
	Q        string // free text over title, authors, keywords and publishers
	Title    string
	Author   string
	Keyword  string
	ISBN     string // matches isbn or issn
	YearFrom int    // 0 means unbounded
	YearTo   int
	Sources  []string // any-match
	Types    []string // any-match
	Limit    int
	Offset   int
}

const recordColumns = `r.id, r.title, r.publishing_year, r.url, r.description, r.cover,
	r.isbn, r.issn, r.pages, r.udc, r.bbk, r.fingerprint`

// Search returns one page of matching records and the total match count.
func (r *Repo) Search(ctx context.Context, q Query) ([]models.RecordView, int, error) {
	if q.YearFrom > 0 && q.YearTo > 0 && q.YearFrom > q.YearTo {
		return nil, 0, fmt.Errorf("%w: year_from %d after year_to %d", ErrBadQuery, q.YearFrom, q.YearTo)
	}

	where, args := buildWhere(q)

	var total int
	countSQL := `SELECT COUNT(*) FROM records r LEFT JOIN record_search s ON s.record_id = r.id` + where
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan: %w", err)
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := max(q.Offset, 0)

	listSQL := `SELECT ` + recordColumns + ` FROM records r LEFT JOIN record_search s ON s.record_id = r.id` +
		where + ` ORDER BY r.id LIMIT ? OFFSET ?`
	views, err := r.queryViews(ctx, listSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Get returns a record by id, or nil when there is none.
func (r *Repo) Get(ctx context.Context, id int64) (*models.RecordView, error) {
	views, err := r.queryViews(ctx, `SELECT `+recordColumns+` FROM records r WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

// All returns every record in id order.
func (r *Repo) All(ctx context.Context) ([]models.RecordView, error) {
	return r.queryViews(ctx, `SELECT `+recordColumns+` FROM records r ORDER BY r.id`)
}

// Facets lists the source databases and document types in use.
func (r *Repo) Facets(ctx context.Context) (models.Facets, error) {
	var f models.Facets
	var err error
	if f.SourceDatabases, err = r.listEntities(ctx, models.KindSourceDatabase); err != nil {
		return f, err
	}
	if f.DocumentTypes, err = r.listEntities(ctx, models.KindDocumentType); err != nil {
		return f, err
	}
	return f, nil
}

func (r *Repo) listEntities(ctx context.Context, kind models.EntityKind) ([]models.Entity, error) {
	table, _, err := entityTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []models.Entity{}
	for rows.Next() {
		e := models.Entity{Kind: kind}
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("list %s scan: %w", kind, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeArg(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

var nonDigits = regexp.MustCompile(`\D`)

// buildWhere matches text against record_search, whose columns are stored
// lower-cased because sqlite's LOWER only folds ASCII.
func buildWhere(q Query) (string, []any) {
	var where []string
	var args []any

	text := func(col, v string) {
		if strings.TrimSpace(v) == "" {
			return
		}
		where = append(where, "s."+col+` LIKE ? ESCAPE '\'`)
		args = append(args, likeArg(v))
	}
	text("body", q.Q)
	text("title", q.Title)
	text("authors", q.Author)
	text("keywords", q.Keyword)

	if v := strings.TrimSpace(q.ISBN); v != "" {
		digits := nonDigits.ReplaceAllString(v, "")
		where = append(where, "(r.isbn IN (?, ?) OR r.issn IN (?, ?))")
		args = append(args, v, digits, v, digits)
	}
	if q.YearFrom > 0 {
		where = append(where, "r.publishing_year >= ?")
		args = append(args, q.YearFrom)
	}
	if q.YearTo > 0 {
		where = append(where, "r.publishing_year <= ?")
		args = append(args, q.YearTo)
	}

	facet := func(kind models.EntityKind, names []string) {
		var vals []string
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				vals = append(vals, n)
			}
		}
		if len(vals) == 0 {
			return
		}
		table, link, _ := entityTable(kind)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s l JOIN %s e ON e.id = l.entity_id WHERE l.record_id = r.id AND e.name IN (%s))",
			link, table, placeholders(len(vals)),
		))
		for _, v := range vals {
			args = append(args, v)
		}
	}
	facet(models.KindSourceDatabase, q.Sources)
	facet(models.KindDocumentType, q.Types)

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (r *Repo) queryViews(ctx context.Context, query string, args ...any) ([]models.RecordView, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("record query: %w", err)
	}
	defer rows.Close()

	out := []models.RecordView{}
	for rows.Next() {
		var (
			v                       models.RecordView
			title, url, desc, cover sql.NullString
			isbn, issn, udc, bbk    sql.NullString
			year, pages             sql.NullInt64
		)
		if err := rows.Scan(
			&v.ID, &title, &year, &url, &desc, &cover,
			&isbn, &issn, &pages, &udc, &bbk, &v.Fingerprint,
		); err != nil {
			return nil, fmt.Errorf("record scan: %w", err)
		}
		v.Title = title.String
		v.URL = url.String
		v.Description = desc.String
		v.Cover = cover.String
		v.ISBN = isbn.String
		v.ISSN = issn.String
		v.UDC = udc.String
		v.BBK = bbk.String
		if year.Valid {
			v.PublishingYear = int(year.Int64)
		}
		if pages.Valid {
			v.Pages = int(pages.Int64)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	// release the connection before loading entity names
	rows.Close()

	if err := r.attachEntities(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachEntities fills the entity name lists of views, in chunks to stay
// under sqlite's bound parameter limit.
func (r *Repo) attachEntities(ctx context.Context, views []models.RecordView) error {
	const chunk = 500

	byID := make(map[int64]*models.RecordView, len(views))
	for i := range views {
		v := &views[i]
		v.Authors, v.Publishers, v.Keywords = []string{}, []string{}, []string{}
		v.DocumentTypes, v.SourceDatabases = []string{}, []string{}
		byID[v.ID] = v
	}

	for start := 0; start < len(views); start += chunk {
		end := min(start+chunk, len(views))
		ids := make([]any, 0, end-start)
		for _, v := range views[start:end] {
			ids = append(ids, v.ID)
		}

		for _, kind := range models.EntityKinds {
			table, link, _ := entityTable(kind)
			rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(
				`SELECT l.record_id, e.name FROM %s l JOIN %s e ON e.id = l.entity_id
				 WHERE l.record_id IN (%s) ORDER BY l.record_id, e.name`,
				link, table, placeholders(len(ids)),
			), ids...)
			if err != nil {
				return fmt.Errorf("load %s: %w", kind, err)
			}
			for rows.Next() {
				var (
					id   int64
					name string
				)
				if err := rows.Scan(&id, &name); err != nil {
					rows.Close()
					return fmt.Errorf("load %s scan: %w", kind, err)
				}
				if v := byID[id]; v != nil {
					appendName(v, kind, name)
				}
			}
			err = rows.Err()
			rows.Close()
			if err != nil {
				return fmt.Errorf("load %s: %w", kind, err)
			}
		}
	}
	return nil
}

func appendName(v *models.RecordView, kind models.EntityKind, name string) {
	switch kind {
	case models.KindAuthor:
		v.Authors = append(v.Authors, name)
	case models.KindPublisher:
		v.Publishers = append(v.Publishers, name)
	case models.KindKeyword:
		v.Keywords = append(v.Keywords, name)
	case models.KindDocumentType:
		v.DocumentTypes = append(v.DocumentTypes, name)
	case models.KindSourceDatabase:
		v.SourceDatabases = append(v.SourceDatabases, name)
	}
}
