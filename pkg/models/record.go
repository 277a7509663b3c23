package models

// NormalizedRecord is the normalized, internal form of one bibliographic
// entry. Both record dialects are mapped into this structure first, then the
// catalog writes it from this representation.
type NormalizedRecord struct {
	Title                    *string `json:"title,omitempty"`
	PublishingYear           *int    `json:"publishing_year,omitempty"`
	URL                      *string `json:"url,omitempty"`
	Description              *string `json:"description,omitempty"`
	Cover                    *string `json:"cover,omitempty"`
	ISBN                     *string `json:"isbn,omitempty"`
	ISSN                     *string `json:"issn,omitempty"`
	Pages                    *int    `json:"pages,omitempty"`
	UDC                      *string `json:"udc,omitempty"`
	BBK                      *string `json:"bbk,omitempty"`
	Fingerprint              int64   `json:"fingerprint"`
	BibliographicDescription *string `json:"bibliographic_description,omitempty"` // reserved, always nil for now
}

// EntityKind names one of the catalog entity tables keyed by name.
type EntityKind string

const (
	KindAuthor         EntityKind = "author"
	KindPublisher      EntityKind = "publisher"
	KindKeyword        EntityKind = "keyword"
	KindDocumentType   EntityKind = "document_type"
	KindSourceDatabase EntityKind = "source_database"
)

// EntityKinds lists every kind in link order.
var EntityKinds = []EntityKind{
	KindSourceDatabase,
	KindDocumentType,
	KindAuthor,
	KindPublisher,
	KindKeyword,
}

// Entity is a catalog row identified by its exact name. ID is zero until the
// row has been committed.
type Entity struct {
	ID   int64      `json:"id"`
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// Str returns a pointer to s, for optional record attributes.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
