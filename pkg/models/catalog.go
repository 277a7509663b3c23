package models

// RecordView is a stored record joined with the names of its entities, as
// served by search and lookup.
type RecordView struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title,omitempty"`
	PublishingYear  int      `json:"publishing_year,omitempty"`
	URL             string   `json:"url,omitempty"`
	Description     string   `json:"description,omitempty"`
	Cover           string   `json:"cover,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	ISSN            string   `json:"issn,omitempty"`
	Pages           int      `json:"pages,omitempty"`
	UDC             string   `json:"udc,omitempty"`
	BBK             string   `json:"bbk,omitempty"`
	Fingerprint     int64    `json:"fingerprint"`
	Authors         []string `json:"authors"`
	Publishers      []string `json:"publishers"`
	Keywords        []string `json:"keywords"`
	DocumentTypes   []string `json:"document_types"`
	SourceDatabases []string `json:"source_databases"`
}

// Facets lists the filter values available on the search form.
type Facets struct {
	SourceDatabases []Entity `json:"source_databases"`
	DocumentTypes   []Entity `json:"document_types"`
}
