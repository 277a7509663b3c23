package catalog

import (
	"context"
	"fmt"

	"searchlib/pkg/models"
)

// Handle refers to an entity resolved during a batch. ID stays zero for an
// entity created in this batch until the batch commits.
type Handle struct {
	Kind models.EntityKind
	Name string
	ID   int64
}

type stagedRecord struct {
	record   models.NormalizedRecord
	entities []*Handle
}

// CommitResult counts what a commit wrote.
type CommitResult struct {
	Records   int
	Entities  int
	Conflicts int
}

// UnitOfWork stages the records and new entities of one batch and writes them
// in a single transaction. Resolution sees staged entities before it asks the
// store, so a name used by many records of a batch yields one row.
//
// A UnitOfWork is not safe for concurrent use.
type UnitOfWork struct {
	store   Store
	known   map[models.EntityKind]map[string]*Handle
	created []*Handle
	records []stagedRecord
}

func NewUnitOfWork(store Store) *UnitOfWork {
	return &UnitOfWork{
		store: store,
		known: make(map[models.EntityKind]map[string]*Handle),
	}
}

// Resolve returns the handle for name, creating a staged entity when neither
// this batch nor the store has one.
func (u *UnitOfWork) Resolve(ctx context.Context, kind models.EntityKind, name string) (*Handle, error) {
	byName, ok := u.known[kind]
	if !ok {
		byName = make(map[string]*Handle)
		u.known[kind] = byName
	}
	if h, ok := byName[name]; ok {
		return h, nil
	}

	e, found, err := u.store.FindByName(ctx, kind, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, name, err)
	}

	h := &Handle{Kind: kind, Name: name}
	if found {
		h.ID = e.ID
	} else {
		u.created = append(u.created, h)
	}
	byName[name] = h
	return h, nil
}

// Stage queues rec to be inserted and linked to entities on commit.
func (u *UnitOfWork) Stage(rec models.NormalizedRecord, entities []*Handle) {
	u.records = append(u.records, stagedRecord{record: rec, entities: entities})
}

// Pending returns the number of staged records.
func (u *UnitOfWork) Pending() int {
	return len(u.records)
}

// Commit writes all staged rows in one transaction. A record whose
// fingerprint is already stored is counted as a conflict and not linked.
// On error nothing is written and the UnitOfWork should be discarded.
func (u *UnitOfWork) Commit(ctx context.Context) (CommitResult, error) {
	var res CommitResult

	tx, err := u.store.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			for _, h := range u.created {
				h.ID = 0
			}
		}
	}()

	for _, h := range u.created {
		var e models.Entity
		e, err = tx.InsertEntity(ctx, h.Kind, h.Name)
		if err != nil {
			return CommitResult{}, err
		}
		h.ID = e.ID
		res.Entities++
	}

	for i := range u.records {
		sr := &u.records[i]
		var (
			id       int64
			inserted bool
		)
		id, inserted, err = tx.InsertRecord(ctx, &sr.record)
		if err != nil {
			return CommitResult{}, err
		}
		if !inserted {
			res.Conflicts++
			continue
		}
		res.Records++
		for _, h := range sr.entities {
			if err = tx.Link(ctx, id, models.Entity{ID: h.ID, Kind: h.Kind, Name: h.Name}); err != nil {
				return CommitResult{}, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("commit batch: %w", err)
	}
	return res, nil
}
