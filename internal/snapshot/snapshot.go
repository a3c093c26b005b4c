// Package snapshot keeps the current record collection and replaces it
// wholesale when the backing document changes.
//
// Readers call Store.Current once per request and work on that value; a
// reload builds a complete new Snapshot and publishes it with a single atomic
// store, so no reader ever sees a partially rebuilt collection.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/kartikbazzad/bunbase/lookup/internal/records"
)

// Snapshot is an immutable view of the dataset.
type Snapshot struct {
	Records  []records.Record
	Catalog  []string
	Source   string
	LoadedAt time.Time
	Version  uint64
}

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.Records) }

// Info is the JSON summary of a snapshot.
type Info struct {
	Records  int       `json:"records"`
	Fields   []string  `json:"fields"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Version  uint64    `json:"version"`
}

// Info summarizes s.
func (s *Snapshot) Info() Info {
	return Info{
		Records:  len(s.Records),
		Fields:   s.Catalog,
		Source:   s.Source,
		LoadedAt: s.LoadedAt,
		Version:  s.Version,
	}
}

// Store holds the current snapshot.
type Store struct {
	cur     atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{Records: []records.Record{}, Catalog: []string{}})
	return s
}

// Current returns the snapshot in effect. It is never nil.
func (s *Store) Current() *Snapshot {
	return s.cur.Load()
}

// Replace builds a snapshot from recs and publishes it.
func (s *Store) Replace(recs []records.Record, source string) *Snapshot {
	if recs == nil {
		recs = []records.Record{}
	}
	snap := &Snapshot{
		Records:  recs,
		Catalog:  records.BuildCatalog(recs),
		Source:   source,
		LoadedAt: time.Now(),
		Version:  s.version.Add(1),
	}
	s.cur.Store(snap)
	return snap
}
