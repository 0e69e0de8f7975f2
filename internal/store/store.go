// Package store persists whole collections as JSON arrays behind a small
// versioned interface, so the same services run on files, SQL or Redis.
package store

import (
	"bytes"
	"context"
	"errors"
)

// Collection names.
const (
	Playlists    = "playlists"
	ForumThreads = "forum_threads"
	ForumMovies  = "forum_movies"
	Reviews      = "reviews"
	Users        = "users"
)

// AllCollections lists every collection the service reads or writes.
var AllCollections = []string{Playlists, ForumThreads, ForumMovies, Reviews, Users}

// ErrConflict is returned by Save when the stored version no longer matches
// the version the caller loaded.
var ErrConflict = errors.New("store: version conflict")

var emptyArray = []byte("[]")

// Snapshot is the raw content of a collection together with its version.
// Version 0 means the collection has never been written.
type Snapshot struct {
	Data    []byte
	Version uint64
}

// Store loads and saves whole collections.
type Store interface {
	Load(ctx context.Context, name string) (Snapshot, error)
	// Save replaces the collection if its current version equals expected and
	// returns the new version. Otherwise it returns ErrConflict.
	Save(ctx context.Context, name string, data []byte, expected uint64) (uint64, error)
}

func normalize(data []byte) []byte {
	if len(bytes.TrimSpace(data)) == 0 {
		return emptyArray
	}
	return data
}
