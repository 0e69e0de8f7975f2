package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"cinehub/internal/apperr"
)

const defaultRetries = 3

// ErrUnchanged may be returned by an Update callback to skip the save.
var ErrUnchanged = errors.New("store: collection unchanged")

// Collection is a typed view of one named collection.
//
// Update serializes writers in this process with a mutex and guards against
// other processes with the store's version check, retrying on conflict. Each
// attempt mutates a freshly decoded copy, so a failed save never leaves
// partial state behind.
type Collection[T any] struct {
	name       string
	store      Store
	retries    int
	log        *logrus.Entry
	onConflict func(name string)

	mu sync.Mutex
}

type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	retries    int
	log        *logrus.Entry
	onConflict func(string)
}

func WithRetries(n int) CollectionOption {
	return func(c *collectionConfig) {
		if n > 0 {
			c.retries = n
		}
	}
}

func WithLogger(log *logrus.Entry) CollectionOption {
	return func(c *collectionConfig) { c.log = log }
}

// WithConflictHook registers a callback invoked on every version conflict.
func WithConflictHook(fn func(name string)) CollectionOption {
	return func(c *collectionConfig) { c.onConflict = fn }
}

func NewCollection[T any](s Store, name string, opts ...CollectionOption) *Collection[T] {
	cfg := collectionConfig{retries: defaultRetries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		cfg.log = logrus.NewEntry(l)
	}
	return &Collection[T]{
		name:       name,
		store:      s,
		retries:    cfg.retries,
		log:        cfg.log.WithField("collection", name),
		onConflict: cfg.onConflict,
	}
}

func (c *Collection[T]) Name() string { return c.name }

// All returns every item of the collection.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	items, _, err := c.load(ctx)
	return items, err
}

func (c *Collection[T]) load(ctx context.Context) ([]T, uint64, error) {
	snap, err := c.store.Load(ctx, c.name)
	if err != nil {
		return nil, 0, apperr.Storage("Could not read "+c.name, err)
	}
	items := []T{}
	if err := json.Unmarshal(normalize(snap.Data), &items); err != nil {
		return nil, 0, apperr.Storage("Could not read "+c.name, err)
	}
	return items, snap.Version, nil
}

// Update loads the collection, applies fn and saves the result. An error from
// fn aborts the update and is returned as is. fn may run more than once when
// another writer wins the race, so it must derive everything from items.
func (c *Collection[T]) Update(ctx context.Context, fn func(items *[]T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		items, version, err := c.load(ctx)
		if err != nil {
			return err
		}
		if err := fn(&items); err != nil {
			if errors.Is(err, ErrUnchanged) {
				return nil
			}
			return err
		}
		if items == nil {
			items = []T{}
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return apperr.Storage("Could not save "+c.name, err)
		}

		_, err = c.store.Save(ctx, c.name, data, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			c.log.WithError(err).Error("save failed")
			return apperr.Storage("Could not save "+c.name, err)
		}
		lastErr = err
		if c.onConflict != nil {
			c.onConflict(c.name)
		}
		c.log.WithField("attempt", attempt).Warn("version conflict, retrying")
		if err := ctx.Err(); err != nil {
			return apperr.Storage("Could not save "+c.name, err)
		}
	}
	return apperr.Storage("Could not save "+c.name, lastErr)
}
