package cache

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/storage"
)

// Collection names, also used as the durable key suffix.
const (
	FavouritesCollection = "favourites"
	RatingsCollection    = "ratings"
)

// Record is anything stored in a Collection. Key identifies it uniquely.
type Record interface {
	Key() string
}

// Collection is an ordered, key-unique list of records mirrored to durable
// storage. Every mutation writes the whole collection back.
type Collection[R Record] struct {
	mu     sync.RWMutex
	items  []R
	key    string
	kv     storage.Store
	logger *log.Logger
}

func openCollection[R Record](kv storage.Store, key string, logger *log.Logger) *Collection[R] {
	c := &Collection[R]{key: key, kv: kv, logger: logger}
	raw, ok, err := kv.Get(key)
	if err != nil {
		logger.Printf("cache: load %s failed, starting empty: %v", key, err)
		return c
	}
	if !ok {
		return c
	}
	if err := json.Unmarshal(raw, &c.items); err != nil {
		logger.Printf("cache: decode %s failed, starting empty: %v", key, err)
		c.items = nil
	}
	return c
}

// Get returns a copy of the records in order.
func (c *Collection[R]) Get() []R {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneItems(c.items)
}

// Lookup returns the record stored under key.
func (c *Collection[R]) Lookup(key string) (R, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(key); i >= 0 {
		return c.items[i], true
	}
	var zero R
	return zero, false
}

// Len returns the number of records.
func (c *Collection[R]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Upsert inserts rec, or replaces the record with the same key in place.
func (c *Collection[R]) Upsert(rec R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(rec.Key()); i >= 0 {
		c.items[i] = rec
	} else {
		c.items = append(c.items, rec)
	}
	c.persistLocked()
}

// Remove deletes the record under key and returns it.
func (c *Collection[R]) Remove(key string) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(key)
	if i < 0 {
		var zero R
		return zero, false
	}
	removed := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.persistLocked()
	return removed, true
}

// Replace swaps the whole collection, keeping the last record for duplicate keys.
func (c *Collection[R]) Replace(items []R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	for _, rec := range items {
		if i := c.indexOf(rec.Key()); i >= 0 {
			c.items[i] = rec
			continue
		}
		c.items = append(c.items, rec)
	}
	c.persistLocked()
}

// Clear drops every record and deletes the durable key.
func (c *Collection[R]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	if err := c.kv.Remove(c.key); err != nil {
		c.logger.Printf("cache: remove %s failed: %v", c.key, err)
	}
}

func (c *Collection[R]) indexOf(key string) int {
	for i, rec := range c.items {
		if rec.Key() == key {
			return i
		}
	}
	return -1
}

// persistLocked never fails the caller: memory stays authoritative and the
// next successful write catches storage up.
func (c *Collection[R]) persistLocked() {
	items := c.items
	if items == nil {
		items = []R{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		c.logger.Printf("cache: encode %s failed: %v", c.key, err)
		return
	}
	if err := c.kv.Set(c.key, raw); err != nil {
		c.logger.Printf("cache: persist %s failed: %v", c.key, err)
	}
}

func cloneItems[R any](items []R) []R {
	if len(items) == 0 {
		return nil
	}
	dup := make([]R, len(items))
	copy(dup, items)
	return dup
}

// Store is the local mirror of a user's favourites and ratings.
type Store struct {
	Favourites *Collection[museum.FavouriteRecord]
	Ratings    *Collection[museum.RatingRecord]
}

// Open loads the user's collections from kv. A nil logger uses log.Default.
func Open(kv storage.Store, userID string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		Favourites: openCollection[museum.FavouriteRecord](kv, storageKey(userID, FavouritesCollection), logger),
		Ratings:    openCollection[museum.RatingRecord](kv, storageKey(userID, RatingsCollection), logger),
	}
}

// IsFavourite reports whether exhibitID is favourited locally.
func (s *Store) IsFavourite(exhibitID string) bool {
	_, ok := s.Favourites.Lookup(exhibitID)
	return ok
}

// RatingFor returns the local rating for exhibitID, zero when unrated.
func (s *Store) RatingFor(exhibitID string) int {
	if r, ok := s.Ratings.Lookup(exhibitID); ok {
		return r.Rating
	}
	return 0
}

// Clear empties both collections and removes their durable keys.
func (s *Store) Clear() {
	s.Favourites.Clear()
	s.Ratings.Clear()
}

func storageKey(userID, collection string) string {
	if userID == "" {
		return "cache:" + collection
	}
	return "cache:" + userID + ":" + collection
}
