package refresh

import (
	"sync"

	"github.com/sahajch/tillsync/internal/models"
)

// Views holds the in-memory lists the UI is currently rendering, plus which
// one the user is actively looking at. The refresher consults it to decide
// between wholesale replace, merge, and skip.
type Views struct {
	mu     sync.Mutex
	active string
	lists  map[string][]models.CacheRecord
}

// NewViews creates an empty view registry with no active view.
func NewViews() *Views {
	return &Views{lists: make(map[string][]models.CacheRecord)}
}

// SetActive records which list the user is viewing ("" for none).
func (v *Views) SetActive(collection string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = collection
}

// Active returns the collection the user is viewing, or "".
func (v *Views) Active() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

// List returns the rendered list for a collection.
func (v *Views) List(collection string) []models.CacheRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lists[collection]
}

func (v *Views) set(collection string, recs []models.CacheRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lists[collection] = recs
}
