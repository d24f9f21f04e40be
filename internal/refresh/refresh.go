// Package refresh keeps the cached read models reasonably fresh on two
// cadences: a forced pull on reconnect or session start, and an offline
// re-read on a fixed interval.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sahajch/tillsync/internal/events"
	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/storage"
)

// source is the slice of the remote client the refresher needs.
type source interface {
	FetchProducts(ctx context.Context, token string) ([]models.CacheRecord, error)
	FetchCustomers(ctx context.Context, token string) ([]models.CacheRecord, error)
	FetchBills(ctx context.Context, token string) ([]models.CacheRecord, error)
}

// connectivity is the slice of the network monitor the refresher needs.
type connectivity interface {
	Online() bool
}

// TokenFunc yields the current session bearer for read-model fetches.
type TokenFunc func() string

// Options tunes the refresher's cadences and retention.
type Options struct {
	// OfflineInterval is how often the offline re-read fires. Default 30s.
	OfflineInterval time.Duration

	// Retention bounds cache growth; records not updated within it are
	// purged after each refresh. Default 7 days.
	Retention time.Duration

	// MaxBills caps the recent-bills cache. Default 100.
	MaxBills int
}

func (o *Options) fill() {
	if o.OfflineInterval <= 0 {
		o.OfflineInterval = 30 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 7 * 24 * time.Hour
	}
	if o.MaxBills <= 0 {
		o.MaxBills = 100
	}
}

// Refresher pulls read models into the durable local store and maintains the
// in-memory view lists under the jank-avoidance policy.
type Refresher struct {
	remote  source
	store   storage.Store
	monitor connectivity
	views   *Views
	bus     *events.Bus
	token   TokenFunc
	opts    Options
}

// New creates a refresher. views may be shared with the UI layer.
func New(remote source, store storage.Store, monitor connectivity, views *Views, bus *events.Bus, token TokenFunc, opts Options) *Refresher {
	opts.fill()
	return &Refresher{
		remote:  remote,
		store:   store,
		monitor: monitor,
		views:   views,
		bus:     bus,
		token:   token,
		opts:    opts,
	}
}

// RefreshAll fetches every read model from the remote API in parallel and
// replaces the cached collections wholesale. While offline it re-reads the
// local store instead; no network call is attempted.
//
// View lists follow the display-stability policy: a non-forced refresh while
// the user is viewing that same list is skipped entirely, and a forced one
// merges instead of replacing, so rows never scramble under the user.
func (r *Refresher) RefreshAll(ctx context.Context, force bool) {
	if !r.monitor.Online() {
		r.reloadFromCache(ctx, force)
		return
	}

	token := r.token()
	type fetched struct {
		collection string
		recs       []models.CacheRecord
		err        error
	}

	fetches := []struct {
		collection string
		fn         func(context.Context, string) ([]models.CacheRecord, error)
	}{
		{models.CollectionProducts, r.remote.FetchProducts},
		{models.CollectionCustomers, r.remote.FetchCustomers},
		{models.CollectionBills, r.remote.FetchBills},
	}

	results := make([]fetched, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(i int, collection string, fn func(context.Context, string) ([]models.CacheRecord, error)) {
			defer wg.Done()
			recs, err := fn(ctx, token)
			results[i] = fetched{collection: collection, recs: recs, err: err}
		}(i, f.collection, f.fn)
	}
	wg.Wait()

	for _, res := range results {
		if res.err != nil {
			// Keep whatever is cached; a refresh failure is never fatal.
			slog.Warn("read-model fetch failed, keeping cached data",
				"collection", res.collection, "error", res.err)
			continue
		}

		recs := res.recs
		if res.collection == models.CollectionBills && len(recs) > r.opts.MaxBills {
			recs = recs[:r.opts.MaxBills]
		}

		if err := r.store.ReplaceAll(ctx, res.collection, recs); err != nil {
			slog.Warn("cache replace failed", "collection", res.collection, "error", err)
		}
		r.applyViewPolicy(res.collection, recs, force)
	}

	r.purge(ctx)
}

// applyViewPolicy updates one in-memory list per the display-stability
// rules. Collections the user is not looking at are replaced outright.
func (r *Refresher) applyViewPolicy(collection string, fresh []models.CacheRecord, force bool) {
	if r.views == nil {
		return
	}
	if r.views.Active() == collection {
		if !force {
			return
		}
		r.views.set(collection, MergeLists(r.views.List(collection), fresh))
		return
	}
	r.views.set(collection, fresh)
}

// reloadFromCache re-reads the view lists from the durable store. Used on
// the offline cadence; the actively-viewed list is only touched when forced.
func (r *Refresher) reloadFromCache(ctx context.Context, force bool) {
	if r.views == nil {
		return
	}
	for _, collection := range []string{models.CollectionProducts, models.CollectionCustomers, models.CollectionBills} {
		if r.views.Active() == collection && !force {
			continue
		}
		recs, err := r.store.GetAll(ctx, collection)
		if err != nil || len(recs) == 0 {
			continue
		}
		r.views.set(collection, recs)
	}
}

// purge enforces the retention window on the cached read models.
func (r *Refresher) purge(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.opts.Retention)
	for _, collection := range []string{models.CollectionProducts, models.CollectionCustomers, models.CollectionBills} {
		n, err := r.store.PurgeOlderThan(ctx, collection, cutoff)
		if err != nil {
			slog.Warn("cache purge failed", "collection", collection, "error", err)
			continue
		}
		if n > 0 {
			slog.Info("purged stale cache records", "collection", collection, "count", n)
		}
	}
}

// Run refreshes on reconnect and re-reads the cache on the offline interval
// until ctx is cancelled. Both the subscription and the ticker die with the
// context; nothing outlives the owning session.
func (r *Refresher) Run(ctx context.Context) {
	unsubscribe := r.bus.Subscribe(events.WentOnline, func(any) {
		go r.RefreshAll(ctx, true)
	})
	defer unsubscribe()

	ticker := time.NewTicker(r.opts.OfflineInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.monitor.Online() {
				r.reloadFromCache(ctx, false)
			}
		}
	}
}
