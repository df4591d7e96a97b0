// Package syncer decides when the local index is rebuilt from the remote
// document and ingests it when it is. The controller is an explicit object
// with its own lifecycle: construct one per process and pass it to
// anything that needs to trigger or query sync state.
package syncer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/agentic-research/figdex/api"
	"github.com/agentic-research/figdex/internal/remote"
	"github.com/agentic-research/figdex/internal/store"
)

// Config carries the controller's timing and invalidation knobs.
type Config struct {
	// StalenessWindow is the maximum age of a successful sync before a
	// query attempts a refresh.
	StalenessWindow time.Duration
	// RetryInterval is the floor between sync attempts for a stale store,
	// rate-limiting retry storms when the remote source is unreachable.
	RetryInterval time.Duration
	// PropertyChangeThreshold is the number of aggregated property changes
	// a notification must exceed to invalidate (node creations/deletions
	// always invalidate). Heuristic, deliberately configurable.
	PropertyChangeThreshold int
}

// DefaultConfig returns the stock 5-minute window, 60-second retry floor,
// and >5 property-change threshold.
func DefaultConfig() Config {
	return Config{
		StalenessWindow:         5 * time.Minute,
		RetryInterval:           60 * time.Second,
		PropertyChangeThreshold: 5,
	}
}

// Controller is the sync/invalidation state machine. A single in-process
// guard bool ensures at most one sync runs at a time; a concurrent query
// arriving mid-sync is told so rather than double-triggering ingestion.
type Controller struct {
	parts  *store.Manager
	client remote.Client
	cfg    Config

	// Classify/Hints are forwarded to each sync's Ingestor.
	Classify Classifier
	Hints    NodeHinter

	mu          sync.Mutex
	syncing     bool
	lastAttempt time.Time

	now func() time.Time // injected in tests
}

// NewController wires a controller over the partition manager and remote
// client. cfg zero-values fall back to DefaultConfig.
func NewController(parts *store.Manager, client remote.Client, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = def.StalenessWindow
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.PropertyChangeThreshold <= 0 {
		cfg.PropertyChangeThreshold = def.PropertyChangeThreshold
	}
	return &Controller{parts: parts, client: client, cfg: cfg, now: time.Now}
}

// Partitions exposes the partition manager for listing and direct reads.
func (c *Controller) Partitions() *store.Manager { return c.parts }

// SetActiveDocument switches the active partition.
func (c *Controller) SetActiveDocument(docID string) error {
	_, err := c.parts.SetActiveDocument(docID)
	return err
}

// EnsureReady brings the active store to a queryable state, syncing if the
// data is missing, stale, or invalidated. It never blocks behind an
// in-flight sync and never errors the caller out of usable cached data.
func (c *Controller) EnsureReady(ctx context.Context) (api.ReadyResult, error) {
	st, err := c.parts.Active()
	if err != nil {
		return api.ReadyResult{Message: "cache store unavailable: " + err.Error()}, err
	}

	count, err := st.NodeCount()
	if err != nil {
		return api.ReadyResult{Message: "cache store unavailable: " + err.Error()}, err
	}
	hasData := count > 0

	invalidated, lastSync, err := c.syncState(st)
	if err != nil {
		return api.ReadyResult{Message: err.Error()}, err
	}

	now := c.now()
	stale := !hasData || now.Sub(lastSync) > c.cfg.StalenessWindow
	if hasData && !stale && !invalidated {
		return api.ReadyResult{Ready: true, Message: "index fresh"}, nil
	}

	if !c.client.Connected() {
		if hasData {
			return api.ReadyResult{Ready: true, Stale: true,
				Message: "remote source unreachable; serving cached data (may be stale)"}, nil
		}
		return api.ReadyResult{Message: "not ready: no cached data and remote source unreachable"}, nil
	}

	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		return api.ReadyResult{Ready: hasData, Message: "sync in progress"}, nil
	}
	// Invalidation bypasses the staleness timer, but a merely-stale store
	// waits out the retry floor since the last attempt (success or not).
	if hasData && !invalidated && now.Sub(c.lastAttempt) < c.cfg.RetryInterval {
		c.mu.Unlock()
		return api.ReadyResult{Ready: true, Stale: true,
			Message: "index stale; retry window not elapsed"}, nil
	}
	c.syncing = true
	c.lastAttempt = now
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
	}()

	stats, err := c.runSync(ctx, st, api.RebuildOptions{})
	if err != nil {
		if hasData {
			// Invalidation/staleness flags persist for the next attempt.
			return api.ReadyResult{Ready: true, Stale: true,
				Message: "sync failed; serving cached data: " + err.Error()}, err
		}
		return api.ReadyResult{Message: "sync failed: " + err.Error()}, err
	}

	return api.ReadyResult{Ready: true, Synced: true,
		Message: fmt.Sprintf("synced %d nodes across %d pages", stats.NodesIndexed, stats.PagesIndexed)}, nil
}

// Rebuild forces a full resync, clearing the store first. It refuses to
// run while another sync is in flight.
func (c *Controller) Rebuild(ctx context.Context, opts api.RebuildOptions) (api.SyncStats, error) {
	st, err := c.parts.Active()
	if err != nil {
		return api.SyncStats{}, err
	}
	if !c.client.Connected() {
		return api.SyncStats{}, remote.ErrDisconnected
	}

	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		return api.SyncStats{}, fmt.Errorf("sync in progress")
	}
	c.syncing = true
	c.lastAttempt = c.now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
	}()

	if err := st.ClearAll(); err != nil {
		return api.SyncStats{}, err
	}
	return c.runSync(ctx, st, opts)
}

// runSync ingests one full rebuild. The invalidation flag is snapshotted
// and cleared before ingestion starts: a notification landing mid-sync
// re-sets it, and that newer signal must survive this sync so the next
// check honors it.
func (c *Controller) runSync(ctx context.Context, st *store.Store, opts api.RebuildOptions) (api.SyncStats, error) {
	prevInv, err := st.MetaGet(store.MetaInvalidated)
	if err != nil {
		return api.SyncStats{}, err
	}
	prevReason, err := st.MetaGet(store.MetaInvalidationReason)
	if err != nil {
		return api.SyncStats{}, err
	}
	if prevInv != "" {
		if err := st.MetaSet(store.MetaInvalidated, ""); err != nil {
			return api.SyncStats{}, err
		}
		if err := st.MetaSet(store.MetaInvalidationReason, ""); err != nil {
			return api.SyncStats{}, err
		}
	}

	ing := &Ingestor{Store: st, Client: c.client, Classify: c.Classify, Hints: c.Hints, Now: c.now}
	stats, err := ing.BuildIndex(ctx, opts)
	if err != nil && prevInv != "" {
		// Put the pre-sync flag back unless a mid-sync notification already
		// wrote a fresher one.
		cur, gerr := st.MetaGet(store.MetaInvalidated)
		if gerr == nil && cur == "" {
			if serr := st.MetaSet(store.MetaInvalidated, prevInv); serr != nil {
				log.Printf("syncer: cannot restore invalidation: %v", serr)
			}
			if serr := st.MetaSet(store.MetaInvalidationReason, prevReason); serr != nil {
				log.Printf("syncer: cannot restore invalidation reason: %v", serr)
			}
		}
	}
	return stats, err
}

// HandleChange consumes one change notification. Only document structural
// changes can invalidate, and only past the configured significance
// threshold; a single dragged node should not wipe the cache. The flag
// and a timestamped reason persist in sync_meta so invalidation survives
// restarts; if a sync is mid-flight the flag is simply honored on the next
// check.
func (c *Controller) HandleChange(ev remote.DocumentChange) {
	if ev.ChangeType != remote.ChangeTypeDocument {
		return
	}
	structural := ev.Details.NodeCreations > 0 || ev.Details.NodeDeletions > 0
	if !structural && ev.Details.PropertyChanges <= c.cfg.PropertyChangeThreshold {
		return
	}

	st, err := c.parts.Active()
	if err != nil {
		log.Printf("syncer: cannot persist invalidation: %v", err)
		return
	}

	reason := fmt.Sprintf("document changed at %s: +%d/-%d nodes, %d property changes",
		ev.Timestamp.Format(time.RFC3339),
		ev.Details.NodeCreations, ev.Details.NodeDeletions, ev.Details.PropertyChanges)
	if err := st.MetaSet(store.MetaInvalidated, "1"); err != nil {
		log.Printf("syncer: cannot persist invalidation: %v", err)
		return
	}
	if err := st.MetaSet(store.MetaInvalidationReason, reason); err != nil {
		log.Printf("syncer: cannot persist invalidation reason: %v", err)
	}
}

// Search ensures readiness, then runs a ranked node search against the
// active store.
func (c *Controller) Search(ctx context.Context, query string, filter api.SearchFilter, limit int) ([]store.Node, api.ReadyResult, error) {
	ready, err := c.EnsureReady(ctx)
	if !ready.Ready {
		return nil, ready, err
	}
	st, err := c.parts.Active()
	if err != nil {
		return nil, ready, err
	}
	nodes, err := st.SearchNodes(query, filter, limit)
	return nodes, ready, err
}

// Stats reports aggregate counts and sync metadata for the active store.
func (c *Controller) Stats(ctx context.Context) (api.Stats, error) {
	st, err := c.parts.Active()
	if err != nil {
		return api.Stats{}, err
	}
	return st.Stats()
}

// syncState reads the persisted invalidation flag and last sync time.
func (c *Controller) syncState(st *store.Store) (invalidated bool, lastSync time.Time, err error) {
	inv, err := st.MetaGet(store.MetaInvalidated)
	if err != nil {
		return false, time.Time{}, err
	}
	raw, err := st.MetaGet(store.MetaLastFullSync)
	if err != nil {
		return false, time.Time{}, err
	}
	if raw != "" {
		if sec, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			lastSync = time.Unix(sec, 0)
		}
	}
	return inv == "1", lastSync, nil
}
