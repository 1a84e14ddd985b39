// Package listsync reconciles the local in-memory transaction collection
// with the remote resource. The controller owns the canonical list the view
// renders: every mutation, filter change, or page change flows through it.
package listsync

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vpetrenko/tracklet/internal/client/api"
	"github.com/vpetrenko/tracklet/internal/client/models"
	"github.com/vpetrenko/tracklet/internal/common"
	"github.com/vpetrenko/tracklet/internal/logging"
)

// SyncState is the controller's position in its state machine.
type SyncState string

const (
	StateIdle    SyncState = "idle"
	StateLoading SyncState = "loading"
	StateLoaded  SyncState = "loaded"
	StateError   SyncState = "error"
)

// ErrSubmitInFlight is returned when a form instance dispatches a second
// create while its first one has not resolved yet.
var ErrSubmitInFlight = errors.New("submission already in flight")

// AuthState is the slice of the session store the controller needs: late
// responses are discarded when the session has become anonymous since
// dispatch.
type AuthState interface {
	IsAuthenticated() bool
}

// Controller keeps the visible transaction list consistent with the
// server-side filtered, paginated resource.
//
// The server is authoritative: a successful list replaces the local page
// wholesale (or appends, in infinite-scroll mode). Each list request
// carries a monotonic sequence number; a response whose sequence is no
// longer the latest issued is discarded, so a slow early fetch can never
// overwrite a faster later one. A failed refetch keeps the last known-good
// snapshot.
type Controller struct {
	client api.Client
	auth   AuthState
	log    logging.Logger

	// infinite selects the append-on-load variant used by the
	// infinite-scroll view instead of page replacement.
	infinite bool

	mu         sync.Mutex
	state      SyncState
	lastErr    error
	items      []models.Transaction
	filter     models.Filter
	page       int
	totalPages int

	seq      uint64
	cancel   context.CancelFunc
	inFlight map[string]bool
}

// NewController returns a paged controller: each load replaces the visible
// page.
func NewController(client api.Client, auth AuthState, log logging.Logger) *Controller {
	return newController(client, auth, log, false)
}

// NewInfiniteScrollController returns the append variant: loads accumulate,
// de-duplicated by id, and advancing is driven by LoadMore.
func NewInfiniteScrollController(client api.Client, auth AuthState, log logging.Logger) *Controller {
	return newController(client, auth, log, true)
}

func newController(client api.Client, auth AuthState, log logging.Logger, infinite bool) *Controller {
	return &Controller{
		client:     client,
		auth:       auth,
		log:        log.With("component", "listsync"),
		infinite:   infinite,
		state:      StateIdle,
		page:       1,
		totalPages: 1,
		inFlight:   make(map[string]bool),
	}
}

// Refresh fetches the current filter/page from the server and, if the
// response is still the latest issued, applies it.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		// a newer request supersedes the in-flight one
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	filter, page := c.filter, c.page
	c.mu.Unlock()

	res, err := c.client.List(ctx, filter, page)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.log.Debug(ctx, "discarding superseded list response", "seq", seq, "latest", c.seq)
		return nil
	}
	if c.auth != nil && !c.auth.IsAuthenticated() {
		c.log.Debug(ctx, "discarding list response after logout")
		c.state = StateIdle
		c.items = nil
		return nil
	}
	if err != nil {
		// keep the last known-good snapshot, only surface the error
		c.state = StateError
		c.lastErr = err
		return err
	}

	if c.infinite {
		c.items = dedupAppend(c.items, res.Items)
	} else {
		c.items = res.Items
	}
	c.page = res.Page
	c.totalPages = res.TotalPages
	c.state = StateLoaded
	c.lastErr = nil
	return nil
}

// dedupAppend appends next to existing, dropping ids already present.
// Under concurrent mutation the same item can straddle two fetched pages.
func dedupAppend(existing, next []models.Transaction) []models.Transaction {
	seen := make(map[int64]struct{}, len(existing))
	for _, item := range existing {
		seen[item.ID] = struct{}{}
	}
	for _, item := range next {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		existing = append(existing, item)
	}
	return existing
}

// SetFilter replaces the filter set and reloads. Any filter change resets
// the page to 1 so a newly narrowed result set cannot leave the view on an
// out-of-range page.
func (c *Controller) SetFilter(ctx context.Context, f models.Filter) error {
	c.mu.Lock()
	c.filter = f
	c.page = 1
	if c.infinite {
		c.items = nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetPage navigates the paged view to the given page and reloads.
func (c *Controller) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// LoadMore advances the infinite-scroll view by one page. It is a no-op on
// the last page.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if !c.infinite || c.page >= c.totalPages {
		c.mu.Unlock()
		return nil
	}
	c.page++
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// NewSubmission issues a token identifying one form instance. Create
// rejects a second dispatch carrying the same token while the first is
// still in flight.
func (c *Controller) NewSubmission() string {
	return uuid.NewString()
}

// Create submits a draft. On success the created item is inserted
// optimistically only when it satisfies the active filter and the first
// page is visible; otherwise the current page is refetched so the
// server-authoritative view stays correct under active filters and
// pagination.
func (c *Controller) Create(ctx context.Context, submission string, draft models.Draft) (models.Transaction, error) {
	c.mu.Lock()
	if c.inFlight[submission] {
		c.mu.Unlock()
		return models.Transaction{}, ErrSubmitInFlight
	}
	c.inFlight[submission] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, submission)
		c.mu.Unlock()
	}()

	created, err := c.client.Create(ctx, draft)
	if err != nil {
		return models.Transaction{}, err
	}

	c.mu.Lock()
	if c.auth != nil && !c.auth.IsAuthenticated() {
		c.mu.Unlock()
		return created, nil
	}
	firstPageVisible := c.page == 1 && !c.infinite
	matches := c.filter.Matches(created)
	if firstPageVisible && matches {
		// newest-first server ordering puts fresh items on page one
		c.items = append([]models.Transaction{created}, c.items...)
		c.state = StateLoaded
		c.mu.Unlock()
		return created, nil
	}
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		// the create itself succeeded; the view will catch up on the
		// next successful load
		c.log.Warn(ctx, "refetch after create failed", "error", err)
	}
	return created, nil
}

// Update replaces the full record on the server and, on success, swaps the
// matching item in place, preserving order. Updating an item another
// session already deleted is tolerated as a no-op: the item is dropped
// locally instead.
func (c *Controller) Update(ctx context.Context, id int64, record models.Transaction) error {
	updated, err := c.client.Update(ctx, id, record)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.removeLocally(id)
			return nil
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i] = updated
			break
		}
	}
	return nil
}

// Delete removes the transaction remotely and locally. A NotFound from the
// server means another session got there first; that is not an error.
// Emptying a non-first page navigates back one page so the view never
// shows a blank page with earlier pages still populated.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	err := c.client.Delete(ctx, id)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	c.removeLocally(id)

	c.mu.Lock()
	emptied := len(c.items) == 0 && c.page > 1 && !c.infinite
	if emptied {
		c.page--
	}
	c.mu.Unlock()

	if emptied {
		return c.Refresh(ctx)
	}
	return nil
}

func (c *Controller) removeLocally(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Overview loads the current page and the server-side totals for the
// active filter concurrently.
func (c *Controller) Overview(ctx context.Context) (models.Totals, error) {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()

	var totals models.Totals
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.client.Summary(ctx, filter)
		if err != nil {
			return err
		}
		totals = t
		return nil
	})
	g.Go(func() error {
		return c.Refresh(ctx)
	})
	if err := g.Wait(); err != nil {
		return models.Totals{}, err
	}
	return totals, nil
}

// Export fetches the CSV artifact for the active filter set.
func (c *Controller) Export(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()
	return c.client.ExportCSV(ctx, filter)
}

// Items returns a copy of the canonical list.
func (c *Controller) Items() []models.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Transaction, len(c.items))
	copy(out, c.items)
	return out
}

// Totals aggregates the currently visible items locally.
func (c *Controller) Totals() models.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ComputeTotals(c.items)
}

// State returns the current sync state.
func (c *Controller) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error behind StateError, nil otherwise.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Page returns the current page number.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// TotalPages returns the page count of the filtered result set.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// Filter returns the active filter set.
func (c *Controller) Filter() models.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}
