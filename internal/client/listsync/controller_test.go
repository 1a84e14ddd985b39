package listsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vpetrenko/tracklet/internal/client/api"
	"github.com/vpetrenko/tracklet/internal/client/models"
	"github.com/vpetrenko/tracklet/internal/common"
	"github.com/vpetrenko/tracklet/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type listCall struct {
	filter models.Filter
	page   int
}

type fakeClient struct {
	api.Client

	listFn    func(f models.Filter, page int) (api.Page, error)
	createFn  func(d models.Draft) (models.Transaction, error)
	updateFn  func(id int64, r models.Transaction) (models.Transaction, error)
	deleteFn  func(id int64) error
	summaryFn func(f models.Filter) (models.Totals, error)
	exportFn  func(f models.Filter) ([]byte, error)

	mu        sync.Mutex
	listCalls []listCall
}

func (f *fakeClient) List(ctx context.Context, filter models.Filter, page int) (api.Page, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, listCall{filter: filter, page: page})
	f.mu.Unlock()
	if f.listFn != nil {
		return f.listFn(filter, page)
	}
	return api.Page{Page: page, TotalPages: 1}, nil
}

func (f *fakeClient) Create(ctx context.Context, d models.Draft) (models.Transaction, error) {
	if f.createFn != nil {
		return f.createFn(d)
	}
	return models.Transaction{}, nil
}

func (f *fakeClient) Update(ctx context.Context, id int64, r models.Transaction) (models.Transaction, error) {
	if f.updateFn != nil {
		return f.updateFn(id, r)
	}
	return r, nil
}

func (f *fakeClient) Delete(ctx context.Context, id int64) error {
	if f.deleteFn != nil {
		return f.deleteFn(id)
	}
	return nil
}

func (f *fakeClient) Summary(ctx context.Context, filter models.Filter) (models.Totals, error) {
	if f.summaryFn != nil {
		return f.summaryFn(filter)
	}
	return models.Totals{}, nil
}

func (f *fakeClient) ExportCSV(ctx context.Context, filter models.Filter) ([]byte, error) {
	if f.exportFn != nil {
		return f.exportFn(filter)
	}
	return nil, nil
}

func (f *fakeClient) calls() []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]listCall, len(f.listCalls))
	copy(out, f.listCalls)
	return out
}

type fakeAuth struct{ authed atomic.Bool }

func (f *fakeAuth) IsAuthenticated() bool { return f.authed.Load() }

func txn(id int64, typ models.Type, amount models.Amount) models.Transaction {
	d, _ := models.ParseDate("2024-01-01")
	return models.Transaction{ID: id, Description: "t", Amount: amount, Category: "other", Type: typ, Date: d}
}

func pageOf(page, totalPages int, items ...models.Transaction) api.Page {
	return api.Page{Items: items, Page: page, TotalPages: totalPages}
}

func TestRefresh_ReplacesPageWholesale(t *testing.T) {
	fc := &fakeClient{listFn: func(f models.Filter, page int) (api.Page, error) {
		return pageOf(1, 2, txn(1, models.TypeExpense, 100), txn(2, models.TypeIncome, 200)), nil
	}}
	c := NewController(fc, nil, testLogger())

	require.Equal(t, StateIdle, c.State())
	require.NoError(t, c.Refresh(context.Background()))

	require.Equal(t, StateLoaded, c.State())
	require.Len(t, c.Items(), 2)
	require.Equal(t, 2, c.TotalPages())
}

func TestRefresh_FailureKeepsLastKnownGood(t *testing.T) {
	good := pageOf(1, 1, txn(1, models.TypeExpense, 100))
	var fail atomic.Bool
	fc := &fakeClient{listFn: func(f models.Filter, page int) (api.Page, error) {
		if fail.Load() {
			return api.Page{}, api.ErrUnavailable
		}
		return good, nil
	}}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	fail.Store(true)

	err := c.Refresh(ctx)
	require.ErrorIs(t, err, api.ErrUnavailable)
	require.Equal(t, StateError, c.State())
	require.ErrorIs(t, c.Err(), api.ErrUnavailable)
	// snapshot survives the failed refetch
	require.Len(t, c.Items(), 1)
}

func TestSetFilter_ResetsPageToOne(t *testing.T) {
	fc := &fakeClient{listFn: func(f models.Filter, page int) (api.Page, error) {
		return pageOf(page, 5), nil
	}}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, c.SetPage(ctx, 3))
	require.Equal(t, 3, c.Page())

	require.NoError(t, c.SetFilter(ctx, models.Filter{Type: models.TypeIncome}))
	require.Equal(t, 1, c.Page())

	calls := fc.calls()
	last := calls[len(calls)-1]
	require.Equal(t, 1, last.page)
	require.Equal(t, models.TypeIncome, last.filter.Type)
}

func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	fc := &fakeClient{listFn: func(f models.Filter, page int) (api.Page, error) {
		if calls.Add(1) == 1 {
			<-release // first request resolves late
			return pageOf(1, 1, txn(1, models.TypeExpense, 100)), nil
		}
		return pageOf(1, 1, txn(2, models.TypeIncome, 200)), nil
	}}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)

	// a newer request supersedes the one still in flight
	require.NoError(t, c.SetFilter(ctx, models.Filter{Type: models.TypeIncome}))

	close(release)
	require.NoError(t, <-done)

	items := c.Items()
	require.Len(t, items, 1)
	require.Equal(t, int64(2), items[0].ID)
}

func TestCreate_OptimisticPrependOnFirstPage(t *testing.T) {
	created := txn(42, models.TypeExpense, 350)
	fc := &fakeClient{
		listFn: func(f models.Filter, page int) (api.Page, error) {
			return pageOf(1, 1, txn(1, models.TypeExpense, 100)), nil
		},
		createFn: func(d models.Draft) (models.Transaction, error) { return created, nil },
	}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	before := len(fc.calls())

	got, err := c.Create(ctx, c.NewSubmission(), models.Draft{
		Description: "Coffee", Amount: "350", Category: "food",
		Type: models.TypeExpense, Date: "2024-01-01",
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), got.ID)

	items := c.Items()
	require.Len(t, items, 2)
	require.Equal(t, int64(42), items[0].ID) // prepended
	require.Len(t, fc.calls(), before)       // no refetch
}

func TestCreate_NonMatchingFilterRefetchesInstead(t *testing.T) {
	created := txn(42, models.TypeExpense, 350)
	fc := &fakeClient{
		listFn: func(f models.Filter, page int) (api.Page, error) {
			return pageOf(1, 1, txn(1, models.TypeIncome, 100)), nil
		},
		createFn: func(d models.Draft) (models.Transaction, error) { return created, nil },
	}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, c.SetFilter(ctx, models.Filter{Type: models.TypeIncome}))
	before := len(fc.calls())

	_, err := c.Create(ctx, c.NewSubmission(), models.Draft{
		Description: "Coffee", Amount: "350", Category: "food",
		Type: models.TypeExpense, Date: "2024-01-01",
	})
	require.NoError(t, err)

	// an expense does not belong on the income view: no blind prepend
	for _, item := range c.Items() {
		require.NotEqual(t, int64(42), item.ID)
	}
	require.Greater(t, len(fc.calls()), before)
}

func TestCreate_DoubleSubmitGuard(t *testing.T) {
	release := make(chan struct{})
	fc := &fakeClient{createFn: func(d models.Draft) (models.Transaction, error) {
		<-release
		return txn(1, models.TypeExpense, 100), nil
	}}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()

	submission := c.NewSubmission()
	draft := models.Draft{Description: "x", Amount: "1", Type: models.TypeExpense, Date: "2024-01-01"}

	done := make(chan error, 1)
	go func() {
		_, err := c.Create(ctx, submission, draft)
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := c.Create(ctx, submission, draft)
		return errors.Is(err, ErrSubmitInFlight)
	}, time.Second, time.Millisecond)

	close(release)
	require.NoError(t, <-done)

	// the guard lifts once the first submission resolved
	_, err := c.Create(ctx, submission, draft)
	require.NoError(t, err)
}

func TestUpdate_ReplacesInPlacePreservingOrder(t *testing.T) {
	fc := &fakeClient{
		listFn: func(f models.Filter, page int) (api.Page, error) {
			return pageOf(1, 1,
				txn(1, models.TypeExpense, 100),
				txn(2, models.TypeExpense, 200),
				txn(3, models.TypeExpense, 300)), nil
		},
		updateFn: func(id int64, r models.Transaction) (models.Transaction, error) {
			r.ID = id
			r.Amount = 999
			return r, nil
		},
	}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	require.NoError(t, c.Update(ctx, 2, txn(2, models.TypeExpense, 200)))

	items := c.Items()
	require.Equal(t, []int64{1, 2, 3}, []int64{items[0].ID, items[1].ID, items[2].ID})
	require.Equal(t, models.Amount(999), items[1].Amount)
}

func TestUpdate_NotFoundDropsItemLocally(t *testing.T) {
	fc := &fakeClient{
		listFn: func(f models.Filter, page int) (api.Page, error) {
			return pageOf(1, 1, txn(1, models.TypeExpense, 100)), nil
		},
		updateFn: func(id int64, r models.Transaction) (models.Transaction, error) {
			return models.Transaction{}, common.ErrorNotFound
		},
	}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	require.NoError(t, c.Update(ctx, 1, txn(1, models.TypeExpense, 100)))
	require.Empty(t, c.Items())
}

func TestDelete_RemovesAndToleratesRepeat(t *testing.T) {
	var deleted atomic.Bool
	fc := &fakeClient{
		listFn: func(f models.Filter, page int) (api.Page, error) {
			return pageOf(1, 1, txn(1, models.TypeExpense, 100), txn(2, models.TypeExpense, 200)), nil
		},
		deleteFn: func(id int64) error {
			if deleted.Swap(true) {
				return common.ErrorNotFound
			}
			return nil
		},
	}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	require.NoError(t, c.Delete(ctx, 1))
	require.Len(t, c.Items(), 1)

	// already gone server-side: benign no-op
	require.NoError(t, c.Delete(ctx, 1))
	require.Len(t, c.Items(), 1)
}

func TestDelete_EmptiedNonFirstPageNavigatesBack(t *testing.T) {
	fc := &fakeClient{}
	fc.listFn = func(f models.Filter, page int) (api.Page, error) {
		if page >= 2 {
			return pageOf(2, 2, txn(21, models.TypeExpense, 100)), nil
		}
		return pageOf(1, 2, txn(1, models.TypeExpense, 100), txn(2, models.TypeExpense, 200)), nil
	}
	c := NewController(fc, nil, testLogger())
	ctx := context.Background()
	require.NoError(t, c.SetPage(ctx, 2))
	require.Len(t, c.Items(), 1)

	require.NoError(t, c.Delete(ctx, 21))

	require.Equal(t, 1, c.Page())
	require.Len(t, c.Items(), 2)
}

func TestLoadMore_AppendsAndDedups(t *testing.T) {
	fc := &fakeClient{}
	fc.listFn = func(f models.Filter, page int) (api.Page, error) {
		if page == 1 {
			return pageOf(1, 2, txn(1, models.TypeExpense, 100), txn(2, models.TypeExpense, 200)), nil
		}
		// item 2 straddles both pages after a concurrent mutation
		return pageOf(2, 2, txn(2, models.TypeExpense, 200), txn(3, models.TypeExpense, 300)), nil
	}
	c := NewInfiniteScrollController(fc, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.LoadMore(ctx))

	items := c.Items()
	require.Len(t, items, 3)
	require.Equal(t, []int64{1, 2, 3}, []int64{items[0].ID, items[1].ID, items[2].ID})

	// already on the last page
	before := len(fc.calls())
	require.NoError(t, c.LoadMore(ctx))
	require.Len(t, fc.calls(), before)
}

func TestRefresh_ResponseAfterLogoutDiscarded(t *testing.T) {
	auth := &fakeAuth{}
	auth.authed.Store(true)

	release := make(chan struct{})
	fc := &fakeClient{listFn: func(f models.Filter, page int) (api.Page, error) {
		<-release
		return pageOf(1, 1, txn(1, models.TypeExpense, 100)), nil
	}}
	c := NewController(fc, auth, testLogger())

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()

	require.Eventually(t, func() bool { return len(fc.calls()) == 1 }, time.Second, time.Millisecond)
	auth.authed.Store(false) // logged out while the request is in flight
	close(release)

	require.NoError(t, <-done)
	require.Empty(t, c.Items())
	require.Equal(t, StateIdle, c.State())
}

func TestTotals_OverVisibleItems(t *testing.T) {
	fc := &fakeClient{listFn: func(f models.Filter, page int) (api.Page, error) {
		return pageOf(1, 1, txn(1, models.TypeIncome, 10000), txn(2, models.TypeExpense, 4000)), nil
	}}
	c := NewController(fc, nil, testLogger())
	require.NoError(t, c.Refresh(context.Background()))

	totals := c.Totals()
	require.Equal(t, models.Amount(10000), totals.Income)
	require.Equal(t, models.Amount(4000), totals.Expense)
	require.Equal(t, int64(6000), totals.Balance)
}

func TestOverview_FetchesSummaryAndPage(t *testing.T) {
	fc := &fakeClient{
		listFn: func(f models.Filter, page int) (api.Page, error) {
			return pageOf(1, 1, txn(1, models.TypeIncome, 10000)), nil
		},
		summaryFn: func(f models.Filter) (models.Totals, error) {
			return models.Totals{Income: 10000, Expense: 4000, Balance: 6000, Count: 2}, nil
		},
	}
	c := NewController(fc, nil, testLogger())

	totals, err := c.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(6000), totals.Balance)
	require.Len(t, c.Items(), 1)
}

func TestExport_PassesActiveFilter(t *testing.T) {
	var gotFilter models.Filter
	fc := &fakeClient{
		exportFn: func(f models.Filter) ([]byte, error) {
			gotFilter = f
			return []byte("csv"), nil
		},
	}
	c := NewController(fc, nil, testLogger())
	require.NoError(t, c.SetFilter(context.Background(), models.Filter{Category: "food"}))

	data, err := c.Export(context.Background())
	require.NoError(t, err)
	require.Equal(t, "csv", string(data))
	require.Equal(t, "food", gotFilter.Category)
}
