package resources

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

// pagedFetcher serves lastPage pages of one item each and records queries
type pagedFetcher[T any] struct {
	mu       sync.Mutex
	lastPage int
	item     func(page int) T
	queries  []client.ListQuery
	err      error
	delay    time.Duration
}

func (f *pagedFetcher[T]) fetch(ctx context.Context, q client.ListQuery) (*models.Page[T], error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	return &models.Page[T]{
		Data: []T{f.item(page)},
		Meta: models.PaginationMeta{CurrentPage: page, LastPage: f.lastPage, PerPage: 1, Total: f.lastPage},
	}, nil
}

func (f *pagedFetcher[T]) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func applicationFetcher(lastPage int) *pagedFetcher[models.MembershipApplication] {
	return &pagedFetcher[models.MembershipApplication]{
		lastPage: lastPage,
		item: func(page int) models.MembershipApplication {
			return models.MembershipApplication{ID: int64(page), Status: models.StatusPending}
		},
	}
}

func TestListView_LoadAndPaginate(t *testing.T) {
	f := applicationFetcher(3)
	v := NewListView[models.MembershipApplication]("applications", f.fetch, zerolog.Nop())

	st, err := v.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Query.Page)
	assert.False(t, st.HasPrev())
	assert.True(t, st.HasNext())

	st, err = v.NextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Query.Page)
	assert.Equal(t, int64(2), st.Items[0].ID)

	st, err = v.NextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Query.Page)
	assert.False(t, st.HasNext())

	// Clamped at the last page, no request issued
	calls := f.calls()
	st, err = v.NextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Query.Page)
	assert.Equal(t, calls, f.calls())

	st, err = v.PrevPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Query.Page)
}

func TestListView_PrevPageClampedAtFirst(t *testing.T) {
	f := applicationFetcher(1)
	v := NewListView[models.MembershipApplication]("applications", f.fetch, zerolog.Nop())

	_, err := v.Load(context.Background())
	require.NoError(t, err)

	st, err := v.PrevPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Query.Page)
	assert.Equal(t, 1, f.calls())
}

func TestListView_FilterChangeResetsPage(t *testing.T) {
	f := applicationFetcher(5)
	v := NewListView[models.MembershipApplication]("applications", f.fetch, zerolog.Nop())

	v.Apply(client.ListQuery{Page: 4})
	assert.Equal(t, 4, v.State().Query.Page)

	v.Apply(client.ListQuery{Status: models.StatusApproved, Page: 4})
	assert.Equal(t, 1, v.State().Query.Page)
	assert.Equal(t, models.StatusApproved, v.State().Query.Status)

	// Same filters keep the requested page
	v.Apply(client.ListQuery{Status: models.StatusApproved, Page: 2})
	assert.Equal(t, 2, v.State().Query.Page)
}

func TestListView_ErrorKeepsPreviousItems(t *testing.T) {
	f := applicationFetcher(2)
	v := NewListView[models.MembershipApplication]("applications", f.fetch, zerolog.Nop())

	_, err := v.Load(context.Background())
	require.NoError(t, err)

	f.err = &client.Error{Kind: client.KindServer, Status: 500, Message: "HTTP error! status: 500"}
	st, err := v.Refetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP error! status: 500", st.Error)
	assert.False(t, st.Loading)
	assert.Len(t, st.Items, 1)
}

// Two resources loading at the same time keep separate loading, error and
// pagination state.
func TestViews_ConcurrentLoadsDoNotCrossContaminate(t *testing.T) {
	apps := applicationFetcher(4)
	apps.delay = 100 * time.Millisecond

	payments := &pagedFetcher[models.Payment]{
		lastPage: 9,
		err:      &client.Error{Kind: client.KindNetwork, Message: "Unable to reach the server."},
		delay:    5 * time.Millisecond,
		item:     func(page int) models.Payment { return models.Payment{ID: int64(page)} },
	}

	appView := NewListView[models.MembershipApplication]("applications", apps.fetch, zerolog.Nop())
	payView := NewListView[models.Payment]("payments", payments.fetch, zerolog.Nop())

	appView.Apply(client.ListQuery{Status: models.StatusPending, Page: 3})
	payView.Apply(client.ListQuery{Page: 2})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = appView.Load(context.Background())
	}()
	go func() {
		defer wg.Done()
		_, _ = payView.Load(context.Background())
	}()

	// Payments settle first while applications are still loading
	require.Eventually(t, func() bool {
		return !payView.State().Loading && payView.State().Error != ""
	}, time.Second, time.Millisecond)
	assert.True(t, appView.State().Loading)
	assert.Empty(t, appView.State().Error)

	wg.Wait()

	appState := appView.State()
	assert.False(t, appState.Loading)
	assert.Empty(t, appState.Error)
	assert.Equal(t, 3, appState.Meta.CurrentPage)
	assert.Equal(t, 4, appState.Meta.LastPage)
	assert.Equal(t, models.StatusPending, appState.Query.Status)

	payState := payView.State()
	assert.False(t, payState.Loading)
	assert.Equal(t, "Unable to reach the server.", payState.Error)
	assert.Empty(t, payState.Items)
	assert.Equal(t, 2, payState.Query.Page)
	assert.Zero(t, payState.Meta.LastPage)
	assert.Empty(t, payState.Query.Status)
}

func TestListView_StaleLoadIsDropped(t *testing.T) {
	var n int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, q client.ListQuery) (*models.Page[models.Member], error) {
		if atomic.AddInt32(&n, 1) == 1 {
			<-release
			return &models.Page[models.Member]{Data: []models.Member{{Name: "stale"}}}, nil
		}
		return &models.Page[models.Member]{Data: []models.Member{{Name: "fresh"}}}, nil
	}
	v := NewListView[models.Member]("members", fetch, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = v.Load(context.Background())
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) == 1 }, time.Second, time.Millisecond)

	_, err := v.Load(context.Background())
	require.NoError(t, err)
	close(release)
	<-done

	st := v.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "fresh", st.Items[0].Name)
}

// Overlapping requests with different filters each get the page they asked
// for; only the latest one is remembered by the view.
func TestListView_FetchReturnsOwnResult(t *testing.T) {
	release := make(chan struct{})
	fetch := func(ctx context.Context, q client.ListQuery) (*models.Page[models.Payment], error) {
		if q.Status == models.StatusPending {
			<-release
		}
		return &models.Page[models.Payment]{
			Data: []models.Payment{{ID: 1, Status: q.Status}},
			Meta: models.PaginationMeta{CurrentPage: q.Page, LastPage: 1, Total: 1},
		}, nil
	}
	v := NewListView[models.Payment]("payments", fetch, zerolog.Nop())

	type result struct {
		st  ViewState[models.Payment]
		err error
	}
	pending := make(chan result, 1)
	go func() {
		st, err := v.Fetch(context.Background(), client.ListQuery{Status: models.StatusPending})
		pending <- result{st, err}
	}()
	require.Eventually(t, func() bool { return v.State().Loading }, time.Second, time.Millisecond)

	approved, err := v.Fetch(context.Background(), client.ListQuery{Status: models.StatusApproved, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Items[0].Status)

	close(release)
	got := <-pending
	require.NoError(t, got.err)
	assert.False(t, got.st.Loading)
	assert.Equal(t, models.StatusPending, got.st.Query.Status)
	require.Len(t, got.st.Items, 1)
	assert.Equal(t, models.StatusPending, got.st.Items[0].Status)

	shared := v.State()
	assert.Equal(t, models.StatusApproved, shared.Query.Status)
	assert.Equal(t, models.StatusApproved, shared.Items[0].Status)
}

func TestListView_Navigate(t *testing.T) {
	f := applicationFetcher(3)
	v := NewListView[models.MembershipApplication]("applications", f.fetch, zerolog.Nop())

	st, err := v.Navigate(context.Background(), client.ListQuery{Page: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Query.Page)

	st, err = v.Navigate(context.Background(), client.ListQuery{Page: 1}, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Query.Page)

	st, err = v.Navigate(context.Background(), client.ListQuery{Page: 3}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Query.Page)
	assert.Equal(t, int64(3), st.Items[0].ID)
}

func TestDebouncer_OnlyLastCallRuns(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var ran []string
	var mu sync.Mutex
	results := make([]error, 3)

	var wg sync.WaitGroup
	for i, term := range []string{"r", "ra", "rah"} {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			results[i] = d.Do(context.Background(), func(ctx context.Context) error {
				mu.Lock()
				ran = append(ran, term)
				mu.Unlock()
				return nil
			})
		}(i, term)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []string{"rah"}, ran)
	assert.True(t, errors.Is(results[0], ErrSuperseded))
	assert.True(t, errors.Is(results[1], ErrSuperseded))
	assert.NoError(t, results[2])
}

func TestDebouncer_ContextCancelled(t *testing.T) {
	d := NewDebouncer(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Do(ctx, func(context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
