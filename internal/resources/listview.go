// Package resources keeps the list state behind each review screen. Every
// resource has its own view; views never share state.
package resources

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

// Fetcher loads one page of a resource
type Fetcher[T any] func(ctx context.Context, q client.ListQuery) (*models.Page[T], error)

// ViewState is a copy of a list view's state
type ViewState[T any] struct {
	Items   []T
	Loading bool
	Error   string
	Meta    models.PaginationMeta
	Query   client.ListQuery
}

// HasPrev reports whether a previous page exists
func (s ViewState[T]) HasPrev() bool {
	return s.page() > 1
}

// HasNext reports whether a next page exists
func (s ViewState[T]) HasNext() bool {
	return s.page() < s.Meta.LastPage
}

func (s ViewState[T]) page() int {
	if s.Query.Page < 1 {
		return 1
	}
	return s.Query.Page
}

// ListView holds the items, pagination and filters of one resource list.
// Only the most recently issued load may write its result.
type ListView[T any] struct {
	mu     sync.Mutex
	name   string
	fetch  Fetcher[T]
	state  ViewState[T]
	seq    uint64
	logger zerolog.Logger
}

func NewListView[T any](name string, fetch Fetcher[T], zlog zerolog.Logger) *ListView[T] {
	return &ListView[T]{
		name:   name,
		fetch:  fetch,
		state:  ViewState[T]{Items: []T{}, Query: client.ListQuery{Page: 1}},
		logger: zlog.With().Str("resource", name).Logger(),
	}
}

func (v *ListView[T]) Name() string {
	return v.name
}

// State returns a copy of the current state
func (v *ListView[T]) State() ViewState[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.copyLocked()
}

func (v *ListView[T]) copyLocked() ViewState[T] {
	st := v.state
	st.Items = append([]T(nil), v.state.Items...)
	return st
}

// Apply replaces the query. Changing any filter resets the page to 1.
func (v *ListView[T]) Apply(q client.ListQuery) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := v.state.Query
	if q.Status != cur.Status || q.Search != cur.Search || q.MemberType != cur.MemberType {
		q.Page = 1
	}
	if q.Page < 1 {
		q.Page = 1
	}
	v.state.Query = q
}

// Load fetches the page described by the current query
func (v *ListView[T]) Load(ctx context.Context) (ViewState[T], error) {
	v.mu.Lock()
	q := v.state.Query
	v.mu.Unlock()

	return v.Fetch(ctx, q)
}

// Fetch loads exactly q and returns what it got, even when a newer load was
// issued meanwhile. Only the most recent load writes the shared state, so
// callers carrying their own query never see each other's results.
func (v *ListView[T]) Fetch(ctx context.Context, q client.ListQuery) (ViewState[T], error) {
	if q.Page < 1 {
		q.Page = 1
	}

	v.mu.Lock()
	v.seq++
	seq := v.seq
	v.state.Loading = true
	v.state.Error = ""
	v.mu.Unlock()

	page, err := v.fetch(ctx, q)

	v.mu.Lock()
	defer v.mu.Unlock()

	latest := seq == v.seq
	if !latest {
		v.logger.Debug().Uint64("seq", seq).Msg("Superseded list result kept out of the view")
	}

	if err != nil {
		v.logger.Warn().Err(err).Int("page", q.Page).Msg("Failed to load list")
		if !latest {
			return ViewState[T]{Items: []T{}, Error: client.Message(err), Query: q}, err
		}
		v.state.Loading = false
		v.state.Error = client.Message(err)
		v.state.Query = q
		return v.copyLocked(), err
	}

	result := ViewState[T]{Items: page.Data, Meta: page.Meta, Query: q}
	if result.Items == nil {
		result.Items = []T{}
	}
	if page.Meta.CurrentPage > 0 {
		result.Query.Page = page.Meta.CurrentPage
	}
	if !latest {
		return result, nil
	}

	v.state = result
	return v.copyLocked(), nil
}

// Navigate fetches q moved by delta pages without consulting the shared
// state. A page past the end falls back to the last page.
func (v *ListView[T]) Navigate(ctx context.Context, q client.ListQuery, delta int) (ViewState[T], error) {
	q.Page = max(q.Page, 1) + delta
	if q.Page < 1 {
		q.Page = 1
	}

	st, err := v.Fetch(ctx, q)
	if err == nil && delta > 0 && st.Meta.LastPage > 0 && q.Page > st.Meta.LastPage {
		q.Page = st.Meta.LastPage
		return v.Fetch(ctx, q)
	}
	return st, err
}

// Refetch reloads the current page, e.g. after an approve or reject
func (v *ListView[T]) Refetch(ctx context.Context) (ViewState[T], error) {
	return v.Load(ctx)
}

// NextPage moves forward one page, never past the last page
func (v *ListView[T]) NextPage(ctx context.Context) (ViewState[T], error) {
	return v.step(ctx, 1)
}

// PrevPage moves back one page, never before the first
func (v *ListView[T]) PrevPage(ctx context.Context) (ViewState[T], error) {
	return v.step(ctx, -1)
}

func (v *ListView[T]) step(ctx context.Context, delta int) (ViewState[T], error) {
	v.mu.Lock()
	q := v.state.Query
	target := clampPage(v.state.page()+delta, v.state.Meta.LastPage)
	if target == v.state.page() {
		st := v.copyLocked()
		v.mu.Unlock()
		return st, nil
	}
	v.mu.Unlock()

	q.Page = target
	return v.Fetch(ctx, q)
}

func clampPage(page, last int) int {
	if last < 1 {
		last = 1
	}
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	return page
}
