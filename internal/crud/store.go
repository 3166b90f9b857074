// Package crud keeps client-side list state for one REST resource and
// routes every mutation through it optimistically.
//
// A Store fetches the current page on construction and whenever its query
// parameters change. Add, Update and Remove apply their effect to the local
// list first, call the server, and either settle on the server's answer or
// roll the list back and return the error.
package crud

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"cafepanel/internal/resource"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers handed to optimistic records before the
// server has assigned the real one.
const TempIDPrefix = "tmp-"

const DefaultPageSize = 20

var ErrClosed = errors.New("crud: store closed")

// Record is implemented by value types that carry a resource identifier.
type Record[T any] interface {
	RecordID() resource.ID
	WithID(id resource.ID) T
}

// API is the resource surface a Store drives. *resource.Client satisfies it.
type API[T any] interface {
	List(ctx context.Context, params resource.Params) (resource.Page[T], error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, id resource.ID, patch resource.Patch) (T, error)
	Remove(ctx context.Context, id resource.ID) error
}

// Validator lets a record reject itself before any request is made.
type Validator interface {
	Validate() error
}

// ValidationError reports a client-side rejection; the server was not
// contacted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// State is an immutable view of the store. Items and Filters are copies.
type State[T any] struct {
	Items    []T
	Total    int
	Loading  bool
	Err      error
	Query    string
	Page     int
	PageSize int
	Filters  map[string]any
}

func (s State[T]) Params() resource.Params {
	return resource.Params{
		Q:        s.Query,
		Page:     s.Page,
		PageSize: s.PageSize,
		Filters:  maps.Clone(s.Filters),
	}
}

type Option func(*options)

type options struct {
	query    string
	page     int
	pageSize int
	filters  map[string]any
}

// WithPage selects the page of the first fetch.
func WithPage(n int) Option {
	return func(o *options) {
		o.page = n
	}
}

func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

func WithQuery(q string) Option {
	return func(o *options) {
		o.query = q
	}
}

func WithFilters(filters map[string]any) Option {
	return func(o *options) {
		o.filters = maps.Clone(filters)
	}
}

// Store holds one page of a resource list and applies mutations to it
// optimistically. It is safe for concurrent use. Mutations are not
// serialised against each other: two overlapping failures on the same
// record may restore an older view until the next fetch.
type Store[T Record[T]] struct {
	api API[T]

	mu     sync.Mutex
	state  State[T]
	gen    uint64
	loads  uint64
	cancel context.CancelFunc
	closed bool

	subs    map[int]func(State[T])
	nextSub int
}

// New builds a store over api and performs the first fetch before
// returning. Fetch failures end up in State.Err.
func New[T Record[T]](ctx context.Context, api API[T], opts ...Option) *Store[T] {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize <= 0 {
		o.pageSize = DefaultPageSize
	}
	if o.page < 1 {
		o.page = 1
	}
	if o.filters == nil {
		o.filters = map[string]any{}
	}
	s := &Store[T]{
		api: api,
		state: State[T]{
			Items:    []T{},
			Query:    o.query,
			Page:     o.page,
			PageSize: o.pageSize,
			Filters:  o.filters,
		},
		subs: make(map[int]func(State[T])),
	}
	s.Refresh(ctx)
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes the subscription.
func (s *Store[T]) Subscribe(fn func(State[T])) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close stops all further state writes. Pending fetches are cancelled and
// their results dropped.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.subs = map[int]func(State[T]){}
}

// Refresh fetches the page described by the current parameters. A fetch
// that is overtaken by a newer one is cancelled and its result discarded.
func (s *Store[T]) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	params := s.state.Params()
	s.state.Loading = true
	s.state.Err = nil
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, snap)

	page, err := s.api.List(fetchCtx, params)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		cancel()
		return
	}
	cancel()
	s.cancel = nil
	s.state.Loading = false
	if err != nil {
		s.state.Err = err
	} else {
		s.state.Items = slices.Clone(page.Items)
		if s.state.Items == nil {
			s.state.Items = []T{}
		}
		s.state.Total = page.Total
		s.loads++
	}
	snap, subs = s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

func (s *Store[T]) SetQuery(ctx context.Context, q string) {
	s.setParams(ctx, func(st *State[T]) {
		st.Query = q
		st.Page = 1
	})
}

func (s *Store[T]) SetPage(ctx context.Context, page int) {
	if page < 1 {
		page = 1
	}
	s.setParams(ctx, func(st *State[T]) {
		st.Page = page
	})
}

func (s *Store[T]) SetPageSize(ctx context.Context, size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	s.setParams(ctx, func(st *State[T]) {
		st.PageSize = size
		st.Page = 1
	})
}

// SetFilter merges one filter entry and returns to the first page.
func (s *Store[T]) SetFilter(ctx context.Context, key string, value any) {
	s.setParams(ctx, func(st *State[T]) {
		filters := maps.Clone(st.Filters)
		if filters == nil {
			filters = map[string]any{}
		}
		filters[key] = value
		st.Filters = filters
		st.Page = 1
	})
}

func (s *Store[T]) ClearFilters(ctx context.Context) {
	s.setParams(ctx, func(st *State[T]) {
		st.Filters = map[string]any{}
		st.Page = 1
	})
}

func (s *Store[T]) setParams(ctx context.Context, change func(st *State[T])) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	change(&s.state)
	s.mu.Unlock()
	s.Refresh(ctx)
}

// Add inserts record at the head of the list under a temporary id, then
// creates it on the server. On success the placeholder is swapped for the
// server's record; on failure it is dropped and the error returned.
func (s *Store[T]) Add(ctx context.Context, record T) (T, error) {
	var zero T
	if err := validate(record); err != nil {
		return zero, err
	}

	tempID := resource.ID(TempIDPrefix + uuid.NewString())
	placeholder := record.WithID(tempID)
	s.apply(func(st *State[T]) {
		items := make([]T, 0, len(st.Items)+1)
		items = append(items, placeholder)
		st.Items = append(items, st.Items...)
		st.Total++
	})

	created, err := s.api.Create(ctx, record.WithID(""))
	if err != nil {
		s.apply(func(st *State[T]) {
			if items, ok := without(st.Items, tempID); ok {
				st.Items = items
				st.Total--
			}
		})
		return zero, err
	}

	s.apply(func(st *State[T]) {
		if items, ok := replaced(st.Items, tempID, created); ok {
			st.Items = items
		}
	})
	return created, nil
}

// Update merges patch into the matching record, then updates it on the
// server. On failure the list returns to its pre-call snapshot.
func (s *Store[T]) Update(ctx context.Context, id resource.ID, patch resource.Patch) (T, error) {
	var zero T

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.api.Update(ctx, id, patch)
	}
	snapshot, snapshotTotal, loads := s.state.Items, s.state.Total, s.loads
	if idx := indexOf(snapshot, id); idx >= 0 {
		merged, err := Merge(snapshot[idx], patch)
		if err != nil {
			s.mu.Unlock()
			return zero, &ValidationError{Err: err}
		}
		merged = merged.WithID(id)
		if err := validate(merged); err != nil {
			s.mu.Unlock()
			return zero, err
		}
		items := slices.Clone(snapshot)
		items[idx] = merged
		s.state.Items = items
	}
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, snap)

	updated, err := s.api.Update(ctx, id, patch)
	if err != nil {
		s.restore(snapshot, snapshotTotal, loads)
		return zero, err
	}

	s.apply(func(st *State[T]) {
		if items, ok := replaced(st.Items, id, updated); ok {
			st.Items = items
		}
	})
	return updated, nil
}

// Remove drops the matching record, then deletes it on the server. On
// failure the list returns to its pre-call snapshot.
func (s *Store[T]) Remove(ctx context.Context, id resource.ID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.api.Remove(ctx, id)
	}
	snapshot, snapshotTotal, loads := s.state.Items, s.state.Total, s.loads
	if items, ok := without(snapshot, id); ok {
		s.state.Items = items
		s.state.Total--
	}
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, snap)

	if err := s.api.Remove(ctx, id); err != nil {
		s.restore(snapshot, snapshotTotal, loads)
		return err
	}
	return nil
}

// restore puts a snapshot back unless a newer fetch has replaced the list
// in the meantime; the fetched list is then the better truth.
func (s *Store[T]) restore(items []T, total int, loads uint64) {
	s.apply(func(st *State[T]) {
		if s.loads != loads {
			return
		}
		st.Items = items
		st.Total = total
	})
}

func (s *Store[T]) apply(change func(st *State[T])) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	change(&s.state)
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, snap)
}

func (s *Store[T]) snapshotLocked() State[T] {
	snap := s.state
	snap.Items = slices.Clone(s.state.Items)
	if snap.Items == nil {
		snap.Items = []T{}
	}
	snap.Filters = maps.Clone(s.state.Filters)
	return snap
}

func (s *Store[T]) subscribersLocked() []func(State[T]) {
	if len(s.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(State[T]), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func notify[T any](subs []func(State[T]), snap State[T]) {
	for _, fn := range subs {
		fn(snap)
	}
}

func validate(record any) error {
	v, ok := record.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// IsTemporary reports whether id was assigned by Add and not yet replaced.
func IsTemporary(id resource.ID) bool {
	return strings.HasPrefix(id.String(), TempIDPrefix)
}

func indexOf[T Record[T]](items []T, id resource.ID) int {
	return slices.IndexFunc(items, func(item T) bool {
		return item.RecordID() == id
	})
}

func without[T Record[T]](items []T, id resource.ID) ([]T, bool) {
	idx := indexOf(items, id)
	if idx < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...), true
}

func replaced[T Record[T]](items []T, id resource.ID, record T) ([]T, bool) {
	idx := indexOf(items, id)
	if idx < 0 {
		return items, false
	}
	out := slices.Clone(items)
	out[idx] = record
	return out, true
}
