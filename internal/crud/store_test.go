package crud

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"cafepanel/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type category struct {
	ID   resource.ID `json:"id,omitempty"`
	Name string      `json:"name"`
	Type string      `json:"type"`
	Tags []string    `json:"tags,omitempty"`
}

func (c category) RecordID() resource.ID { return c.ID }

func (c category) WithID(id resource.ID) category {
	c.ID = id
	return c
}

func (c category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type fakeAPI struct {
	listFn   func(ctx context.Context, params resource.Params) (resource.Page[category], error)
	createFn func(ctx context.Context, record category) (category, error)
	updateFn func(ctx context.Context, id resource.ID, patch resource.Patch) (category, error)
	removeFn func(ctx context.Context, id resource.ID) error
}

func (f fakeAPI) List(ctx context.Context, params resource.Params) (resource.Page[category], error) {
	if f.listFn == nil {
		return resource.Page[category]{}, nil
	}
	return f.listFn(ctx, params)
}

func (f fakeAPI) Create(ctx context.Context, record category) (category, error) {
	if f.createFn == nil {
		return record, nil
	}
	return f.createFn(ctx, record)
}

func (f fakeAPI) Update(ctx context.Context, id resource.ID, patch resource.Patch) (category, error) {
	if f.updateFn == nil {
		return category{ID: id}, nil
	}
	return f.updateFn(ctx, id, patch)
}

func (f fakeAPI) Remove(ctx context.Context, id resource.ID) error {
	if f.removeFn == nil {
		return nil
	}
	return f.removeFn(ctx, id)
}

var errNetwork = errors.New("dial tcp: connection refused")

func seedCategories() []category {
	return []category{
		{ID: "1", Name: "Espresso Bazlı", Type: "Coffee"},
		{ID: "2", Name: "Kahvaltı Menüsü", Type: "Restaurant"},
	}
}

func seededList(ctx context.Context, params resource.Params) (resource.Page[category], error) {
	return resource.Page[category]{Items: seedCategories(), Total: 2, Page: 1, PageSize: 20}, nil
}

type paramsRecorder struct {
	mu     sync.Mutex
	params []resource.Params
}

func (r *paramsRecorder) record(p resource.Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = append(r.params, p)
}

func (r *paramsRecorder) last() resource.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params[len(r.params)-1]
}

func TestNewFetchesFirstPage(t *testing.T) {
	rec := &paramsRecorder{}
	api := fakeAPI{listFn: func(ctx context.Context, params resource.Params) (resource.Page[category], error) {
		rec.record(params)
		return seededList(ctx, params)
	}}

	s := New[category](context.Background(), api)
	snap := s.Snapshot()

	assert.Equal(t, seedCategories(), snap.Items)
	assert.Equal(t, 2, snap.Total)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
	assert.Equal(t, 1, rec.last().Page)
	assert.Equal(t, DefaultPageSize, rec.last().PageSize)
}

func TestAddReplacesTemporaryID(t *testing.T) {
	var s *Store[category]
	api := fakeAPI{
		listFn: seededList,
		createFn: func(ctx context.Context, record category) (category, error) {
			assert.True(t, record.ID.IsZero(), "create must not send an id")
			during := s.Snapshot()
			require.Len(t, during.Items, 3)
			assert.True(t, IsTemporary(during.Items[0].ID))
			assert.Equal(t, "Soğuk İçecekler", during.Items[0].Name)
			record.ID = "3"
			return record, nil
		},
	}
	s = New[category](context.Background(), api)

	created, err := s.Add(context.Background(), category{Name: "Soğuk İçecekler", Type: "Coffee"})
	require.NoError(t, err)
	assert.Equal(t, resource.ID("3"), created.ID)

	snap := s.Snapshot()
	require.Len(t, snap.Items, 3)
	assert.Equal(t, resource.ID("3"), snap.Items[0].ID)
	for _, item := range snap.Items {
		assert.False(t, IsTemporary(item.ID), "temporary id %s left in list", item.ID)
	}
	assert.Equal(t, 3, snap.Total)
}

func TestAddFailureRemovesPlaceholder(t *testing.T) {
	api := fakeAPI{
		listFn: seededList,
		createFn: func(ctx context.Context, record category) (category, error) {
			return category{}, errNetwork
		},
	}
	s := New[category](context.Background(), api)
	before := s.Snapshot()

	_, err := s.Add(context.Background(), category{Name: "Soğuk İçecekler", Type: "Coffee"})
	require.ErrorIs(t, err, errNetwork)

	after := s.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Total, after.Total)
}

func TestAddValidationShortCircuits(t *testing.T) {
	called := false
	api := fakeAPI{
		listFn: seededList,
		createFn: func(ctx context.Context, record category) (category, error) {
			called = true
			return record, nil
		},
	}
	s := New[category](context.Background(), api)

	_, err := s.Add(context.Background(), category{Name: "  ", Type: "Coffee"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.False(t, called)
	assert.Equal(t, seedCategories(), s.Snapshot().Items)
}

func TestUpdateAppliesOptimisticallyThenServerRecord(t *testing.T) {
	var s *Store[category]
	api := fakeAPI{
		listFn: seededList,
		updateFn: func(ctx context.Context, id resource.ID, patch resource.Patch) (category, error) {
			during := s.Snapshot()
			assert.Equal(t, "Espresso Menüsü", during.Items[0].Name)
			assert.Equal(t, "Coffee", during.Items[0].Type)
			return category{ID: id, Name: "Espresso Menüsü", Type: "Coffee", Tags: []string{"hot"}}, nil
		},
	}
	s = New[category](context.Background(), api)

	updated, err := s.Update(context.Background(), "1", resource.Patch{"name": "Espresso Menüsü"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hot"}, updated.Tags)

	snap := s.Snapshot()
	assert.Equal(t, updated, snap.Items[0])
	assert.Equal(t, seedCategories()[1], snap.Items[1])
}

func TestUpdatePatchCannotChangeID(t *testing.T) {
	var s *Store[category]
	api := fakeAPI{
		listFn: seededList,
		updateFn: func(ctx context.Context, id resource.ID, patch resource.Patch) (category, error) {
			assert.Equal(t, resource.ID("1"), s.Snapshot().Items[0].ID)
			return category{}, errNetwork
		},
	}
	s = New[category](context.Background(), api)
	_, err := s.Update(context.Background(), "1", resource.Patch{"id": 99})
	require.Error(t, err)
}

func TestUpdateFailureRestoresSnapshot(t *testing.T) {
	api := fakeAPI{
		listFn: seededList,
		updateFn: func(ctx context.Context, id resource.ID, patch resource.Patch) (category, error) {
			return category{}, &resource.StatusError{Method: "PATCH", Path: "/categories/2", StatusCode: 500}
		},
	}
	s := New[category](context.Background(), api)
	before := s.Snapshot()

	_, err := s.Update(context.Background(), "2", resource.Patch{"name": "Brunch", "type": "Coffee"})
	require.Error(t, err)
	assert.Equal(t, 500, resource.StatusCode(err))

	after := s.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Total, after.Total)
}

func TestUpdateRejectsInvalidMerge(t *testing.T) {
	called := false
	api := fakeAPI{
		listFn: seededList,
		updateFn: func(ctx context.Context, id resource.ID, patch resource.Patch) (category, error) {
			called = true
			return category{}, nil
		},
	}
	s := New[category](context.Background(), api)

	_, err := s.Update(context.Background(), "1", resource.Patch{"name": ""})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.False(t, called)
}

func TestRemoveSuccess(t *testing.T) {
	var s *Store[category]
	api := fakeAPI{
		listFn: seededList,
		removeFn: func(ctx context.Context, id resource.ID) error {
			assert.Len(t, s.Snapshot().Items, 1)
			return nil
		},
	}
	s = New[category](context.Background(), api)

	require.NoError(t, s.Remove(context.Background(), "1"))
	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, resource.ID("2"), snap.Items[0].ID)
	assert.Equal(t, 1, snap.Total)
}

func TestRemoveNetworkFailureRestoresList(t *testing.T) {
	api := fakeAPI{
		listFn: seededList,
		removeFn: func(ctx context.Context, id resource.ID) error {
			return errNetwork
		},
	}
	s := New[category](context.Background(), api)

	err := s.Remove(context.Background(), "1")
	require.ErrorIs(t, err, errNetwork)

	snap := s.Snapshot()
	assert.Equal(t, seedCategories(), snap.Items)
	assert.Equal(t, 2, snap.Total)
}

func TestSetFilterResetsPage(t *testing.T) {
	rec := &paramsRecorder{}
	api := fakeAPI{listFn: func(ctx context.Context, params resource.Params) (resource.Page[category], error) {
		rec.record(params)
		return seededList(ctx, params)
	}}
	s := New[category](context.Background(), api)

	s.SetPage(context.Background(), 4)
	assert.Equal(t, 4, s.Snapshot().Page)

	s.SetFilter(context.Background(), "status", "Active")
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, "Active", snap.Filters["status"])

	last := rec.last()
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, "Active", last.Filters["status"])
}

func TestSetQueryResetsPage(t *testing.T) {
	s := New[category](context.Background(), fakeAPI{listFn: seededList})
	s.SetPage(context.Background(), 3)
	s.SetQuery(context.Background(), "espresso")

	snap := s.Snapshot()
	assert.Equal(t, "espresso", snap.Query)
	assert.Equal(t, 1, snap.Page)
}

func TestFetchErrorIsStoredNotReturned(t *testing.T) {
	api := fakeAPI{listFn: func(ctx context.Context, params resource.Params) (resource.Page[category], error) {
		return resource.Page[category]{}, errNetwork
	}}
	s := New[category](context.Background(), api)

	snap := s.Snapshot()
	assert.ErrorIs(t, snap.Err, errNetwork)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Items)
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	started := make(chan struct{})
	release := make(chan struct{})
	api := fakeAPI{listFn: func(ctx context.Context, params resource.Params) (resource.Page[category], error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		switch n {
		case 1:
			return seededList(ctx, params)
		case 2:
			close(started)
			<-release
			return resource.Page[category]{Items: []category{{ID: "9", Name: "stale"}}, Total: 1}, nil
		default:
			return resource.Page[category]{Items: []category{{ID: "10", Name: "fresh"}}, Total: 1}, nil
		}
	}}
	s := New[category](context.Background(), api)

	done := make(chan struct{})
	go func() {
		s.SetQuery(context.Background(), "old")
		close(done)
	}()
	<-started
	s.SetQuery(context.Background(), "new")
	close(release)
	<-done

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "fresh", snap.Items[0].Name)
	assert.Equal(t, "new", snap.Query)
	assert.False(t, snap.Loading)
}

func TestClosedStoreDropsPendingFetch(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	started := make(chan struct{})
	release := make(chan struct{})
	api := fakeAPI{listFn: func(ctx context.Context, params resource.Params) (resource.Page[category], error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return seededList(ctx, params)
		}
		close(started)
		<-release
		return resource.Page[category]{Items: []category{{ID: "9", Name: "late"}}, Total: 1}, nil
	}}
	s := New[category](context.Background(), api)

	done := make(chan struct{})
	go func() {
		s.SetPage(context.Background(), 2)
		close(done)
	}()
	<-started
	s.Close()
	close(release)
	<-done

	assert.Equal(t, seedCategories(), s.Snapshot().Items)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := New[category](context.Background(), fakeAPI{
		listFn: seededList,
		removeFn: func(ctx context.Context, id resource.ID) error {
			return nil
		},
	})

	var seen []int
	unsubscribe := s.Subscribe(func(st State[category]) {
		seen = append(seen, len(st.Items))
	})
	require.NoError(t, s.Remove(context.Background(), "2"))
	unsubscribe()
	require.NoError(t, s.Remove(context.Background(), "1"))

	assert.Equal(t, []int{1}, seen)
}

func TestMergeLeavesOriginalUntouched(t *testing.T) {
	original := category{ID: "1", Name: "Espresso", Type: "Coffee", Tags: []string{"hot", "strong"}}
	merged, err := Merge(original, resource.Patch{"tags": []string{"iced"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"iced"}, merged.Tags)
	assert.Equal(t, []string{"hot", "strong"}, original.Tags)
	assert.Equal(t, "Espresso", merged.Name)
}

func TestWithPageSelectsFirstFetch(t *testing.T) {
	rec := &paramsRecorder{}
	api := fakeAPI{listFn: func(ctx context.Context, params resource.Params) (resource.Page[category], error) {
		rec.record(params)
		return seededList(ctx, params)
	}}

	s := New[category](context.Background(), api, WithPage(3), WithPageSize(5))
	assert.Equal(t, 3, s.Snapshot().Page)
	assert.Equal(t, 3, rec.last().Page)
	assert.Equal(t, 5, rec.last().PageSize)

	clamped := New[category](context.Background(), api, WithPage(-2))
	assert.Equal(t, 1, clamped.Snapshot().Page)
}
