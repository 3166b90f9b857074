package resource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type category struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client[category] {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	return New[category](srv.URL+"/", "categories", opts...)
}

type tableStatus string

type openFlag bool

func TestParamsValuesOmitsUnsetEntries(t *testing.T) {
	var nilString *string
	emptyStatus := tableStatus("")
	zero := 0
	values := Params{
		Q:        "",
		Page:     0,
		PageSize: 0,
		Filters: map[string]any{
			"status":      "Active",
			"empty":       "",
			"missing":     nil,
			"typedNil":    nilString,
			"zero":        0,
			"zeroPtr":     &zero,
			"active":      false,
			"tableStatus": tableStatus(""),
			"statusPtr":   &emptyStatus,
			"seated":      tableStatus("occupied"),
			"open":        openFlag(true),
		},
	}.Values()

	assert.Equal(t, "Active", values.Get("status"))
	assert.Equal(t, "0", values.Get("zero"))
	assert.Equal(t, "0", values.Get("zeroPtr"))
	assert.Equal(t, "false", values.Get("active"))
	assert.Equal(t, "occupied", values.Get("seated"))
	assert.Equal(t, "true", values.Get("open"))
	for _, key := range []string{"q", "page", "pageSize", "empty", "missing", "typedNil", "tableStatus", "statusPtr"} {
		_, present := values[key]
		assert.False(t, present, "expected %s to be omitted", key)
	}
}

func TestParamsValuesPagination(t *testing.T) {
	values := Params{Q: "latte", Page: 2, PageSize: 50}.Values()
	assert.Equal(t, "latte", values.Get("q"))
	assert.Equal(t, "2", values.Get("page"))
	assert.Equal(t, "50", values.Get("pageSize"))
}

func TestListDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/categories", r.URL.Path)
		assert.Equal(t, "Coffee", r.URL.Query().Get("type"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"id":1,"name":"Espresso Bazlı","type":"Coffee"}],"total":1,"page":1,"pageSize":20}`)
	})

	page, err := client.List(context.Background(), Params{Page: 1, Filters: map[string]any{"type": "Coffee"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ID("1"), page.Items[0].ID)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 20, page.PageSize)
}

func TestCreateSendsRecordWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasID := body["id"]
		assert.False(t, hasID)
		_, _ = io.WriteString(w, `{"id":3,"name":"Soğuk İçecekler","type":"Coffee"}`)
	})

	created, err := client.Create(context.Background(), category{Name: "Soğuk İçecekler", Type: "Coffee"})
	require.NoError(t, err)
	assert.Equal(t, ID("3"), created.ID)
}

func TestUpdateSendsPatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/categories/7", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"name": "Tatlılar"}, body)
		_, _ = io.WriteString(w, `{"id":7,"name":"Tatlılar","type":"Restaurant"}`)
	})

	updated, err := client.Update(context.Background(), "7", Patch{"name": "Tatlılar"})
	require.NoError(t, err)
	assert.Equal(t, "Restaurant", updated.Type)
}

func TestRemoveAcknowledged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	require.NoError(t, client.Remove(context.Background(), "1"))
}

func TestRemoveNotAcknowledged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false}`)
	})
	err := client.Remove(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not acknowledged")
}

func TestErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":{"code":"category_in_use","message":"category has products"}}`)
	})

	err := client.Remove(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.Contains(t, err.Error(), "category has products")
}

func TestErrorFallsBackToStatusText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Get(context.Background(), "99")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, strings.HasSuffix(err.Error(), "404 Not Found"))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New[category](url, "categories")
	_, err := client.List(context.Background(), Params{})
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Contains(t, err.Error(), "GET /categories")
}

func TestRequestEditorsApplied(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.Header.Get("X-Tenant-ID"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"items":[],"total":0,"page":1,"pageSize":20}`)
	}, WithRequestEditor(func(r *http.Request) {
		r.Header.Set("X-Tenant-ID", "42")
		r.Header.Set("Authorization", "Bearer tok")
	}))

	page, err := client.List(context.Background(), Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestIDJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c,omitempty"`
	}{A: "12", B: "tmp-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":"tmp-1"}`, string(raw))

	var decoded struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"abc"}`), &decoded))
	assert.Equal(t, ID("12"), decoded.A)
	assert.Equal(t, ID("abc"), decoded.B)

	_, ok := ID("007").Int64()
	assert.False(t, ok)
}

func TestFetchDecodesSingleDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard", r.URL.Path)
		assert.Equal(t, "2026-03-01T00:00:00Z", r.URL.Query().Get("since"))
		_, _ = io.WriteString(w, `{"ordersCount":12,"revenue":1450.5}`)
	}))
	t.Cleanup(srv.Close)

	type summary struct {
		OrdersCount int     `json:"ordersCount"`
		Revenue     float64 `json:"revenue"`
	}
	client := New[summary](srv.URL, "dashboard", WithHTTPClient(srv.Client()))
	got, err := client.Fetch(context.Background(), url.Values{"since": {"2026-03-01T00:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, 12, got.OrdersCount)
	assert.Equal(t, 1450.5, got.Revenue)
}
