package httpapi

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	requestsTotal    = expvar.NewInt("requests_total")
	requestsErrors   = expvar.NewInt("requests_errors_total")
	requestsByStatus = expvar.NewMap("requests_by_status")
)

// accessEntry collects what the access log reports about one request.
// AuthMiddleware fills in the caller once the token is verified.
type accessEntry struct {
	requestID string
	userID    string
	role      string
}

type accessEntryKey struct{}

func accessEntryFrom(ctx context.Context) *accessEntry {
	entry, _ := ctx.Value(accessEntryKey{}).(*accessEntry)
	return entry
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// LoggingMiddleware writes one access line per request and counts it on
// /metrics. Requests without an X-Request-ID get one, echoed back in the
// response.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := &accessEntry{requestID: strings.TrimSpace(r.Header.Get("X-Request-ID"))}
		if entry.requestID == "" {
			entry.requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", entry.requestID)
		}
		w.Header().Set("X-Request-ID", entry.requestID)

		rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), accessEntryKey{}, entry)))

		requestsTotal.Add(1)
		requestsByStatus.Add(strconv.Itoa(rw.status), 1)
		if rw.status >= http.StatusBadRequest {
			requestsErrors.Add(1)
		}
		log.Printf("request method=%s path=%s status=%d bytes=%d duration_ms=%d tenant=%s user=%s role=%s request_id=%s",
			r.Method, r.URL.Path, rw.status, rw.bytes, time.Since(start).Milliseconds(),
			r.Header.Get("X-Tenant-ID"), entry.userID, entry.role, entry.requestID)
	})
}
