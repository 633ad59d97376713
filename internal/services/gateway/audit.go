// internal/services/gateway/audit.go
package gateway

import (
	"net/http"
	"sync"
	"time"

	"jelita/internal/common/httpapi"

	"github.com/gorilla/mux"
)

type AuditEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ServiceName   string    `json:"service_name"`
	Operation     string    `json:"operation"`
	ActorID       string    `json:"actor_id,omitempty"`
	RequestID     string    `json:"request_id"`
	ResponseCode  int       `json:"response_code"`
	DurationMs    int64     `json:"duration_ms"`
}

type AuditPage struct {
	Total    int          `json:"total"`
	Returned int          `json:"returned"`
	Data     []AuditEntry `json:"data"`
}

// AuditLog is a fixed-capacity ring of request records; the oldest entry is
// overwritten once it is full.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
}

func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &AuditLog{entries: make([]AuditEntry, capacity)}
}

func (a *AuditLog) Record(e AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.full {
		return len(a.entries)
	}
	return a.next
}

// snapshot returns the entries oldest first.
func (a *AuditLog) snapshot() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.full {
		return append([]AuditEntry(nil), a.entries[:a.next]...)
	}
	out := make([]AuditEntry, 0, len(a.entries))
	out = append(out, a.entries[a.next:]...)
	return append(out, a.entries[:a.next]...)
}

// Query returns the newest limit entries, optionally restricted to one correlation id.
func (a *AuditLog) Query(correlationID string, limit int) AuditPage {
	all := a.snapshot()
	matched := all
	if correlationID != "" {
		matched = matched[:0:0]
		for _, e := range all {
			if e.CorrelationID == correlationID {
				matched = append(matched, e)
			}
		}
	}
	if limit <= 0 {
		limit = 10
	}
	data := matched
	if len(data) > limit {
		data = data[len(data)-limit:]
	}
	if data == nil {
		data = []AuditEntry{}
	}
	return AuditPage{Total: len(matched), Returned: len(data), Data: data}
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Audit records every request that reaches the gateway, including rejected ones.
func Audit(log *AuditLog) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Record(AuditEntry{
				Timestamp:     start.UTC(),
				CorrelationID: r.Header.Get(CorrelationIDHeader),
				ServiceName:   "api-gateway",
				Operation:     r.Method + " " + r.URL.Path,
				ActorID:       r.Header.Get("X-User-ID"),
				RequestID:     httpapi.RequestIDFrom(r.Context()),
				ResponseCode:  rec.status,
				DurationMs:    time.Since(start).Milliseconds(),
			})
		})
	}
}
