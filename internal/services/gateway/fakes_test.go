package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	commonhttp "jelita/internal/common/http"
	"jelita/internal/common/logger"
	"jelita/internal/common/sideeffect"
)

type ossCall struct {
	key           string
	correlationID string
	app           OSSApplication
}

// fakeOSS fails the first failures submits with failStatus, then accepts.
type fakeOSS struct {
	mu         sync.Mutex
	calls      []ossCall
	failures   int
	failStatus int
	failBody   string
	byKey      map[string]*OSSSubmission
	statuses   map[string]*OSSStatus
	healthErr  error
}

func newFakeOSS() *fakeOSS {
	return &fakeOSS{byKey: map[string]*OSSSubmission{}, statuses: map[string]*OSSStatus{}}
}

func (f *fakeOSS) Submit(_ context.Context, key, correlationID string, app OSSApplication) (*OSSSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ossCall{key: key, correlationID: correlationID, app: app})
	if f.failures > 0 {
		f.failures--
		return nil, &commonhttp.StatusError{Service: "oss-rba", StatusCode: f.failStatus, Body: f.failBody}
	}
	if sub, ok := f.byKey[key]; ok {
		return sub, nil
	}
	sub := &OSSSubmission{
		OSSReferenceID: fmt.Sprintf("OSS-2026%05d", len(f.byKey)+1),
		Status:         "PENDING",
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	f.byKey[key] = sub
	return sub, nil
}

func (f *fakeOSS) Status(_ context.Context, ref string) (*OSSStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.statuses[ref]; ok {
		return st, nil
	}
	return nil, &commonhttp.StatusError{
		Service: "oss-rba", StatusCode: 404,
		Body: `{"error":{"code":"NOT_FOUND","message":"Application with reference_id '` + ref + `' not found"}}`,
	}
}

func (f *fakeOSS) Health(context.Context) (json.RawMessage, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return json.RawMessage(`{"status":"OK"}`), nil
}

func (f *fakeOSS) submitCalls() []ossCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ossCall(nil), f.calls...)
}

type fakeRegistration struct {
	mu         sync.Mutex
	references map[int64]string
	callbacks  []map[string]interface{}
	recordErr  error
	relayErr   error
}

func newFakeRegistration() *fakeRegistration {
	return &fakeRegistration{references: map[int64]string{}}
}

func (f *fakeRegistration) RecordOSSReference(_ context.Context, id int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.references[id] = ref
	return nil
}

func (f *fakeRegistration) RelayCallback(_ context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.relayErr != nil {
		return nil, f.relayErr
	}
	f.callbacks = append(f.callbacks, payload)
	return json.RawMessage(`{"permohonan_id":10,"status":"approved","nomor_registrasi":"IZN-1"}`), nil
}

func (f *fakeRegistration) reference(id int64) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.references[id]
	return ref, ok
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:4000: connect: connection refused")

func testConfig() *Config {
	return &Config{
		OSSBaseURL:        "http://oss.test",
		OSSTimeout:        time.Second,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
		DownstreamTimeout: time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
		LimiterSize:       100,
		LimiterIdle:       time.Minute,
		AuditCapacity:     50,
		Directory: []DirectoryEntry{
			{Name: "api-gateway", Version: "1.0.0", URL: "http://localhost:8080", Owner: "JELITA", SLA: "99.0%"},
			{Name: "oss-rba", Version: "v1", URL: "http://oss.test", Owner: "JELITA", SLA: "99.0%"},
		},
	}
}

func newTestService(cfg *Config, oss OSS, reg Registration) *Service {
	log := logger.NewNoOpLogger()
	effects := sideeffect.NewDispatcher(log, nil, time.Second)
	return NewService(cfg, oss, reg, effects, NewAuditLog(cfg.AuditCapacity), log)
}

func validSubmission(id int64) map[string]interface{} {
	return map[string]interface{}{
		"permohonan_id": float64(id),
		"license_type":  "UMKU",
		"applicant": map[string]interface{}{
			"name":      "Siti Aminah",
			"id_number": "3201234567890123",
			"email":     "siti@example.id",
		},
		"business": map[string]interface{}{
			"field": "Kuliner",
			"scale": "MIKRO",
		},
	}
}
