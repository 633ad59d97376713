package survey

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"jelita/internal/models"
)

// memStore serializes per permohonan id the way the unique index does.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Survey
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]*models.Survey{}}
}

func (m *memStore) Ensure(_ context.Context, s *models.Survey, touch bool) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	row, ok := m.rows[s.PermohonanID]
	if !ok {
		m.nextID++
		row = &models.Survey{
			ID:           m.nextID,
			PermohonanID: s.PermohonanID,
			JawabanJSON:  models.RawJSON(`{}`),
			Status:       models.SurveyPending,
			CreatedAt:    now,
		}
		m.rows[s.PermohonanID] = row
	}
	if row.UserID == nil {
		row.UserID = s.UserID
	}
	if s.NomorRegistrasi != nil {
		row.NomorRegistrasi = s.NomorRegistrasi
	}
	if touch {
		row.NotifiedAt = &now
	}
	row.UpdatedAt = now
	cp := *row
	return &cp, nil
}

func (m *memStore) GetByPermohonan(_ context.Context, id int64) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memStore) SubmitAnswers(_ context.Context, id, userID int64, answers models.RawJSON) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	row, ok := m.rows[id]
	if !ok {
		m.nextID++
		row = &models.Survey{ID: m.nextID, PermohonanID: id, CreatedAt: now}
		m.rows[id] = row
	}
	if row.UserID == nil {
		row.UserID = &userID
	}
	row.JawabanJSON = answers
	row.Status = models.SurveyCompleted
	row.SubmittedAt = &now
	row.UpdatedAt = now
	cp := *row
	return &cp, nil
}

func (m *memStore) UnlockDownload(_ context.Context, id int64) (*models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.Status != models.SurveyCompleted {
		return nil, ErrNotCompleted
	}
	if row.DownloadUnlockedAt == nil {
		now := time.Now()
		row.DownloadUnlockedAt = &now
	}
	row.DownloadUnlocked = true
	cp := *row
	return &cp, nil
}

func (m *memStore) List(_ context.Context, q RecapQuery) ([]models.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Survey{}
	for _, row := range m.rows {
		if q.Status != "" && row.Status != q.Status {
			continue
		}
		if q.StartDate != nil && (row.SubmittedAt == nil || row.SubmittedAt.Before(*q.StartDate)) {
			continue
		}
		if q.EndDate != nil && (row.SubmittedAt == nil || row.SubmittedAt.After(*q.EndDate)) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakePeers struct {
	mu         sync.Mutex
	downloads  []int64
	archives   []archiveTriggerRequest
	archiveErr error
	regErr     error
}

func (f *fakePeers) UpdateDownloadStatus(_ context.Context, id int64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, id)
	return f.regErr
}

func (f *fakePeers) TriggerArchive(_ context.Context, req archiveTriggerRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archives = append(f.archives, req)
	if f.archiveErr != nil {
		return nil, f.archiveErr
	}
	return json.RawMessage(`{"success":true}`), nil
}

func (f *fakePeers) archiveCalls() []archiveTriggerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]archiveTriggerRequest(nil), f.archives...)
}

func (f *fakePeers) downloadCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.downloads...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	fail map[string]bool
}

func (f *fakeNotifier) Deliver(_ context.Context, n models.Notification) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[n.Channel] {
		n.Status = models.DeliveryFailed
		return n, errors.New("channel unavailable")
	}
	n.Status = models.DeliverySent
	n.MessageID = "msg-" + n.Channel
	f.sent = append(f.sent, n)
	return n, nil
}
