package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"jelita/internal/models"
)

// memStore mirrors the guarded UPDATE semantics of PostgresStore in memory.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	dispositions map[int64]*models.Disposition
	reviews      []models.TechnicalReview
	drafts       map[int64]*models.DraftLicense
	revisions    map[int64]*models.RevisionRequest

	failRevisionInsert bool
}

func newMemStore() *memStore {
	return &memStore{
		dispositions: map[int64]*models.Disposition{},
		drafts:       map[int64]*models.DraftLicense{},
		revisions:    map[int64]*models.RevisionRequest{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateDisposition(_ context.Context, d *models.Disposition) (*models.Disposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.ID = m.id()
	cp.Status = models.TaskPending
	cp.TanggalDisposisi = time.Now()
	cp.UpdatedAt = cp.TanggalDisposisi
	m.dispositions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetDisposition(_ context.Context, id int64) (*models.Disposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dispositions[id]
	if !ok {
		return nil, ErrDispositionNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListDispositions(_ context.Context, f DispositionFilter) ([]models.Disposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Disposition{}
	for _, d := range m.dispositions {
		if f.OPDID != nil && d.OPDID != *f.OPDID {
			continue
		}
		if f.PermohonanID != nil && d.PermohonanID != *f.PermohonanID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) AdvanceDisposition(_ context.Context, id int64, from, to models.TaskStatus) (*models.Disposition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dispositions[id]
	if !ok || d.Status != from {
		return nil, ErrStatusConflict
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	cp := *d
	return &cp, nil
}

func (m *memStore) CreateReview(_ context.Context, r *models.TechnicalReview) (*models.TechnicalReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.ID = m.id()
	cp.TanggalKajian = time.Now()
	m.reviews = append(m.reviews, cp)
	return &cp, nil
}

func (m *memStore) ListReviews(_ context.Context, permohonanID int64) ([]models.TechnicalReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.TechnicalReview{}
	for _, r := range m.reviews {
		if r.PermohonanID == permohonanID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) CreateDraft(_ context.Context, d *models.DraftLicense) (*models.DraftLicense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.ID = m.id()
	cp.Status = models.DraftSentToLeadership
	cp.TanggalKirimPimpinan = time.Now()
	cp.CreatedAt = cp.TanggalKirimPimpinan
	cp.UpdatedAt = cp.TanggalKirimPimpinan
	m.drafts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetDraft(_ context.Context, id int64) (*models.DraftLicense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ListDrafts(_ context.Context, f DraftFilter) ([]models.DraftLicense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.DraftLicense{}
	for _, d := range m.drafts {
		if f.PermohonanID != nil && d.PermohonanID != *f.PermohonanID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) ApproveDraft(_ context.Context, id, approver int64) (*models.DraftLicense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	now := time.Now()
	d.Status = models.DraftApproved
	d.DisetujuiOleh = &approver
	d.TanggalPersetujuan = &now
	cp := *d
	return &cp, nil
}

// RequestRevision applies both writes or neither.
func (m *memStore) RequestRevision(_ context.Context, draftID, requestedBy int64, note string) (*models.DraftLicense, *models.RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[draftID]
	if !ok {
		return nil, nil, ErrDraftNotFound
	}
	if m.failRevisionInsert {
		return nil, nil, errors.Join(ErrDatabaseQuery, errors.New("insert revisi_draft failed"))
	}
	d.Status = models.DraftNeedsRevision
	rev := &models.RevisionRequest{
		ID:            m.id(),
		DraftID:       draftID,
		DimintaOleh:   requestedBy,
		CatatanRevisi: note,
		Status:        models.TaskPending,
		TanggalRevisi: time.Now(),
	}
	m.revisions[rev.ID] = rev
	dcp, rcp := *d, *rev
	return &dcp, &rcp, nil
}

func (m *memStore) GetRevision(_ context.Context, id int64) (*models.RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.revisions[id]
	if !ok {
		return nil, ErrRevisionNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ListRevisions(_ context.Context, draftID int64) ([]models.RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.RevisionRequest{}
	for _, r := range m.revisions {
		if r.DraftID == draftID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) AdvanceRevision(_ context.Context, id int64, from, to models.TaskStatus, completedBy *int64) (*models.RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.revisions[id]
	if !ok || r.Status != from {
		return nil, ErrStatusConflict
	}
	r.Status = to
	if to == models.TaskDone && r.DiselesaikanOleh == nil {
		now := time.Now()
		r.DiselesaikanOleh = completedBy
		r.TanggalSelesai = &now
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) draftStatus(id int64) models.DraftStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[id].Status
}

func (m *memStore) revisionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revisions)
}

type statusCall struct {
	id     int64
	status models.ApplicationStatus
}

type fakeRegistration struct {
	mu       sync.Mutex
	statuses map[int64]models.ApplicationStatus
	lookErr  error
	setErr   error
	calls    []statusCall
}

func (f *fakeRegistration) Lookup(_ context.Context, id int64) (models.ApplicationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookErr != nil {
		return "", f.lookErr
	}
	s, ok := f.statuses[id]
	if !ok {
		return "", ErrApplicationNotFound
	}
	return s, nil
}

func (f *fakeRegistration) SetStatus(_ context.Context, id int64, status models.ApplicationStatus, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, statusCall{id: id, status: status})
	return f.setErr
}

func (f *fakeRegistration) setCalls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusCall(nil), f.calls...)
}
