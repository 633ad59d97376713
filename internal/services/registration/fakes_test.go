package registration

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"jelita/internal/models"
)

// memStore mirrors the guarded UPDATE semantics of PostgresStore in memory.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	apps      map[int64]*models.Application
	docs      map[int64]*models.Document
	numbers   map[string]int64
	listCalls int
}

func newMemStore() *memStore {
	return &memStore{
		apps:    map[int64]*models.Application{},
		docs:    map[int64]*models.Document{},
		numbers: map[string]int64{},
	}
}

func (m *memStore) seed(a models.Application) *models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		m.nextID++
		a.ID = m.nextID
	} else if a.ID > m.nextID {
		m.nextID = a.ID
	}
	if a.Status == "" {
		a.Status = models.StatusDraft
	}
	if a.NomorRegistrasi != nil {
		m.numbers[*a.NomorRegistrasi] = a.ID
	}
	m.apps[a.ID] = &a
	cp := a
	return &cp
}

func (m *memStore) copyOf(id int64) (*models.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) claim(a *models.Application, nomor string) error {
	if a.NomorRegistrasi != nil {
		return nil
	}
	if _, taken := m.numbers[nomor]; taken {
		return ErrRegistrationTaken
	}
	m.numbers[nomor] = a.ID
	a.NomorRegistrasi = &nomor
	return nil
}

func (m *memStore) Create(_ context.Context, userID int64, data models.RawJSON) (*models.Application, error) {
	now := time.Now()
	return m.seed(models.Application{UserID: userID, DataPemohon: data, CreatedAt: now, UpdatedAt: now}), nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyOf(id)
}

func (m *memStore) GetByOSSReference(_ context.Context, ref string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.apps {
		if a.OSSReferenceID != nil && *a.OSSReferenceID == ref {
			return m.copyOf(id)
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	var out []models.Application
	for _, a := range m.apps {
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Offset >= len(out) {
		return []models.Application{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) UpdateData(_ context.Context, id int64, data models.RawJSON) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok || !a.Status.Editable() {
		return nil, ErrStatusConflict
	}
	a.DataPemohon = data
	return m.copyOf(id)
}

func (m *memStore) Submit(_ context.Context, id int64, nomor string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok || !a.Status.Submittable() {
		return nil, ErrStatusConflict
	}
	if err := m.claim(a, nomor); err != nil {
		return nil, err
	}
	now := time.Now()
	a.Status = models.StatusSubmitted
	a.SubmittedAt = &now
	return m.copyOf(id)
}

func (m *memStore) SetStatus(_ context.Context, id int64, status models.ApplicationStatus, catatan *string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	if catatan != nil {
		a.Catatan = catatan
	}
	return m.copyOf(id)
}

func (m *memStore) ApplyCallback(_ context.Context, id int64, status models.ApplicationStatus, nomor string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := m.claim(a, nomor); err != nil {
		return nil, err
	}
	a.Status = status
	return m.copyOf(id)
}

func (m *memStore) AssignRegistration(_ context.Context, id int64, nomor string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok || a.NomorRegistrasi != nil {
		return nil, ErrStatusConflict
	}
	if err := m.claim(a, nomor); err != nil {
		return nil, err
	}
	return m.copyOf(id)
}

func (m *memStore) SetOSSReference(_ context.Context, id int64, ref string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	for otherID, other := range m.apps {
		if otherID != id && other.OSSReferenceID != nil && *other.OSSReferenceID == ref {
			return nil, ErrReferenceTaken
		}
	}
	a.OSSReferenceID = &ref
	return m.copyOf(id)
}

func (m *memStore) SetDownloadEnabled(_ context.Context, id int64, enabled bool) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.DownloadEnabled = enabled
	if enabled {
		now := time.Now()
		a.DownloadEnabledAt = &now
	} else {
		a.DownloadEnabledAt = nil
	}
	return m.copyOf(id)
}

func (m *memStore) CreateDocument(_ context.Context, d *models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.ID = int64(len(m.docs) + 1)
	cp.StatusVerifikasi = models.VerificationPending
	m.docs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) ListDocuments(_ context.Context, permohonanID int64) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Document{}
	for _, d := range m.docs {
		if d.PermohonanID == permohonanID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) GetDocument(_ context.Context, id int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) VerifyDocument(_ context.Context, id int64, status models.VerificationStatus, catatan *string, verifier int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	now := time.Now()
	d.StatusVerifikasi = status
	d.CatatanVerifikasi = catatan
	d.VerifiedBy = &verifier
	d.VerifiedAt = &now
	cp := *d
	return &cp, nil
}

type fakePeers struct {
	mu          sync.Mutex
	ensured     []ensureSurveyRequest
	archived    []archiveTriggerRequest
	workflow    []workflowTriggerRequest
	ensureErr   error
	archiveErr  error
	workflowErr error
}

func (f *fakePeers) EnsureSurvey(_ context.Context, req ensureSurveyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, req)
	return f.ensureErr
}

func (f *fakePeers) TriggerArchive(_ context.Context, req archiveTriggerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, req)
	return f.archiveErr
}

func (f *fakePeers) TriggerWorkflow(_ context.Context, req workflowTriggerRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workflow = append(f.workflow, req)
	if f.workflowErr != nil {
		return nil, f.workflowErr
	}
	return json.RawMessage(`{"id":1,"status":"pending"}`), nil
}

func (f *fakePeers) ensureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ensured)
}
