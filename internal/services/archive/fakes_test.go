package archive

import (
	"context"
	"sync"
	"time"

	"jelita/internal/models"
)

type memStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Archive
	byApp  map[int64]int64
}

func newMemStore() *memStore {
	return &memStore{byID: map[int64]*models.Archive{}, byApp: map[int64]int64{}}
}

func copyArchive(a *models.Archive) *models.Archive {
	cp := *a
	cp.HakAksesOPD = append([]int64{}, a.HakAksesOPD...)
	return &cp
}

func (m *memStore) Trigger(_ context.Context, a *models.Archive) (*models.Archive, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if id, ok := m.byApp[a.PermohonanID]; ok {
		row := m.byID[id]
		row.TriggeredFrom = a.TriggeredFrom
		if row.NomorRegistrasi == nil {
			row.NomorRegistrasi = a.NomorRegistrasi
		}
		row.UpdatedAt = now
		return copyArchive(row), false, nil
	}
	m.nextID++
	row := &models.Archive{
		ID:              m.nextID,
		PermohonanID:    a.PermohonanID,
		NomorRegistrasi: a.NomorRegistrasi,
		MetadataJSON:    models.RawJSON(`{}`),
		HakAksesOPD:     []int64{},
		Status:          models.ArchivePending,
		TriggeredFrom:   a.TriggeredFrom,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.byID[row.ID] = row
	m.byApp[row.PermohonanID] = row.ID
	return copyArchive(row), true, nil
}

func (m *memStore) ArchiveLicense(_ context.Context, a *models.Archive) (*models.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	id, ok := m.byApp[a.PermohonanID]
	if !ok {
		m.nextID++
		id = m.nextID
		m.byID[id] = &models.Archive{ID: id, PermohonanID: a.PermohonanID, HakAksesOPD: []int64{},
			Status: models.ArchivePending, TriggeredFrom: "manual", CreatedAt: now}
		m.byApp[a.PermohonanID] = id
	}
	row := m.byID[id]
	if a.NomorRegistrasi != nil {
		row.NomorRegistrasi = a.NomorRegistrasi
	}
	if a.JenisIzin != nil {
		row.JenisIzin = a.JenisIzin
	}
	row.FilePath = a.FilePath
	row.MetadataJSON = a.MetadataJSON.OrDefault(models.RawJSON(`{}`))
	row.ArchivedAt = &now
	row.Status = row.Status.Advance(models.ArchiveArchived)
	row.UpdatedAt = now
	return copyArchive(row), nil
}

func (m *memStore) GrantAccess(_ context.Context, id int64, offices []int64) (*models.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	row.HakAksesOPD = models.MergeOffices(row.HakAksesOPD, offices)
	return copyArchive(row), nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyArchive(row), nil
}

func (m *memStore) MarkAccessed(_ context.Context, id int64) (*models.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byID[id]
	if !ok || row.Status != models.ArchiveArchived {
		return nil, ErrStatusConflict
	}
	row.Status = models.ArchiveAccessed
	return copyArchive(row), nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type fakeIndex struct {
	mu        sync.Mutex
	docs      map[int64]Document
	searchErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[int64]Document{}}
}

func (f *fakeIndex) Put(_ context.Context, a *models.Archive) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[a.ID] = documentFor(a)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q string, size int) (*SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := &SearchResult{Query: q, Hits: []SearchHit{}}
	for _, doc := range f.docs {
		if len(out.Hits) == size {
			break
		}
		if q == "" || doc.NomorRegistrasi == q || doc.JenisIzin == q {
			out.Hits = append(out.Hits, SearchHit{Score: 1, Document: doc})
		}
	}
	out.TotalHits = int64(len(out.Hits))
	return out, nil
}

func (f *fakeIndex) doc(id int64) (Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}
