package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"jelita/internal/common/auth"
	"jelita/internal/common/cache"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/common/sideeffect"
	"jelita/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	applicant = &auth.Principal{UserID: 7, Role: auth.RoleApplicant}
	stranger  = &auth.Principal{UserID: 8, Role: auth.RoleApplicant}
	admin     = &auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	office    = &auth.Principal{UserID: 2, Role: auth.RoleOffice, OfficeID: 4}
	leader    = &auth.Principal{UserID: 3, Role: auth.RoleLeadership}
)

func newTestService(store Store, peers Peers) (*Service, *sideeffect.Dispatcher) {
	cfg := &Config{
		DefaultListLimit:     5,
		MaxListLimit:         25,
		RegistrationAttempts: 5,
		ArchiveTimeout:       time.Second,
		DownstreamTimeout:    time.Second,
	}
	log := logger.NewNoOpLogger()
	effects := sideeffect.NewDispatcher(log, nil, time.Second)
	return NewService(cfg, store, cache.Noop{}, peers, effects, nil, log), effects
}

func strPtr(s string) *string { return &s }

func TestMapExternalStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    models.ApplicationStatus
		wantErr bool
	}{
		{"", models.StatusApproved, false},
		{"DISETUJUI", models.StatusApproved, false},
		{"approved", models.StatusApproved, false},
		{"DITOLAK", models.StatusRejected, false},
		{"REJECTED", models.StatusRejected, false},
		{"PERLU_PERBAIKAN", models.StatusNeedsCorrection, false},
		{"SEDANG_DIPROSES", models.StatusSubmitted, false},
		{"pending", models.StatusSubmitted, false},
		{"needs_correction", models.StatusNeedsCorrection, false},
		{"DIBATALKAN", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MapExternalStatus(tt.in)
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRegistrationNumber(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 30, 15, 0, time.UTC)
	n := NewRegistrationNumber(at)
	assert.Regexp(t, `^REG-20250301083015-[0-9A-F]{6}$`, n)
	assert.NotEqual(t, n, NewRegistrationNumber(at))
}

func TestService_CreateAlwaysDraft(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})

	app, err := svc.Create(context.Background(), applicant, models.RawJSON(`{"nama":"Budi"}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Equal(t, int64(7), app.UserID)
	assert.Nil(t, app.NomorRegistrasi)
}

func TestService_ConcurrentSubmitAssignsOneNumber(t *testing.T) {
	store := newMemStore()
	peers := &fakePeers{}
	svc, _ := newTestService(store, peers)
	app := store.seed(models.Application{UserID: 7})

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]int{}
		errs    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Submit(context.Background(), applicant, app.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[got.Registration()]++
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	require.Len(t, numbers, 1)
	for n, count := range numbers {
		assert.NotEmpty(t, n)
		assert.Equal(t, callers, count)
	}
	assert.Len(t, store.numbers, 1)
	assert.Equal(t, 1, peers.ensureCount())
}

func TestService_SubmitRetriesOnCollision(t *testing.T) {
	store := newMemStore()
	store.seed(models.Application{UserID: 9, NomorRegistrasi: strPtr("REG-TAKEN"), Status: models.StatusSubmitted})
	app := store.seed(models.Application{UserID: 7})

	svc, _ := newTestService(store, &fakePeers{})
	calls := 0
	svc.newNumber = func(time.Time) string {
		calls++
		if calls < 3 {
			return "REG-TAKEN"
		}
		return "REG-FREE"
	}

	got, err := svc.Submit(context.Background(), applicant, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "REG-FREE", got.Registration())
	assert.Equal(t, 3, calls)
}

func TestService_SubmitGivesUpAfterAttempts(t *testing.T) {
	store := newMemStore()
	store.seed(models.Application{UserID: 9, NomorRegistrasi: strPtr("REG-TAKEN"), Status: models.StatusSubmitted})
	app := store.seed(models.Application{UserID: 7})

	svc, _ := newTestService(store, &fakePeers{})
	svc.newNumber = func(time.Time) string { return "REG-TAKEN" }

	_, err := svc.Submit(context.Background(), applicant, app.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternal))
}

func TestService_SubmitGuards(t *testing.T) {
	store := newMemStore()
	peers := &fakePeers{ensureErr: errors.New("survey down")}
	svc, _ := newTestService(store, peers)

	owned := store.seed(models.Application{UserID: 7})
	approved := store.seed(models.Application{UserID: 7, Status: models.StatusApproved})
	corrected := store.seed(models.Application{UserID: 7, Status: models.StatusNeedsCorrection, NomorRegistrasi: strPtr("REG-OLD")})

	_, err := svc.Submit(context.Background(), stranger, owned.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthorization))

	_, err = svc.Submit(context.Background(), applicant, 404)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	_, err = svc.Submit(context.Background(), applicant, approved.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	// Office staff may submit on behalf of the applicant; survey failure is swallowed.
	got, err := svc.Submit(context.Background(), office, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)

	// Resubmission keeps the number already issued.
	got, err = svc.Submit(context.Background(), applicant, corrected.ID)
	require.NoError(t, err)
	assert.Equal(t, "REG-OLD", got.Registration())
}

func TestService_ListNeverLeaksOtherUsers(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	for i := 0; i < 3; i++ {
		store.seed(models.Application{UserID: 7})
		store.seed(models.Application{UserID: 8, Status: models.StatusSubmitted})
	}

	apps, err := svc.List(context.Background(), applicant, ListQuery{Status: string(models.StatusSubmitted)})
	require.NoError(t, err)
	require.Len(t, apps, 3)
	for _, a := range apps {
		assert.Equal(t, int64(7), a.UserID)
	}

	apps, err = svc.List(context.Background(), admin, ListQuery{Status: string(models.StatusSubmitted), Limit: 100})
	require.NoError(t, err)
	assert.Len(t, apps, 3)
	for _, a := range apps {
		assert.Equal(t, int64(8), a.UserID)
	}

	_, err = svc.List(context.Background(), admin, ListQuery{Status: "DISETUJUI"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestService_ListPageBounds(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	for i := 0; i < 30; i++ {
		store.seed(models.Application{UserID: 7})
	}

	apps, err := svc.List(context.Background(), admin, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, apps, 5)

	apps, err = svc.List(context.Background(), admin, ListQuery{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, apps, 25)

	apps, err = svc.List(context.Background(), admin, ListQuery{Limit: 10, Offset: 25})
	require.NoError(t, err)
	assert.Len(t, apps, 5)
}

func TestService_ListIsCachedPerCaller(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	svc.cache = cache.NewMemory("permohonan-test", 16, time.Minute)
	store.seed(models.Application{UserID: 7})
	store.seed(models.Application{UserID: 8})

	for i := 0; i < 3; i++ {
		apps, err := svc.List(context.Background(), applicant, ListQuery{})
		require.NoError(t, err)
		require.Len(t, apps, 1)
	}
	assert.Equal(t, 1, store.listCalls)

	other, err := svc.List(context.Background(), stranger, ListQuery{})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, int64(8), other[0].UserID)
	assert.Equal(t, 2, store.listCalls)

	_, err = svc.Create(context.Background(), applicant, nil)
	require.NoError(t, err)
	apps, err := svc.List(context.Background(), applicant, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, apps, 2)
	assert.Equal(t, 3, store.listCalls)
}

func TestService_GetOwnership(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	app := store.seed(models.Application{UserID: 7})

	_, err := svc.Get(context.Background(), stranger, app.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthorization))

	got, err := svc.Get(context.Background(), office, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
}

func TestService_UpdateOnlyWhileEditable(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	draft := store.seed(models.Application{UserID: 7})
	submitted := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted})

	got, err := svc.Update(context.Background(), applicant, draft.ID, models.RawJSON(`{"nama":"Sari"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"nama":"Sari"}`, string(got.DataPemohon))

	_, err = svc.Update(context.Background(), applicant, submitted.ID, models.RawJSON(`{}`))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.Update(context.Background(), admin, draft.ID, models.RawJSON(`{}`))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthorization))
}

func TestService_UpdateStatus(t *testing.T) {
	store := newMemStore()
	peers := &fakePeers{}
	svc, _ := newTestService(store, peers)
	app := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted})

	_, err := svc.UpdateStatus(context.Background(), office, app.ID, StatusUpdateRequest{Status: "approved"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthorization))

	_, err = svc.UpdateStatus(context.Background(), admin, app.ID, StatusUpdateRequest{Status: "selesai"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	got, err := svc.UpdateStatus(context.Background(), office, app.ID, StatusUpdateRequest{Status: "needs_correction", Catatan: "lengkapi NIB"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsCorrection, got.Status)
	assert.Equal(t, 0, peers.ensureCount())

	got, err = svc.UpdateStatus(context.Background(), leader, app.ID, StatusUpdateRequest{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, 1, peers.ensureCount())
}

func TestService_CallbackResolvesByReferenceOrID(t *testing.T) {
	store := newMemStore()
	peers := &fakePeers{}
	svc, effects := newTestService(store, peers)
	app := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted, OSSReferenceID: strPtr("OSS-20250301-1")})

	byRef, err := svc.Callback(context.Background(), CallbackRequest{ReferenceID: "OSS-20250301-1", Status: "DISETUJUI", ApprovalNumber: "IZN-001"})
	require.NoError(t, err)
	effects.Wait()
	assert.Equal(t, app.ID, byRef.PermohonanID)
	assert.Equal(t, models.StatusApproved, byRef.Status)
	assert.Equal(t, "IZN-001", *byRef.NomorRegistrasi)

	byID, err := svc.Callback(context.Background(), CallbackRequest{PermohonanID: app.ID, ApprovalNumber: "IZN-999"})
	require.NoError(t, err)
	effects.Wait()
	assert.Equal(t, byRef.PermohonanID, byID.PermohonanID)
	assert.Equal(t, "IZN-001", *byID.NomorRegistrasi, "existing number wins")

	numeric, err := svc.Callback(context.Background(), CallbackRequest{ReferenceID: ReferenceID(fmt.Sprint(app.ID)), Status: "DITOLAK"})
	require.NoError(t, err)
	effects.Wait()
	assert.Equal(t, app.ID, numeric.PermohonanID)
	assert.Equal(t, models.StatusRejected, numeric.Status)

	peers.mu.Lock()
	defer peers.mu.Unlock()
	require.Len(t, peers.archived, 3)
	assert.Equal(t, "oss-callback", peers.archived[0].TriggeredFrom)
	assert.Equal(t, "IZN-001", peers.archived[0].NomorRegistrasi)
}

func TestService_CallbackSurvivesArchiveFailure(t *testing.T) {
	store := newMemStore()
	peers := &fakePeers{archiveErr: errors.New("archive unavailable")}
	svc, effects := newTestService(store, peers)
	app := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted})

	res, err := svc.Callback(context.Background(), CallbackRequest{PermohonanID: app.ID})
	require.NoError(t, err)
	effects.Wait()

	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Regexp(t, `^REG-\d{14}-[0-9A-F]{6}$`, *res.NomorRegistrasi)
}

func TestService_CallbackErrors(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})

	_, err := svc.Callback(context.Background(), CallbackRequest{Status: "DISETUJUI"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.Callback(context.Background(), CallbackRequest{ReferenceID: "OSS-UNKNOWN"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	_, err = svc.Callback(context.Background(), CallbackRequest{PermohonanID: 1, Status: "DIBATALKAN"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestService_CallbackApprovalNumberCollision(t *testing.T) {
	store := newMemStore()
	store.seed(models.Application{UserID: 9, NomorRegistrasi: strPtr("IZN-001"), Status: models.StatusApproved})
	app := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted})
	svc, effects := newTestService(store, &fakePeers{})
	svc.newNumber = func(time.Time) string { return "REG-GENERATED" }

	res, err := svc.Callback(context.Background(), CallbackRequest{PermohonanID: app.ID, ApprovalNumber: "IZN-001"})
	require.NoError(t, err)
	effects.Wait()
	assert.Equal(t, "REG-GENERATED", *res.NomorRegistrasi)
}

func TestService_TriggerWorkflowIsCritical(t *testing.T) {
	store := newMemStore()
	app := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted, NomorRegistrasi: strPtr("REG-1")})

	ok := &fakePeers{}
	svc, _ := newTestService(store, ok)
	out, err := svc.TriggerWorkflow(context.Background(), TriggerWorkflowRequest{PermohonanID: app.ID, OPDID: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"status":"pending"}`, string(out))
	require.Len(t, ok.workflow, 1)
	assert.Equal(t, "REG-1", *ok.workflow[0].NomorRegistrasi)

	failing := &fakePeers{workflowErr: errors.New("connection refused")}
	svc, _ = newTestService(store, failing)
	_, err = svc.TriggerWorkflow(context.Background(), TriggerWorkflowRequest{PermohonanID: app.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDownstream))
}

func TestService_CorrectionAndRegistration(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	app := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted})
	done := store.seed(models.Application{UserID: 7, Status: models.StatusRejected})

	notice, err := svc.RequestCorrection(context.Background(), office, app.ID, "NPWP belum diunggah")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsCorrection, notice.Status)
	assert.Equal(t, int64(2), notice.DikirimOleh)

	_, err = svc.RequestCorrection(context.Background(), office, done.ID, "x")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	got, err := svc.AssignRegistration(context.Background(), admin, app.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Registration())

	_, err = svc.AssignRegistration(context.Background(), admin, app.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestService_DownloadAndReference(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	a := store.seed(models.Application{UserID: 7, Status: models.StatusApproved})
	b := store.seed(models.Application{UserID: 7, Status: models.StatusSubmitted})

	got, err := svc.SetDownloadStatus(context.Background(), DownloadStatusRequest{PermohonanID: a.ID})
	require.NoError(t, err)
	assert.True(t, got.DownloadEnabled)
	assert.NotNil(t, got.DownloadEnabledAt)

	_, err = svc.SetDownloadStatus(context.Background(), DownloadStatusRequest{PermohonanID: 404})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	_, err = svc.SetOSSReference(context.Background(), a.ID, "OSS-1")
	require.NoError(t, err)
	_, err = svc.SetOSSReference(context.Background(), b.ID, "OSS-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestService_Documents(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store, &fakePeers{})
	app := store.seed(models.Application{UserID: 7})

	doc, err := svc.AddDocument(context.Background(), applicant, app.ID, DocumentRequest{
		JenisDokumen: "ktp", NamaFile: "ktp.pdf", FilePath: "/uploads/ktp.pdf", UkuranFile: 2048,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, doc.StatusVerifikasi)

	_, err = svc.AddDocument(context.Background(), stranger, app.ID, DocumentRequest{NamaFile: "x", FilePath: "y"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthorization))

	verified, err := svc.VerifyDocument(context.Background(), office, doc.ID, VerifyRequest{StatusVerifikasi: "verified"})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, verified.StatusVerifikasi)
	assert.Nil(t, verified.CatatanVerifikasi)

	docs, err := svc.ListDocuments(context.Background(), admin, app.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = svc.VerifyDocument(context.Background(), office, 404, VerifyRequest{StatusVerifikasi: "rejected"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}
