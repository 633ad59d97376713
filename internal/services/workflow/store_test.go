package workflow

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"jelita/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	dispositionCols = []string{"id", "permohonan_id", "nomor_registrasi", "opd_id", "disposisi_dari",
		"catatan_disposisi", "status", "tanggal_disposisi", "updated_at"}
	draftCols = []string{"id", "permohonan_id", "nomor_registrasi", "nomor_draft", "isi_draft", "dibuat_oleh",
		"status", "tanggal_kirim_pimpinan", "disetujui_oleh", "tanggal_persetujuan", "created_at", "updated_at"}
	revisionCols = []string{"id", "draft_id", "diminta_oleh", "catatan_revisi", "status", "tanggal_revisi",
		"diselesaikan_oleh", "tanggal_selesai"}
)

func dispositionRow(id, opd int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(dispositionCols).AddRow(id, 10, nil, opd, 1, "Auto generated", status, fixedTime, fixedTime)
}

func draftRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(draftCols).AddRow(id, 10, "REG-1", "DRAFT-1", "isi", 1, status, fixedTime, nil, nil, fixedTime, fixedTime)
}

func revisionRow(id, draftID int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(revisionCols).AddRow(id, draftID, 3, "perbaiki", status, fixedTime, nil, nil)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_CreateDisposition(t *testing.T) {
	store, mock := newMockStore(t)
	from := int64(1)

	mock.ExpectQuery(`INSERT INTO disposisi`).
		WithArgs(int64(10), nil, int64(4), from, "Auto generated").
		WillReturnRows(dispositionRow(1, 4, "pending"))

	d, err := store.CreateDisposition(context.Background(), &models.Disposition{
		PermohonanID: 10, OPDID: 4, DisposisiDari: &from, CatatanDisposisi: "Auto generated",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, d.Status)
	assert.Nil(t, d.NomorRegistrasi)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDispositionsFilters(t *testing.T) {
	store, mock := newMockStore(t)
	opd := int64(4)

	mock.ExpectQuery(`SELECT (.+) FROM disposisi WHERE opd_id = \$1 AND status = \$2 ORDER BY tanggal_disposisi DESC, id DESC LIMIT \$3`).
		WithArgs(int64(4), "pending", 20).
		WillReturnRows(dispositionRow(1, 4, "pending"))

	out, err := store.ListDispositions(context.Background(), DispositionFilter{OPDID: &opd, Status: models.TaskPending, Limit: 20})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDispositionsEmptyIsNotNil(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM disposisi ORDER BY`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(dispositionCols))

	out, err := store.ListDispositions(context.Background(), DispositionFilter{Limit: 5})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPostgresStore_AdvanceDispositionConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE disposisi SET status = \$3, updated_at = NOW\(\) WHERE id = \$1 AND status = \$2`).
		WithArgs(int64(1), "pending", "in_progress").
		WillReturnError(sql.ErrNoRows)

	_, err := store.AdvanceDisposition(context.Background(), 1, models.TaskPending, models.TaskInProgress)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDispositionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM disposisi WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetDisposition(context.Background(), 9)
	assert.ErrorIs(t, err, ErrDispositionNotFound)
}

func TestPostgresStore_ApproveDraft(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(draftCols).AddRow(2, 10, "REG-1", "DRAFT-1", "isi", 1, "approved",
		fixedTime, 3, fixedTime, fixedTime, fixedTime)
	mock.ExpectQuery(`UPDATE draft_izin SET status = 'approved', disetujui_oleh = \$2`).
		WithArgs(int64(2), int64(3)).
		WillReturnRows(rows)

	d, err := store.ApproveDraft(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, models.DraftApproved, d.Status)
	require.NotNil(t, d.DisetujuiOleh)
	assert.Equal(t, int64(3), *d.DisetujuiOleh)
	require.NotNil(t, d.TanggalPersetujuan)
}

func TestPostgresStore_ApproveDraftNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE draft_izin`).WillReturnError(sql.ErrNoRows)

	_, err := store.ApproveDraft(context.Background(), 99, 3)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestPostgresStore_RequestRevisionCommitsBothWrites(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE draft_izin SET status = 'needs_revision'`).
		WithArgs(int64(2)).
		WillReturnRows(draftRow(2, "needs_revision"))
	mock.ExpectQuery(`INSERT INTO revisi_draft`).
		WithArgs(int64(2), int64(3), "perbaiki").
		WillReturnRows(revisionRow(5, 2, "pending"))
	mock.ExpectCommit()

	draft, rev, err := store.RequestRevision(context.Background(), 2, 3, "perbaiki")
	require.NoError(t, err)
	assert.Equal(t, models.DraftNeedsRevision, draft.Status)
	assert.Equal(t, models.TaskPending, rev.Status)
	assert.Equal(t, int64(2), rev.DraftID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RequestRevisionRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE draft_izin SET status = 'needs_revision'`).
		WithArgs(int64(2)).
		WillReturnRows(draftRow(2, "needs_revision"))
	mock.ExpectQuery(`INSERT INTO revisi_draft`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	draft, rev, err := store.RequestRevision(context.Background(), 2, 3, "perbaiki")
	assert.ErrorIs(t, err, ErrDatabaseQuery)
	assert.Nil(t, draft)
	assert.Nil(t, rev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RequestRevisionUnknownDraft(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE draft_izin`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := store.RequestRevision(context.Background(), 99, 3, "perbaiki")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdvanceRevisionRecordsCompleter(t *testing.T) {
	store, mock := newMockStore(t)
	completer := int64(1)

	rows := sqlmock.NewRows(revisionCols).AddRow(5, 2, 3, "perbaiki", "done", fixedTime, 1, fixedTime)
	mock.ExpectQuery(`UPDATE revisi_draft`).
		WithArgs(int64(5), "in_progress", "done", completer).
		WillReturnRows(rows)

	rev, err := store.AdvanceRevision(context.Background(), 5, models.TaskInProgress, models.TaskDone, &completer)
	require.NoError(t, err)
	assert.Equal(t, models.TaskDone, rev.Status)
	require.NotNil(t, rev.DiselesaikanOleh)
	assert.Equal(t, int64(1), *rev.DiselesaikanOleh)
	assert.NotNil(t, rev.TanggalSelesai)
}
