package registration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"jelita/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appColumns = []string{
	"id", "user_id", "nomor_registrasi", "oss_reference_id", "status", "data_pemohon", "catatan",
	"download_enabled", "download_enabled_at", "submitted_at", "created_at", "updated_at",
}

func appRow(id, userID int64, nomor interface{}, status string) *sqlmock.Rows {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(appColumns).AddRow(
		id, userID, nomor, nil, status, []byte(`{"nama":"Budi"}`), nil,
		false, nil, nil, now, now,
	)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO permohonan`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnRows(appRow(1, 7, nil, "draft"))

	app, err := store.Create(context.Background(), 7, models.RawJSON(`{"nama":"Budi"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), app.ID)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Nil(t, app.NomorRegistrasi)
	assert.JSONEq(t, `{"nama":"Budi"}`, string(app.DataPemohon))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM permohonan WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetWrapsDriverErrors(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM permohonan`).WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDatabaseQuery)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresStore_ListScopesToOwner(t *testing.T) {
	store, mock := newMockStore(t)
	uid := int64(7)

	mock.ExpectQuery(`SELECT (.+) FROM permohonan WHERE user_id = \$1 ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(7), 5, 0).
		WillReturnRows(appRow(2, 7, "REG-1", "submitted"))

	apps, err := store.List(context.Background(), ListFilter{UserID: &uid, Limit: 5})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "REG-1", apps[0].Registration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE status = \$1 ORDER BY (.+) LIMIT \$2 OFFSET \$3`).
		WithArgs("submitted", 25, 10).
		WillReturnRows(sqlmock.NewRows(appColumns))

	apps, err := store.List(context.Background(), ListFilter{Status: models.StatusSubmitted, Limit: 25, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Submit(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "assigns number",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE permohonan`).
					WithArgs(int64(1), "REG-20250301080000-ABCDEF").
					WillReturnRows(appRow(1, 7, "REG-20250301080000-ABCDEF", "submitted"))
			},
		},
		{
			name: "guard fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE permohonan`).WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrStatusConflict,
		},
		{
			name: "number collision",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE permohonan`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "permohonan_nomor_registrasi_key"})
			},
			wantErr: ErrRegistrationTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			app, err := store.Submit(context.Background(), 1, "REG-20250301080000-ABCDEF")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.StatusSubmitted, app.Status)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_SetOSSReferenceTaken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE permohonan`).
		WithArgs(int64(3), "OSS-1").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.SetOSSReference(context.Background(), 3, "OSS-1")
	assert.ErrorIs(t, err, ErrReferenceTaken)
}

func TestPostgresStore_VerifyDocument(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	note := "lengkap"

	mock.ExpectQuery(`UPDATE dokumen`).
		WithArgs(int64(4), "verified", sqlmock.AnyArg(), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "permohonan_id", "jenis_dokumen", "nama_file", "file_path", "ukuran_file",
			"status_verifikasi", "catatan_verifikasi", "verified_by", "verified_at", "created_at",
		}).AddRow(4, 1, "ktp", "ktp.pdf", "/uploads/ktp.pdf", 1024, "verified", note, 2, now, now))

	doc, err := store.VerifyDocument(context.Background(), 4, models.VerificationVerified, &note, 2)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, doc.StatusVerifikasi)
	require.NotNil(t, doc.VerifiedBy)
	assert.Equal(t, int64(2), *doc.VerifiedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
