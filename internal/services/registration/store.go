// internal/services/registration/store.go
package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jelita/internal/common/database"
	"jelita/internal/models"
)

var (
	ErrNotFound          = errors.New("PERMOHONAN_NOT_FOUND")
	ErrDocumentNotFound  = errors.New("DOKUMEN_NOT_FOUND")
	ErrRegistrationTaken = errors.New("REGISTRATION_NUMBER_TAKEN")
	ErrReferenceTaken    = errors.New("OSS_REFERENCE_TAKEN")
	// ErrStatusConflict means a guarded update matched no row because the status moved.
	ErrStatusConflict = errors.New("STATUS_CONFLICT")
	ErrDatabaseQuery  = errors.New("DATABASE_QUERY_FAILED")
)

type ListFilter struct {
	// UserID restricts the listing to one owner when set.
	UserID *int64
	Status models.ApplicationStatus
	Limit  int
	Offset int
}

type Store interface {
	Create(ctx context.Context, userID int64, data models.RawJSON) (*models.Application, error)
	Get(ctx context.Context, id int64) (*models.Application, error)
	GetByOSSReference(ctx context.Context, ref string) (*models.Application, error)
	List(ctx context.Context, f ListFilter) ([]models.Application, error)
	UpdateData(ctx context.Context, id int64, data models.RawJSON) (*models.Application, error)
	Submit(ctx context.Context, id int64, nomor string) (*models.Application, error)
	SetStatus(ctx context.Context, id int64, status models.ApplicationStatus, catatan *string) (*models.Application, error)
	ApplyCallback(ctx context.Context, id int64, status models.ApplicationStatus, nomor string) (*models.Application, error)
	AssignRegistration(ctx context.Context, id int64, nomor string) (*models.Application, error)
	SetOSSReference(ctx context.Context, id int64, ref string) (*models.Application, error)
	SetDownloadEnabled(ctx context.Context, id int64, enabled bool) (*models.Application, error)

	CreateDocument(ctx context.Context, d *models.Document) (*models.Document, error)
	ListDocuments(ctx context.Context, permohonanID int64) ([]models.Document, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	VerifyDocument(ctx context.Context, id int64, status models.VerificationStatus, catatan *string, verifier int64) (*models.Document, error)
}

const applicationColumns = `id, user_id, nomor_registrasi, oss_reference_id, status, data_pemohon, catatan,
		download_enabled, download_enabled_at, submitted_at, created_at, updated_at`

const documentColumns = `id, permohonan_id, jenis_dokumen, nama_file, file_path, ukuran_file,
		status_verifikasi, catatan_verifikasi, verified_by, verified_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	if err := row.Scan(
		&a.ID, &a.UserID, &a.NomorRegistrasi, &a.OSSReferenceID, &a.Status, &a.DataPemohon, &a.Catatan,
		&a.DownloadEnabled, &a.DownloadEnabledAt, &a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var d models.Document
	if err := row.Scan(
		&d.ID, &d.PermohonanID, &d.JenisDokumen, &d.NamaFile, &d.FilePath, &d.UkuranFile,
		&d.StatusVerifikasi, &d.CatatanVerifikasi, &d.VerifiedBy, &d.VerifiedAt, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, userID int64, data models.RawJSON) (*models.Application, error) {
	query := `
		INSERT INTO permohonan (user_id, status, data_pemohon, created_at, updated_at)
		VALUES ($1, 'draft', $2, NOW(), NOW())
		RETURNING ` + applicationColumns

	a, err := scanApplication(s.db.QueryRowContext(ctx, query, userID, data.OrDefault(models.EmptyObject)))
	if err != nil {
		return nil, fmt.Errorf("%w: insert permohonan: %v", ErrDatabaseQuery, err)
	}
	return a, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM permohonan WHERE id = $1`
	return s.one(ctx, "select permohonan", query, id)
}

func (s *PostgresStore) GetByOSSReference(ctx context.Context, ref string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM permohonan WHERE oss_reference_id = $1`
	return s.one(ctx, "select permohonan by oss reference", query, ref)
}

func (s *PostgresStore) one(ctx context.Context, op, query string, args ...interface{}) (*models.Application, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseQuery, op, err)
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]models.Application, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + applicationColumns + ` FROM permohonan`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list permohonan: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := make([]models.Application, 0, f.Limit)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan permohonan: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate permohonan: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateData(ctx context.Context, id int64, data models.RawJSON) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET data_pemohon = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'needs_correction')
		RETURNING ` + applicationColumns
	return s.guarded(ctx, "update data_pemohon", query, id, data.OrDefault(models.EmptyObject))
}

// Submit moves a draft or needs_correction application to submitted. The
// registration number is only written when none is set, and the status guard
// lets exactly one of two racing submits win the row.
func (s *PostgresStore) Submit(ctx context.Context, id int64, nomor string) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET status = 'submitted',
			nomor_registrasi = COALESCE(nomor_registrasi, $2),
			submitted_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'needs_correction')
		RETURNING ` + applicationColumns
	return s.guarded(ctx, "submit permohonan", query, id, nomor)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status models.ApplicationStatus, catatan *string) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET status = $2, catatan = COALESCE($3, catatan), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + applicationColumns

	a, err := scanApplication(s.db.QueryRowContext(ctx, query, id, string(status), catatan))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update status: %v", ErrDatabaseQuery, err)
	}
	return a, nil
}

func (s *PostgresStore) ApplyCallback(ctx context.Context, id int64, status models.ApplicationStatus, nomor string) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET status = $2, nomor_registrasi = COALESCE(nomor_registrasi, $3), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + applicationColumns

	a, err := scanApplication(s.db.QueryRowContext(ctx, query, id, string(status), nomor))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case database.IsUniqueViolation(err):
		return nil, ErrRegistrationTaken
	case err != nil:
		return nil, fmt.Errorf("%w: apply callback: %v", ErrDatabaseQuery, err)
	}
	return a, nil
}

func (s *PostgresStore) AssignRegistration(ctx context.Context, id int64, nomor string) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET nomor_registrasi = $2, updated_at = NOW()
		WHERE id = $1 AND nomor_registrasi IS NULL
		RETURNING ` + applicationColumns
	return s.guarded(ctx, "assign registration", query, id, nomor)
}

func (s *PostgresStore) SetOSSReference(ctx context.Context, id int64, ref string) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET oss_reference_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + applicationColumns

	a, err := scanApplication(s.db.QueryRowContext(ctx, query, id, ref))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case database.IsUniqueViolation(err):
		return nil, ErrReferenceTaken
	case err != nil:
		return nil, fmt.Errorf("%w: set oss reference: %v", ErrDatabaseQuery, err)
	}
	return a, nil
}

func (s *PostgresStore) SetDownloadEnabled(ctx context.Context, id int64, enabled bool) (*models.Application, error) {
	query := `
		UPDATE permohonan
		SET download_enabled = $2,
			download_enabled_at = CASE WHEN $2 THEN COALESCE(download_enabled_at, NOW()) ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + applicationColumns

	a, err := scanApplication(s.db.QueryRowContext(ctx, query, id, enabled))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update download status: %v", ErrDatabaseQuery, err)
	}
	return a, nil
}

// guarded runs a conditional UPDATE; no matching row means the guard failed.
func (s *PostgresStore) guarded(ctx context.Context, op, query string, args ...interface{}) (*models.Application, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx, query, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrStatusConflict
	case database.IsUniqueViolation(err):
		return nil, ErrRegistrationTaken
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabaseQuery, op, err)
	}
	return a, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) (*models.Document, error) {
	query := `
		INSERT INTO dokumen (permohonan_id, jenis_dokumen, nama_file, file_path, ukuran_file, status_verifikasi, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW())
		RETURNING ` + documentColumns

	out, err := scanDocument(s.db.QueryRowContext(ctx, query, d.PermohonanID, d.JenisDokumen, d.NamaFile, d.FilePath, d.UkuranFile))
	if err != nil {
		return nil, fmt.Errorf("%w: insert dokumen: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, permohonanID int64) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM dokumen WHERE permohonan_id = $1 ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, permohonanID)
	if err != nil {
		return nil, fmt.Errorf("%w: list dokumen: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan dokumen: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate dokumen: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM dokumen WHERE id = $1`

	d, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select dokumen: %v", ErrDatabaseQuery, err)
	}
	return d, nil
}

func (s *PostgresStore) VerifyDocument(ctx context.Context, id int64, status models.VerificationStatus, catatan *string, verifier int64) (*models.Document, error) {
	query := `
		UPDATE dokumen
		SET status_verifikasi = $2, catatan_verifikasi = $3, verified_by = $4, verified_at = NOW()
		WHERE id = $1
		RETURNING ` + documentColumns

	d, err := scanDocument(s.db.QueryRowContext(ctx, query, id, string(status), catatan, verifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: verify dokumen: %v", ErrDatabaseQuery, err)
	}
	return d, nil
}
