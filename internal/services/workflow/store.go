// internal/services/workflow/store.go
package workflow

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
	ErrDispositionNotFound = errors.New("DISPOSISI_NOT_FOUND")
	ErrDraftNotFound       = errors.New("DRAFT_NOT_FOUND")
	ErrRevisionNotFound    = errors.New("REVISI_NOT_FOUND")
	// ErrStatusConflict means the row changed status between read and write.
	ErrStatusConflict = errors.New("STATUS_CONFLICT")
	ErrDatabaseQuery  = errors.New("DATABASE_QUERY_FAILED")
)

type Store interface {
	CreateDisposition(ctx context.Context, d *models.Disposition) (*models.Disposition, error)
	GetDisposition(ctx context.Context, id int64) (*models.Disposition, error)
	ListDispositions(ctx context.Context, f DispositionFilter) ([]models.Disposition, error)
	AdvanceDisposition(ctx context.Context, id int64, from, to models.TaskStatus) (*models.Disposition, error)

	CreateReview(ctx context.Context, r *models.TechnicalReview) (*models.TechnicalReview, error)
	ListReviews(ctx context.Context, permohonanID int64) ([]models.TechnicalReview, error)

	CreateDraft(ctx context.Context, d *models.DraftLicense) (*models.DraftLicense, error)
	GetDraft(ctx context.Context, id int64) (*models.DraftLicense, error)
	ListDrafts(ctx context.Context, f DraftFilter) ([]models.DraftLicense, error)
	ApproveDraft(ctx context.Context, id, approver int64) (*models.DraftLicense, error)

	// RequestRevision flips the draft and inserts the revision in one transaction.
	RequestRevision(ctx context.Context, draftID, requestedBy int64, note string) (*models.DraftLicense, *models.RevisionRequest, error)
	GetRevision(ctx context.Context, id int64) (*models.RevisionRequest, error)
	ListRevisions(ctx context.Context, draftID int64) ([]models.RevisionRequest, error)
	AdvanceRevision(ctx context.Context, id int64, from, to models.TaskStatus, completedBy *int64) (*models.RevisionRequest, error)
}

const dispositionColumns = `id, permohonan_id, nomor_registrasi, opd_id, disposisi_dari, catatan_disposisi,
		status, tanggal_disposisi, updated_at`

const reviewColumns = `id, disposisi_id, permohonan_id, opd_id, reviewer_id, hasil_kajian, rekomendasi,
		catatan_teknis, lampiran, tanggal_kajian`

const draftColumns = `id, permohonan_id, nomor_registrasi, nomor_draft, isi_draft, dibuat_oleh, status,
		tanggal_kirim_pimpinan, disetujui_oleh, tanggal_persetujuan, created_at, updated_at`

const revisionColumns = `id, draft_id, diminta_oleh, catatan_revisi, status, tanggal_revisi,
		diselesaikan_oleh, tanggal_selesai`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDisposition(row rowScanner) (*models.Disposition, error) {
	var d models.Disposition
	err := row.Scan(&d.ID, &d.PermohonanID, &d.NomorRegistrasi, &d.OPDID, &d.DisposisiDari,
		&d.CatatanDisposisi, &d.Status, &d.TanggalDisposisi, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanReview(row rowScanner) (*models.TechnicalReview, error) {
	var r models.TechnicalReview
	err := row.Scan(&r.ID, &r.DisposisiID, &r.PermohonanID, &r.OPDID, &r.ReviewerID, &r.HasilKajian,
		&r.Rekomendasi, &r.CatatanTeknis, &r.Lampiran, &r.TanggalKajian)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanDraft(row rowScanner) (*models.DraftLicense, error) {
	var d models.DraftLicense
	err := row.Scan(&d.ID, &d.PermohonanID, &d.NomorRegistrasi, &d.NomorDraft, &d.IsiDraft, &d.DibuatOleh,
		&d.Status, &d.TanggalKirimPimpinan, &d.DisetujuiOleh, &d.TanggalPersetujuan, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanRevision(row rowScanner) (*models.RevisionRequest, error) {
	var r models.RevisionRequest
	err := row.Scan(&r.ID, &r.DraftID, &r.DimintaOleh, &r.CatatanRevisi, &r.Status, &r.TanggalRevisi,
		&r.DiselesaikanOleh, &r.TanggalSelesai)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// whereClause builds "WHERE a = $1 AND b = $2" from the non-empty conditions.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (s *PostgresStore) CreateDisposition(ctx context.Context, d *models.Disposition) (*models.Disposition, error) {
	query := `
		INSERT INTO disposisi (permohonan_id, nomor_registrasi, opd_id, disposisi_dari, catatan_disposisi,
			status, tanggal_disposisi, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW(), NOW())
		RETURNING ` + dispositionColumns

	out, err := scanDisposition(s.db.QueryRowContext(ctx, query,
		d.PermohonanID, d.NomorRegistrasi, d.OPDID, d.DisposisiDari, d.CatatanDisposisi))
	if err != nil {
		return nil, fmt.Errorf("%w: insert disposisi: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) GetDisposition(ctx context.Context, id int64) (*models.Disposition, error) {
	query := `SELECT ` + dispositionColumns + ` FROM disposisi WHERE id = $1`

	d, err := scanDisposition(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDispositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select disposisi: %v", ErrDatabaseQuery, err)
	}
	return d, nil
}

func (s *PostgresStore) ListDispositions(ctx context.Context, f DispositionFilter) ([]models.Disposition, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.OPDID != nil {
		args = append(args, *f.OPDID)
		conds = append(conds, fmt.Sprintf("opd_id = $%d", len(args)))
	}
	if f.PermohonanID != nil {
		args = append(args, *f.PermohonanID)
		conds = append(conds, fmt.Sprintf("permohonan_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, f.Limit)
	query := `SELECT ` + dispositionColumns + ` FROM disposisi` + whereClause(conds) +
		fmt.Sprintf(` ORDER BY tanggal_disposisi DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list disposisi: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := []models.Disposition{}
	for rows.Next() {
		d, err := scanDisposition(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan disposisi: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// AdvanceDisposition writes to only if the row is still in from.
func (s *PostgresStore) AdvanceDisposition(ctx context.Context, id int64, from, to models.TaskStatus) (*models.Disposition, error) {
	query := `
		UPDATE disposisi
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + dispositionColumns

	d, err := scanDisposition(s.db.QueryRowContext(ctx, query, id, string(from), string(to)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update disposisi: %v", ErrDatabaseQuery, err)
	}
	return d, nil
}

func (s *PostgresStore) CreateReview(ctx context.Context, r *models.TechnicalReview) (*models.TechnicalReview, error) {
	query := `
		INSERT INTO kajian_teknis (disposisi_id, permohonan_id, opd_id, reviewer_id, hasil_kajian, rekomendasi,
			catatan_teknis, lampiran, tanggal_kajian)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + reviewColumns

	out, err := scanReview(s.db.QueryRowContext(ctx, query,
		r.DisposisiID, r.PermohonanID, r.OPDID, r.ReviewerID, string(r.HasilKajian),
		r.Rekomendasi, r.CatatanTeknis, r.Lampiran.OrDefault(models.RawJSON(`[]`))))
	if err != nil {
		return nil, fmt.Errorf("%w: insert kajian_teknis: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, permohonanID int64) ([]models.TechnicalReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM kajian_teknis WHERE permohonan_id = $1 ORDER BY tanggal_kajian, id`

	rows, err := s.db.QueryContext(ctx, query, permohonanID)
	if err != nil {
		return nil, fmt.Errorf("%w: list kajian_teknis: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := []models.TechnicalReview{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan kajian_teknis: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateDraft(ctx context.Context, d *models.DraftLicense) (*models.DraftLicense, error) {
	query := `
		INSERT INTO draft_izin (permohonan_id, nomor_registrasi, nomor_draft, isi_draft, dibuat_oleh, status,
			tanggal_kirim_pimpinan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'sent_to_leadership', NOW(), NOW(), NOW())
		RETURNING ` + draftColumns

	out, err := scanDraft(s.db.QueryRowContext(ctx, query,
		d.PermohonanID, d.NomorRegistrasi, d.NomorDraft, d.IsiDraft, d.DibuatOleh))
	if err != nil {
		return nil, fmt.Errorf("%w: insert draft_izin: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) GetDraft(ctx context.Context, id int64) (*models.DraftLicense, error) {
	query := `SELECT ` + draftColumns + ` FROM draft_izin WHERE id = $1`

	d, err := scanDraft(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select draft_izin: %v", ErrDatabaseQuery, err)
	}
	return d, nil
}

func (s *PostgresStore) ListDrafts(ctx context.Context, f DraftFilter) ([]models.DraftLicense, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.PermohonanID != nil {
		args = append(args, *f.PermohonanID)
		conds = append(conds, fmt.Sprintf("permohonan_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, f.Limit)
	query := `SELECT ` + draftColumns + ` FROM draft_izin` + whereClause(conds) +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list draft_izin: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := []models.DraftLicense{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan draft_izin: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ApproveDraft(ctx context.Context, id, approver int64) (*models.DraftLicense, error) {
	query := `
		UPDATE draft_izin
		SET status = 'approved', disetujui_oleh = $2, tanggal_persetujuan = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + draftColumns

	d, err := scanDraft(s.db.QueryRowContext(ctx, query, id, approver))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: approve draft_izin: %v", ErrDatabaseQuery, err)
	}
	return d, nil
}

func (s *PostgresStore) RequestRevision(ctx context.Context, draftID, requestedBy int64, note string) (*models.DraftLicense, *models.RevisionRequest, error) {
	var (
		draft    *models.DraftLicense
		revision *models.RevisionRequest
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		draft, err = scanDraft(tx.QueryRowContext(ctx, `
			UPDATE draft_izin
			SET status = 'needs_revision', updated_at = NOW()
			WHERE id = $1
			RETURNING `+draftColumns, draftID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDraftNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: flag draft_izin: %v", ErrDatabaseQuery, err)
		}

		revision, err = scanRevision(tx.QueryRowContext(ctx, `
			INSERT INTO revisi_draft (draft_id, diminta_oleh, catatan_revisi, status, tanggal_revisi)
			VALUES ($1, $2, $3, 'pending', NOW())
			RETURNING `+revisionColumns, draftID, requestedBy, note))
		if err != nil {
			return fmt.Errorf("%w: insert revisi_draft: %v", ErrDatabaseQuery, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return draft, revision, nil
}

func (s *PostgresStore) GetRevision(ctx context.Context, id int64) (*models.RevisionRequest, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisi_draft WHERE id = $1`

	r, err := scanRevision(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRevisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select revisi_draft: %v", ErrDatabaseQuery, err)
	}
	return r, nil
}

func (s *PostgresStore) ListRevisions(ctx context.Context, draftID int64) ([]models.RevisionRequest, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisi_draft WHERE draft_id = $1 ORDER BY tanggal_revisi, id`

	rows, err := s.db.QueryContext(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("%w: list revisi_draft: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := []models.RevisionRequest{}
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan revisi_draft: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// AdvanceRevision records the completer only when moving to done.
func (s *PostgresStore) AdvanceRevision(ctx context.Context, id int64, from, to models.TaskStatus, completedBy *int64) (*models.RevisionRequest, error) {
	query := `
		UPDATE revisi_draft
		SET status = $3,
			diselesaikan_oleh = CASE WHEN $3 = 'done' THEN COALESCE(diselesaikan_oleh, $4) ELSE diselesaikan_oleh END,
			tanggal_selesai = CASE WHEN $3 = 'done' THEN COALESCE(tanggal_selesai, NOW()) ELSE tanggal_selesai END
		WHERE id = $1 AND status = $2
		RETURNING ` + revisionColumns

	r, err := scanRevision(s.db.QueryRowContext(ctx, query, id, string(from), string(to), completedBy))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update revisi_draft: %v", ErrDatabaseQuery, err)
	}
	return r, nil
}
