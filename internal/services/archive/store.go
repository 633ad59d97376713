// internal/services/archive/store.go
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jelita/internal/common/database"
	"jelita/internal/models"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("ARCHIVE_NOT_FOUND")
	// ErrStatusConflict means another request advanced the record first.
	ErrStatusConflict = errors.New("STATUS_CONFLICT")
	ErrDatabaseQuery  = errors.New("DATABASE_QUERY_FAILED")
)

type Store interface {
	// Trigger finds or creates the record for an application. An existing
	// record keeps its status and file; only the provenance tag is refreshed.
	Trigger(ctx context.Context, a *models.Archive) (*models.Archive, bool, error)
	ArchiveLicense(ctx context.Context, a *models.Archive) (*models.Archive, error)
	GrantAccess(ctx context.Context, id int64, officeIDs []int64) (*models.Archive, error)
	Get(ctx context.Context, id int64) (*models.Archive, error)
	MarkAccessed(ctx context.Context, id int64) (*models.Archive, error)
}

const archiveColumns = `id, permohonan_id, nomor_registrasi, jenis_izin, file_path, metadata_json, archived_at,
		hak_akses_opd, status, triggered_from, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArchive(row rowScanner, extra ...interface{}) (*models.Archive, error) {
	var a models.Archive
	dest := []interface{}{&a.ID, &a.PermohonanID, &a.NomorRegistrasi, &a.JenisIzin, &a.FilePath, &a.MetadataJSON,
		&a.ArchivedAt, pq.Array(&a.HakAksesOPD), &a.Status, &a.TriggeredFrom, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if a.HakAksesOPD == nil {
		a.HakAksesOPD = []int64{}
	}
	return &a, nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Trigger(ctx context.Context, a *models.Archive) (*models.Archive, bool, error) {
	// xmax is zero only on a freshly inserted tuple.
	query := `
		INSERT INTO arsip (permohonan_id, nomor_registrasi, status, triggered_from, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, NOW(), NOW())
		ON CONFLICT (permohonan_id) DO UPDATE SET
			triggered_from = EXCLUDED.triggered_from,
			nomor_registrasi = COALESCE(arsip.nomor_registrasi, EXCLUDED.nomor_registrasi),
			updated_at = NOW()
		RETURNING ` + archiveColumns + `, (xmax = 0) AS inserted`

	var inserted bool
	out, err := scanArchive(s.db.QueryRowContext(ctx, query, a.PermohonanID, a.NomorRegistrasi, a.TriggeredFrom), &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("%w: trigger arsip: %v", ErrDatabaseQuery, err)
	}
	return out, inserted, nil
}

// ArchiveLicense is the only write of the stored-file reference. A record
// that was already read stays accessed.
func (s *PostgresStore) ArchiveLicense(ctx context.Context, a *models.Archive) (*models.Archive, error) {
	query := `
		INSERT INTO arsip (permohonan_id, nomor_registrasi, jenis_izin, file_path, metadata_json, archived_at,
			status, triggered_from, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), 'archived', 'manual', NOW(), NOW())
		ON CONFLICT (permohonan_id) DO UPDATE SET
			nomor_registrasi = COALESCE(EXCLUDED.nomor_registrasi, arsip.nomor_registrasi),
			jenis_izin = COALESCE(EXCLUDED.jenis_izin, arsip.jenis_izin),
			file_path = EXCLUDED.file_path,
			metadata_json = EXCLUDED.metadata_json,
			archived_at = NOW(),
			status = CASE WHEN arsip.status = 'accessed' THEN 'accessed' ELSE 'archived' END,
			updated_at = NOW()
		RETURNING ` + archiveColumns

	out, err := scanArchive(s.db.QueryRowContext(ctx, query,
		a.PermohonanID, a.NomorRegistrasi, a.JenisIzin, a.FilePath, a.MetadataJSON.OrDefault(models.RawJSON(`{}`))))
	if err != nil {
		return nil, fmt.Errorf("%w: archive izin: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

// GrantAccess unions officeIDs into the record's grants under a row lock.
func (s *PostgresStore) GrantAccess(ctx context.Context, id int64, officeIDs []int64) (*models.Archive, error) {
	var out *models.Archive
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := scanArchive(tx.QueryRowContext(ctx,
			`SELECT `+archiveColumns+` FROM arsip WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: lock arsip: %v", ErrDatabaseQuery, err)
		}

		merged := models.MergeOffices(current.HakAksesOPD, officeIDs)
		out, err = scanArchive(tx.QueryRowContext(ctx, `
			UPDATE arsip SET hak_akses_opd = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+archiveColumns, id, pq.Array(merged)))
		if err != nil {
			return fmt.Errorf("%w: grant arsip: %v", ErrDatabaseQuery, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Archive, error) {
	out, err := scanArchive(s.db.QueryRowContext(ctx, `SELECT `+archiveColumns+` FROM arsip WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select arsip: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

// MarkAccessed moves archived to accessed; any other status is a conflict.
func (s *PostgresStore) MarkAccessed(ctx context.Context, id int64) (*models.Archive, error) {
	query := `
		UPDATE arsip SET status = 'accessed', updated_at = NOW()
		WHERE id = $1 AND status = 'archived'
		RETURNING ` + archiveColumns

	out, err := scanArchive(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%w: mark arsip accessed: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}
