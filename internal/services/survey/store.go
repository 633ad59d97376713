// internal/services/survey/store.go
package survey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jelita/internal/models"
)

var (
	ErrNotFound = errors.New("SKM_NOT_FOUND")
	// ErrNotCompleted means the survey exists but has not been submitted.
	ErrNotCompleted  = errors.New("SKM_NOT_COMPLETED")
	ErrDatabaseQuery = errors.New("DATABASE_QUERY_FAILED")
)

type Store interface {
	// Ensure is an atomic find-or-create keyed by permohonan id.
	Ensure(ctx context.Context, s *models.Survey, touchNotified bool) (*models.Survey, error)
	GetByPermohonan(ctx context.Context, permohonanID int64) (*models.Survey, error)
	SubmitAnswers(ctx context.Context, permohonanID, userID int64, answers models.RawJSON) (*models.Survey, error)
	UnlockDownload(ctx context.Context, permohonanID int64) (*models.Survey, error)
	List(ctx context.Context, q RecapQuery) ([]models.Survey, error)
}

const surveyColumns = `id, permohonan_id, user_id, nomor_registrasi, jawaban_json, status, notified_at,
		submitted_at, download_unlocked, download_unlocked_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var s models.Survey
	err := row.Scan(&s.ID, &s.PermohonanID, &s.UserID, &s.NomorRegistrasi, &s.JawabanJSON, &s.Status,
		&s.NotifiedAt, &s.SubmittedAt, &s.DownloadUnlocked, &s.DownloadUnlockedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ensure(ctx context.Context, sv *models.Survey, touchNotified bool) (*models.Survey, error) {
	query := `
		INSERT INTO skm (permohonan_id, user_id, nomor_registrasi, jawaban_json, status, notified_at, created_at, updated_at)
		VALUES ($1, $2, $3, '{}'::jsonb, 'pending', CASE WHEN $4 THEN NOW() END, NOW(), NOW())
		ON CONFLICT (permohonan_id) DO UPDATE SET
			user_id = COALESCE(skm.user_id, EXCLUDED.user_id),
			nomor_registrasi = COALESCE(EXCLUDED.nomor_registrasi, skm.nomor_registrasi),
			notified_at = CASE WHEN $4 THEN NOW() ELSE skm.notified_at END,
			updated_at = NOW()
		RETURNING ` + surveyColumns

	out, err := scanSurvey(s.db.QueryRowContext(ctx, query, sv.PermohonanID, sv.UserID, sv.NomorRegistrasi, touchNotified))
	if err != nil {
		return nil, fmt.Errorf("%w: ensure skm: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) GetByPermohonan(ctx context.Context, permohonanID int64) (*models.Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM skm WHERE permohonan_id = $1`

	out, err := scanSurvey(s.db.QueryRowContext(ctx, query, permohonanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select skm: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

// SubmitAnswers upserts the answer set and marks the survey completed.
func (s *PostgresStore) SubmitAnswers(ctx context.Context, permohonanID, userID int64, answers models.RawJSON) (*models.Survey, error) {
	query := `
		INSERT INTO skm (permohonan_id, user_id, jawaban_json, status, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'completed', NOW(), NOW(), NOW())
		ON CONFLICT (permohonan_id) DO UPDATE SET
			user_id = COALESCE(skm.user_id, EXCLUDED.user_id),
			jawaban_json = EXCLUDED.jawaban_json,
			status = 'completed',
			submitted_at = NOW(),
			updated_at = NOW()
		RETURNING ` + surveyColumns

	out, err := scanSurvey(s.db.QueryRowContext(ctx, query, permohonanID, userID, answers))
	if err != nil {
		return nil, fmt.Errorf("%w: submit skm: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

// UnlockDownload flips the flag only on a completed survey. The first unlock
// timestamp is kept on repeats.
func (s *PostgresStore) UnlockDownload(ctx context.Context, permohonanID int64) (*models.Survey, error) {
	query := `
		UPDATE skm
		SET download_unlocked = TRUE,
			download_unlocked_at = COALESCE(download_unlocked_at, NOW()),
			updated_at = NOW()
		WHERE permohonan_id = $1 AND status = 'completed'
		RETURNING ` + surveyColumns

	out, err := scanSurvey(s.db.QueryRowContext(ctx, query, permohonanID))
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := s.GetByPermohonan(ctx, permohonanID); gerr != nil {
			return nil, gerr
		}
		return nil, ErrNotCompleted
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unlock skm: %v", ErrDatabaseQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) List(ctx context.Context, q RecapQuery) ([]models.Survey, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.StartDate != nil {
		args = append(args, *q.StartDate)
		conds = append(conds, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}
	if q.EndDate != nil {
		args = append(args, *q.EndDate)
		conds = append(conds, fmt.Sprintf("submitted_at <= $%d", len(args)))
	}
	query := `SELECT ` + surveyColumns + ` FROM skm`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY submitted_at DESC NULLS LAST, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list skm: %v", ErrDatabaseQuery, err)
	}
	defer rows.Close()

	out := []models.Survey{}
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan skm: %v", ErrDatabaseQuery, err)
		}
		out = append(out, *sv)
	}
	return out, rows.Err()
}
