package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"komunitas/pendataan/internal/model"
)

func (s *Store) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	return getSubmission(ctx, s.pool, `WHERE id = $1`, id)
}

func (s *Store) GetSubmissionByUser(ctx context.Context, userID string) (model.Submission, error) {
	return getSubmission(ctx, s.pool, `WHERE user_id = $1`, userID)
}

func (s *Store) FindSubmissionByNIK(ctx context.Context, nik string) (model.Submission, error) {
	return getSubmission(ctx, s.pool, `WHERE nik = $1`, nik)
}

func (s *Store) FindSubmissionByKK(ctx context.Context, kk string) (model.Submission, error) {
	return getSubmission(ctx, s.pool, `WHERE nomor_kk = $1`, kk)
}

func getSubmission(ctx context.Context, q querier, where string, args ...any) (model.Submission, error) {
	row := q.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions `+where, args...)
	return scanSubmission(row)
}

func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) error {
	args := submissionArgs(sub)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (`+placeholders(1, len(args))+`)
	`, args...)
	return mapError(err)
}

// UpdateSubmission replaces the intake fields and admin notes. When allowed
// is non-empty the write only applies while the stored status is one of them.
func (s *Store) UpdateSubmission(ctx context.Context, sub model.Submission, allowed []model.Status) (model.Submission, error) {
	args := dataArgs(sub.Data)
	n := len(args)
	args = append(args, sub.AdminNotes, sub.UpdatedAt, sub.ID, statusStrings(allowed))
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE submissions
		SET %s, admin_notes = $%d, updated_at = $%d
		WHERE id = $%d AND ($%d::text[] IS NULL OR status = ANY($%d::text[]))
		RETURNING %s
	`, assignments(dataColumns, 1), n+1, n+2, n+3, n+4, n+4, submissionColumns), args...)
	updated, err := scanSubmission(row)
	if errors.Is(err, model.ErrNotFound) {
		return model.Submission{}, s.explainMiss(ctx, s.pool, sub.ID)
	}
	return updated, err
}

// TransitionSubmission applies t atomically: the status precondition and the
// write see the same row version, and a history row is appended.
func (s *Store) TransitionSubmission(ctx context.Context, t model.Transition) (model.Submission, error) {
	var updated model.Submission
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		args := []any{
			string(t.To), t.At, t.SetVerifier, t.ActorID, t.ClearReason, t.Reason,
			t.SubmissionID, string(t.From),
		}
		set := `status = $1, updated_at = $2,
			verified_by = CASE WHEN $3 THEN $4 ELSE verified_by END,
			verified_at = CASE WHEN $3 THEN $2 ELSE verified_at END,
			rejection_reason = CASE WHEN $5 THEN NULL ELSE COALESCE($6, rejection_reason) END`
		if t.Data != nil {
			set += ", " + assignments(dataColumns, len(args)+1)
			args = append(args, dataArgs(*t.Data)...)
		}
		row := tx.QueryRow(ctx, `
			UPDATE submissions SET `+set+`
			WHERE id = $7 AND status = $8
			RETURNING `+submissionColumns, args...)
		var err error
		updated, err = scanSubmission(row)
		if errors.Is(err, model.ErrNotFound) {
			return s.explainMiss(ctx, tx, t.SubmissionID)
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO submission_status_history (id, submission_id, from_status, to_status, changed_by, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.HistoryID, t.SubmissionID, string(t.From), string(t.To), t.ActorID, t.Reason, t.At)
		return mapError(err)
	})
	if err != nil {
		return model.Submission{}, err
	}
	return updated, nil
}

// explainMiss tells a missing row apart from a failed status precondition.
func (s *Store) explainMiss(ctx context.Context, q querier, id string) error {
	var status string
	if err := q.QueryRow(ctx, `SELECT status FROM submissions WHERE id = $1`, id).Scan(&status); err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: current status %s", model.ErrStatusConflict, status)
}

func (s *Store) DeleteSubmission(ctx context.Context, id string) (model.Submission, error) {
	row := s.pool.QueryRow(ctx, `DELETE FROM submissions WHERE id = $1 RETURNING `+submissionColumns, id)
	return scanSubmission(row)
}

// LinkSubmission attaches an account to an unlinked submission.
func (s *Store) LinkSubmission(ctx context.Context, id, userID string, at time.Time) (model.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE submissions SET user_id = $2, updated_at = $3
		WHERE id = $1 AND user_id IS NULL
		RETURNING `+submissionColumns, id, userID, at)
	linked, err := scanSubmission(row)
	if errors.Is(err, model.ErrNotFound) {
		if _, getErr := s.GetSubmission(ctx, id); getErr != nil {
			return model.Submission{}, getErr
		}
		return model.Submission{}, model.ErrAccountLinked
	}
	return linked, err
}

func (s *Store) SubmissionHistory(ctx context.Context, id string) ([]model.StatusChange, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, submission_id, from_status, to_status, changed_by, reason, created_at
		FROM submission_status_history
		WHERE submission_id = $1
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []model.StatusChange{}
	for rows.Next() {
		var change model.StatusChange
		var from, to string
		if err := rows.Scan(&change.ID, &change.SubmissionID, &from, &to, &change.ChangedBy, &change.Reason, &change.CreatedAt); err != nil {
			return nil, err
		}
		change.FromStatus = model.Status(from)
		change.ToStatus = model.Status(to)
		history = append(history, change)
	}
	return history, rows.Err()
}

func (s *Store) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) (model.Page[model.Submission], error) {
	page, limit := model.Normalize(filter.Page, filter.Limit)
	where, args := submissionWhere(filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM submissions`+where, args...).Scan(&total); err != nil {
		return model.Page[model.Submission]{}, err
	}

	args = append(args, limit, model.Offset(page, limit))
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM submissions%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, submissionColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return model.Page[model.Submission]{}, err
	}
	defer rows.Close()

	items := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return model.Page[model.Submission]{}, err
		}
		items = append(items, sub)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.Submission]{}, err
	}
	return model.Page[model.Submission]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func submissionWhere(filter model.SubmissionFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, strings.ReplaceAll(condition, "?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.Status != nil {
		add(`status = ?`, string(*filter.Status))
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		add(`lower(kota) = lower(?)`, city)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add(`(nama_depan ILIKE ? OR nama_belakang ILIKE ? OR nik LIKE ?)`, "%"+q+"%")
	}
	if filter.Linked != nil {
		if *filter.Linked {
			conditions = append(conditions, `user_id IS NOT NULL`)
		} else {
			conditions = append(conditions, `user_id IS NULL`)
		}
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (s *Store) Statistics(ctx context.Context) (model.Statistics, error) {
	stats := model.Statistics{ByStatus: map[model.Status]int{}}

	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM submissions GROUP BY status`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByStatus[model.Status(status)] = count
		stats.Total += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.ByGender, err = s.countBy(ctx, "jenis_kelamin"); err != nil {
		return stats, err
	}
	if stats.ByCity, err = s.countBy(ctx, "kota"); err != nil {
		return stats, err
	}
	if stats.ByEducation, err = s.countBy(ctx, "pendidikan_terakhir"); err != nil {
		return stats, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'verified' AND memiliki_disabilitas),
			count(*) FILTER (WHERE status = 'verified' AND pernah_diskriminasi),
			count(*) FILTER (WHERE status = 'verified' AND terdaftar_dtks),
			count(*) FILTER (WHERE user_id IS NOT NULL)
		FROM submissions
	`).Scan(&stats.WithDisability, &stats.ExperiencedDiscrimination, &stats.RegisteredDTKS, &stats.LinkedToAccount)
	return stats, err
}

// countBy groups verified submissions by a fixed column name.
func (s *Store) countBy(ctx context.Context, column string) ([]model.Count, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %[1]s, count(*) FROM submissions
		WHERE status = 'verified' AND %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY %[1]s
		ORDER BY count(*) DESC, %[1]s
	`, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []model.Count{}
	for rows.Next() {
		var c model.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func statusStrings(statuses []model.Status) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}
	return out
}
