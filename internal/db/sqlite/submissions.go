package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"komunitas/pendataan/internal/model"
)

// metaColumns are never touched by a data update.
var metaColumns = []string{"id", "user_id", "status", "created_at", "created_by", "verified_by", "verified_at", "rejection_reason"}

func (s *Store) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	return s.firstSubmission(s.db.WithContext(ctx), "id = ?", id)
}

func (s *Store) GetSubmissionByUser(ctx context.Context, userID string) (model.Submission, error) {
	return s.firstSubmission(s.db.WithContext(ctx), "user_id = ?", userID)
}

func (s *Store) FindSubmissionByNIK(ctx context.Context, nik string) (model.Submission, error) {
	return s.firstSubmission(s.db.WithContext(ctx), "nik = ?", nik)
}

func (s *Store) FindSubmissionByKK(ctx context.Context, kk string) (model.Submission, error) {
	return s.firstSubmission(s.db.WithContext(ctx), "nomor_kk = ?", kk)
}

func (s *Store) firstSubmission(db *gorm.DB, query string, args ...any) (model.Submission, error) {
	var sub model.Submission
	if err := db.Where(query, args...).First(&sub).Error; err != nil {
		return model.Submission{}, mapError(err)
	}
	return sub, nil
}

func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) error {
	return mapError(s.db.WithContext(ctx).Create(&sub).Error)
}

func (s *Store) UpdateSubmission(ctx context.Context, sub model.Submission, allowed []model.Status) (model.Submission, error) {
	var updated model.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&model.Submission{}).Where("id = ?", sub.ID)
		if len(allowed) > 0 {
			query = query.Where("status IN ?", allowed)
		}
		result := query.Select("*").Omit(metaColumns...).Updates(&sub)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return explainMiss(tx, sub.ID)
		}
		var err error
		updated, err = s.firstSubmission(tx, "id = ?", sub.ID)
		return err
	})
	return updated, err
}

func (s *Store) TransitionSubmission(ctx context.Context, t model.Transition) (model.Submission, error) {
	var updated model.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes := map[string]any{
			"status":     t.To,
			"updated_at": t.At,
		}
		if t.SetVerifier {
			changes["verified_by"] = t.ActorID
			changes["verified_at"] = t.At
		}
		if t.ClearReason {
			changes["rejection_reason"] = nil
		} else if t.Reason != nil {
			changes["rejection_reason"] = *t.Reason
		}
		result := tx.Model(&model.Submission{}).
			Where("id = ? AND status = ?", t.SubmissionID, t.From).
			Updates(changes)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return explainMiss(tx, t.SubmissionID)
		}
		if t.Data != nil {
			data := model.Submission{ID: t.SubmissionID, Data: *t.Data, UpdatedAt: t.At}
			err := tx.Model(&model.Submission{}).
				Where("id = ?", t.SubmissionID).
				Select("*").Omit(append(metaColumns, "admin_notes")...).
				Updates(&data).Error
			if err != nil {
				return mapError(err)
			}
		}
		change := model.StatusChange{
			ID:           t.HistoryID,
			SubmissionID: t.SubmissionID,
			FromStatus:   t.From,
			ToStatus:     t.To,
			ChangedBy:    t.ActorID,
			Reason:       t.Reason,
			CreatedAt:    t.At,
		}
		if err := tx.Create(&change).Error; err != nil {
			return mapError(err)
		}
		var err error
		updated, err = s.firstSubmission(tx, "id = ?", t.SubmissionID)
		return err
	})
	return updated, err
}

func explainMiss(tx *gorm.DB, id string) error {
	var sub model.Submission
	if err := tx.Select("status").Where("id = ?", id).First(&sub).Error; err != nil {
		return mapError(err)
	}
	return fmt.Errorf("%w: current status %s", model.ErrStatusConflict, sub.Status)
}

func (s *Store) DeleteSubmission(ctx context.Context, id string) (model.Submission, error) {
	var deleted model.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.firstSubmission(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if err := tx.Where("submission_id = ?", id).Delete(&model.StatusChange{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Submission{}, "id = ?", id).Error
	})
	return deleted, err
}

func (s *Store) LinkSubmission(ctx context.Context, id, userID string, at time.Time) (model.Submission, error) {
	var linked model.Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Submission{}).
			Where("id = ? AND user_id IS NULL", id).
			Updates(map[string]any{"user_id": userID, "updated_at": at})
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			if _, err := s.firstSubmission(tx, "id = ?", id); err != nil {
				return err
			}
			return model.ErrAccountLinked
		}
		var err error
		linked, err = s.firstSubmission(tx, "id = ?", id)
		return err
	})
	return linked, err
}

func (s *Store) SubmissionHistory(ctx context.Context, id string) ([]model.StatusChange, error) {
	history := []model.StatusChange{}
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", id).
		Order("created_at, id").
		Find(&history).Error
	return history, err
}

func (s *Store) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) (model.Page[model.Submission], error) {
	page, limit := model.Normalize(filter.Page, filter.Limit)
	query := s.db.WithContext(ctx).Model(&model.Submission{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("lower(kota) = lower(?)", city)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + q + "%"
		query = query.Where("(nama_depan LIKE ? OR nama_belakang LIKE ? OR nik LIKE ?)", like, like, like)
	}
	if filter.Linked != nil {
		if *filter.Linked {
			query = query.Where("user_id IS NOT NULL")
		} else {
			query = query.Where("user_id IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.Page[model.Submission]{}, err
	}
	items := []model.Submission{}
	err := query.Order("created_at DESC, id").Limit(limit).Offset(model.Offset(page, limit)).Find(&items).Error
	if err != nil {
		return model.Page[model.Submission]{}, err
	}
	return model.Page[model.Submission]{Items: items, Total: int(total), Page: page, Limit: limit}, nil
}

type countRow struct {
	Value string
	Total int
}

func (s *Store) Statistics(ctx context.Context) (model.Statistics, error) {
	db := s.db.WithContext(ctx)
	stats := model.Statistics{ByStatus: map[model.Status]int{}}

	var byStatus []countRow
	err := db.Model(&model.Submission{}).
		Select("status AS value, count(*) AS total").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return stats, err
	}
	for _, row := range byStatus {
		stats.ByStatus[model.Status(row.Value)] = row.Total
		stats.Total += row.Total
	}

	if stats.ByGender, err = countBy(db, "jenis_kelamin"); err != nil {
		return stats, err
	}
	if stats.ByCity, err = countBy(db, "kota"); err != nil {
		return stats, err
	}
	if stats.ByEducation, err = countBy(db, "pendidikan_terakhir"); err != nil {
		return stats, err
	}

	flags := []struct {
		column string
		target *int
	}{
		{"memiliki_disabilitas", &stats.WithDisability},
		{"pernah_diskriminasi", &stats.ExperiencedDiscrimination},
		{"terdaftar_dtks", &stats.RegisteredDTKS},
	}
	for _, flag := range flags {
		var n int64
		err := db.Model(&model.Submission{}).
			Where("status = ?", model.StatusVerified).
			Where(flag.column+" = ?", true).
			Count(&n).Error
		if err != nil {
			return stats, err
		}
		*flag.target = int(n)
	}

	var linked int64
	if err := db.Model(&model.Submission{}).Where("user_id IS NOT NULL").Count(&linked).Error; err != nil {
		return stats, err
	}
	stats.LinkedToAccount = int(linked)
	return stats, nil
}

func countBy(db *gorm.DB, column string) ([]model.Count, error) {
	var rows []countRow
	err := db.Model(&model.Submission{}).
		Select(column+" AS value, count(*) AS total").
		Where("status = ?", model.StatusVerified).
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Group(column).
		Order("total DESC, value").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make([]model.Count, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, model.Count{Key: row.Value, Count: row.Total})
	}
	return counts, nil
}
