package sqlite

import (
	"context"

	"gorm.io/gorm"

	"komunitas/pendataan/internal/model"
)

func (s *Store) CreatePost(ctx context.Context, post model.Post) error {
	return mapError(s.db.WithContext(ctx).Create(&post).Error)
}

func (s *Store) UpdatePost(ctx context.Context, post model.Post) (model.Post, error) {
	var updated model.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Post{}).
			Where("id = ?", post.ID).
			Select("title", "slug", "body", "status", "updated_by", "updated_at", "published_at").
			Updates(&post)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return model.ErrNotFound
		}
		return mapError(tx.Where("id = ?", post.ID).First(&updated).Error)
	})
	return updated, err
}

func (s *Store) DeletePost(ctx context.Context, id string) (model.Post, error) {
	var deleted model.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			return mapError(err)
		}
		return tx.Delete(&model.Post{}, "id = ?", id).Error
	})
	return deleted, err
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	var post model.Post
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	return post, mapError(err)
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	var post model.Post
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error
	return post, mapError(err)
}

// SlugTaken reports whether slug belongs to a post other than excludeID.
func (s *Store) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Post{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) ListPosts(ctx context.Context, filter model.PostFilter) (model.Page[model.Post], error) {
	page, limit := model.Normalize(filter.Page, filter.Limit)
	query := s.db.WithContext(ctx).Model(&model.Post{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return model.Page[model.Post]{}, err
	}
	items := []model.Post{}
	err := query.
		Order("COALESCE(published_at, created_at) DESC, id").
		Limit(limit).
		Offset(model.Offset(page, limit)).
		Find(&items).Error
	if err != nil {
		return model.Page[model.Post]{}, err
	}
	return model.Page[model.Post]{Items: items, Total: int(total), Page: page, Limit: limit}, nil
}
