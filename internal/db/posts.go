package db

import (
	"context"
	"fmt"

	"komunitas/pendataan/internal/model"
)

const postColumns = `id, title, slug, body, status, created_by, updated_by, created_at, updated_at, published_at`

func scanPost(row rowScanner) (model.Post, error) {
	var post model.Post
	var status string
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Body,
		&status,
		&post.CreatedBy,
		&post.UpdatedBy,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.PublishedAt,
	)
	post.Status = model.PostStatus(status)
	return post, mapError(err)
}

func (s *Store) CreatePost(ctx context.Context, post model.Post) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, post.ID, post.Title, post.Slug, post.Body, string(post.Status), post.CreatedBy, post.UpdatedBy, post.CreatedAt, post.UpdatedAt, post.PublishedAt)
	return mapError(err)
}

func (s *Store) UpdatePost(ctx context.Context, post model.Post) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE posts
		SET title = $2, slug = $3, body = $4, status = $5, updated_by = $6, updated_at = $7, published_at = $8
		WHERE id = $1
		RETURNING `+postColumns,
		post.ID, post.Title, post.Slug, post.Body, string(post.Status), post.UpdatedBy, post.UpdatedAt, post.PublishedAt)
	return scanPost(row)
}

func (s *Store) DeletePost(ctx context.Context, id string) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `DELETE FROM posts WHERE id = $1 RETURNING `+postColumns, id)
	return scanPost(row)
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	return scanPost(row)
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug)
	return scanPost(row)
}

// SlugTaken reports whether slug belongs to a post other than excludeID.
func (s *Store) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`, slug, excludeID).Scan(&taken)
	return taken, err
}

func (s *Store) ListPosts(ctx context.Context, filter model.PostFilter) (model.Page[model.Post], error) {
	page, limit := model.Normalize(filter.Page, filter.Limit)
	where := ""
	var args []any
	if filter.Status != nil {
		where = ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return model.Page[model.Post]{}, err
	}

	args = append(args, limit, model.Offset(page, limit))
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM posts%s
		ORDER BY COALESCE(published_at, created_at) DESC, id
		LIMIT $%d OFFSET $%d
	`, postColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return model.Page[model.Post]{}, err
	}
	defer rows.Close()

	items := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return model.Page[model.Post]{}, err
		}
		items = append(items, post)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.Post]{}, err
	}
	return model.Page[model.Post]{Items: items, Total: total, Page: page, Limit: limit}, nil
}
