package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/submission"
	"komunitas/pendataan/internal/workflow"
)

const fallbackSlug = "kegiatan"

// slugAttempts bounds retries when a concurrent writer takes the slug between
// the lookup and the insert.
const slugAttempts = 3

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

type PostResult struct {
	Post        model.Post  `json:"post"`
	Invalidated []cache.Tag `json:"invalidated"`
}

type PostInput struct {
	Title   string
	Body    string
	Publish bool
}

type Posts struct {
	store      PostStore
	dispatcher *cache.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

func NewPosts(store PostStore, dispatcher *cache.Dispatcher, logger *slog.Logger) *Posts {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Posts{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// uniqueSlug appends -1, -2, ... to the slug of title until it is free.
// excludeID is the post being updated, whose own slug counts as free.
func (p *Posts) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := Slugify(title)
	candidate := base
	for i := 1; ; i++ {
		taken, err := p.store.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func validatePost(in PostInput) (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	var errs []submission.FieldError
	if in.Title == "" {
		errs = append(errs, submission.FieldError{Field: "title", Message: "Judul wajib diisi"})
	}
	if strings.TrimSpace(in.Body) == "" {
		errs = append(errs, submission.FieldError{Field: "body", Message: "Isi wajib diisi"})
	}
	if len(errs) > 0 {
		return in, &submission.ValidationError{Profile: "post", Errors: errs}
	}
	return in, nil
}

func (p *Posts) Create(ctx context.Context, actor *model.Actor, in PostInput) (PostResult, error) {
	if !actor.IsAdmin() {
		return PostResult{}, ErrForbidden
	}
	in, err := validatePost(in)
	if err != nil {
		return PostResult{}, err
	}
	now := p.now()
	post := model.Post{
		ID:        p.newID(),
		Title:     in.Title,
		Body:      in.Body,
		Status:    model.PostDraft,
		CreatedBy: &actor.ID,
		UpdatedBy: &actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Publish {
		post.Status = model.PostPublished
		post.PublishedAt = &now
	}
	for attempt := 0; attempt < slugAttempts; attempt++ {
		if post.Slug, err = p.uniqueSlug(ctx, post.Title, post.ID); err != nil {
			return PostResult{}, err
		}
		err = p.store.CreatePost(ctx, post)
		if !errors.Is(err, model.ErrDuplicateSlug) {
			break
		}
	}
	if err != nil {
		return PostResult{}, err
	}
	p.logger.Info("post created", "id", post.ID, "slug", post.Slug)
	return p.finish(ctx, post, workflow.PostCreated), nil
}

// Update edits title and body. The slug is regenerated only when the title
// changes.
func (p *Posts) Update(ctx context.Context, actor *model.Actor, id string, in PostInput) (PostResult, error) {
	if !actor.IsAdmin() {
		return PostResult{}, ErrForbidden
	}
	in, err := validatePost(in)
	if err != nil {
		return PostResult{}, err
	}
	post, err := p.store.GetPost(ctx, id)
	if err != nil {
		return PostResult{}, err
	}
	retitled := post.Title != in.Title
	post.Title = in.Title
	post.Body = in.Body
	post.UpdatedBy = &actor.ID
	post.UpdatedAt = p.now()

	var updated model.Post
	for attempt := 0; attempt < slugAttempts; attempt++ {
		if retitled {
			if post.Slug, err = p.uniqueSlug(ctx, post.Title, post.ID); err != nil {
				return PostResult{}, err
			}
		}
		updated, err = p.store.UpdatePost(ctx, post)
		if !retitled || !errors.Is(err, model.ErrDuplicateSlug) {
			break
		}
	}
	if err != nil {
		return PostResult{}, err
	}
	p.logger.Info("post updated", "id", updated.ID, "slug", updated.Slug)
	return p.finish(ctx, updated, workflow.PostUpdated), nil
}

// SetPublished toggles publication. The first publication time is kept when
// a post is unpublished and published again.
func (p *Posts) SetPublished(ctx context.Context, actor *model.Actor, id string, published bool) (PostResult, error) {
	if !actor.IsAdmin() {
		return PostResult{}, ErrForbidden
	}
	post, err := p.store.GetPost(ctx, id)
	if err != nil {
		return PostResult{}, err
	}
	now := p.now()
	post.Status = model.PostDraft
	if published {
		post.Status = model.PostPublished
		if post.PublishedAt == nil {
			post.PublishedAt = &now
		}
	}
	post.UpdatedBy = &actor.ID
	post.UpdatedAt = now
	updated, err := p.store.UpdatePost(ctx, post)
	if err != nil {
		return PostResult{}, err
	}
	p.logger.Info("post publication changed", "id", updated.ID, "status", updated.Status)
	return p.finish(ctx, updated, workflow.PostPublishToggled), nil
}

func (p *Posts) Delete(ctx context.Context, actor *model.Actor, id string) (PostResult, error) {
	if !actor.IsAdmin() {
		return PostResult{}, ErrForbidden
	}
	deleted, err := p.store.DeletePost(ctx, id)
	if err != nil {
		return PostResult{}, err
	}
	p.logger.Info("post deleted", "id", deleted.ID)
	return p.finish(ctx, deleted, workflow.PostDeleted), nil
}

func (p *Posts) Get(ctx context.Context, actor *model.Actor, id string) (model.Post, error) {
	if !actor.IsAdmin() {
		return model.Post{}, ErrForbidden
	}
	return p.store.GetPost(ctx, id)
}

// GetBySlug serves the public page. Drafts are reported as not found.
func (p *Posts) GetBySlug(ctx context.Context, slug string) (model.Post, error) {
	post, err := p.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return model.Post{}, err
	}
	if post.Status != model.PostPublished {
		return model.Post{}, model.ErrNotFound
	}
	return post, nil
}

// Published lists the public posts.
func (p *Posts) Published(ctx context.Context, page, limit int) (model.Page[model.Post], error) {
	status := model.PostPublished
	return p.store.ListPosts(ctx, model.PostFilter{Status: &status, Page: page, Limit: limit})
}

func (p *Posts) List(ctx context.Context, actor *model.Actor, filter model.PostFilter) (model.Page[model.Post], error) {
	if !actor.IsAdmin() {
		return model.Page[model.Post]{}, ErrForbidden
	}
	return p.store.ListPosts(ctx, filter)
}

func (p *Posts) finish(ctx context.Context, post model.Post, mutation workflow.Mutation) PostResult {
	tags := workflow.Invalidations(workflow.Change{Mutation: mutation, PostID: post.ID})
	p.dispatcher.Dispatch(ctx, tags)
	return PostResult{Post: post, Invalidated: tags}
}
