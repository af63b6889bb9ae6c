package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/service"
)

type postRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Publish bool   `json:"publish,omitempty"`
}

type publishRequest struct {
	Published bool `json:"published"`
}

func (s *Server) handleListPublishedPosts(w http.ResponseWriter, r *http.Request) {
	page, limit := model.Normalize(queryInt(r, "page", 1), queryInt(r, "limit", model.DefaultPageLimit))
	key := fmt.Sprintf("%s?page=%d&limit=%d", cache.PostsList, page, limit)
	s.serveCached(w, r, key, []cache.Tag{cache.PostsList}, func(ctx context.Context) (any, []cache.Tag, error) {
		posts, err := s.posts.Published(ctx, page, limit)
		return posts, nil, err
	})
}

func (s *Server) handleGetPublishedPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	// a slug can move to another post, so the entry also follows the list
	s.serveCached(w, r, "post-slug:"+slug, []cache.Tag{cache.PostsList}, func(ctx context.Context) (any, []cache.Tag, error) {
		post, err := s.posts.GetBySlug(ctx, slug)
		if err != nil {
			return nil, nil, err
		}
		return post, []cache.Tag{cache.PostTag(post.ID)}, nil
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filter := model.PostFilter{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", model.DefaultPageLimit),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.PostStatus(raw)
		if status != model.PostDraft && status != model.PostPublished {
			writeError(w, http.StatusBadRequest, "invalid_filter")
			return
		}
		filter.Status = &status
	}
	page, err := s.posts.List(r.Context(), actorFromContext(r.Context()), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.posts.Create(r.Context(), actorFromContext(r.Context()), service.PostInput{
		Title:   req.Title,
		Body:    req.Body,
		Publish: req.Publish,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusCreated, res.Invalidated, res)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.Get(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil || req.Publish {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.posts.Update(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), service.PostInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.posts.SetPublished(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Published)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	res, err := s.posts.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}
