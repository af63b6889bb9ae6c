package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/service"
	"komunitas/pendataan/internal/submission"
)

type submissionRequest struct {
	Data       map[string]any `json:"data"`
	AdminNotes *string        `json:"adminNotes,omitempty"`
	Draft      bool           `json:"draft,omitempty"`
}

func (req submissionRequest) input() service.SubmissionInput {
	return service.SubmissionInput{Payload: req.Data, AdminNotes: req.AdminNotes, Draft: req.Draft}
}

type transitionRequest struct {
	Status model.Status `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

type linkRequest struct {
	UserID string `json:"userId"`
}

type validateRequest struct {
	Data    map[string]any `json:"data"`
	Profile string         `json:"profile,omitempty"`
}

type validateResponse struct {
	Valid bool       `json:"valid"`
	Data  model.Data `json:"data"`
}

type schemaResponse struct {
	Sections []submission.Section `json:"sections"`
	Required map[string][]string  `json:"required"`
}

func (s *Server) handleFormSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schemaResponse{
		Sections: submission.Sections(),
		Required: map[string][]string{
			submission.Admin.Name:  submission.Admin.RequiredKeys(),
			submission.Public.Name: submission.Public.RequiredKeys(),
			submission.Draft.Name:  submission.Draft.RequiredKeys(),
		},
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, cache.StatisticsKey, []cache.Tag{cache.Statistics}, func(ctx context.Context) (any, []cache.Tag, error) {
		stats, err := s.submissions.Statistics(ctx)
		return stats, nil, err
	})
}

func (s *Server) handlePublicSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Draft || req.AdminNotes != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	actor := actorFromContext(r.Context())
	if actor.IsAdmin() {
		// admins enter records through /admin/submissions
		actor = nil
	}
	res, err := s.submissions.Create(r.Context(), actor, req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusCreated, res.Invalidated, res)
}

func (s *Server) handleFormStatus(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	key := string(cache.FormStatusTag(actor.ID))
	s.serveCached(w, r, key, []cache.Tag{cache.FormStatusTag(actor.ID)}, func(ctx context.Context) (any, []cache.Tag, error) {
		status, err := s.submissions.FormStatus(ctx, actor)
		return status, nil, err
	})
}

func (s *Server) handleGetOwnSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.submissions.Own(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleSaveOwnSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil || req.AdminNotes != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.submissions.SaveOwn(r.Context(), actorFromContext(r.Context()), req.Data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleFinalizeOwnSubmission(w http.ResponseWriter, r *http.Request) {
	res, err := s.submissions.Finalize(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	profile := submission.Admin
	if req.Profile != "" {
		var ok bool
		if profile, ok = submission.ProfileByName(req.Profile); !ok {
			writeError(w, http.StatusBadRequest, "invalid_profile")
			return
		}
	}
	data, err := s.submissions.Validate(profile, req.Data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Data: data})
}

func submissionFilter(query url.Values) (model.SubmissionFilter, error) {
	filter := model.SubmissionFilter{
		City:  strings.TrimSpace(query.Get("city")),
		Query: strings.TrimSpace(query.Get("q")),
	}
	if raw := query.Get("status"); raw != "" {
		status := model.Status(raw)
		if !status.Valid() {
			return filter, fmt.Errorf("invalid status %q", raw)
		}
		filter.Status = &status
	}
	if raw := query.Get("linked"); raw != "" {
		linked, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid linked %q", raw)
		}
		filter.Linked = &linked
	}
	for key, target := range map[string]*int{"page": &filter.Page, "limit": &filter.Limit} {
		if raw := query.Get(key); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil {
				return filter, fmt.Errorf("invalid %s %q", key, raw)
			}
			*target = value
		}
	}
	filter.Page, filter.Limit = model.Normalize(filter.Page, filter.Limit)
	return filter, nil
}

func listKey(prefix string, query url.Values) string {
	// Encode sorts by key, so equal filters share an entry
	return prefix + "?" + query.Encode()
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	filter, err := submissionFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter")
		return
	}
	actor := actorFromContext(r.Context())
	s.serveCached(w, r, listKey(string(cache.SubmissionList), r.URL.Query()), []cache.Tag{cache.SubmissionList}, func(ctx context.Context) (any, []cache.Tag, error) {
		page, err := s.submissions.List(ctx, actor, filter)
		return page, nil, err
	})
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.submissions.Create(r.Context(), actorFromContext(r.Context()), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusCreated, res.Invalidated, res)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorFromContext(r.Context())
	s.serveCached(w, r, string(cache.SubmissionTag(id)), []cache.Tag{cache.SubmissionTag(id)}, func(ctx context.Context) (any, []cache.Tag, error) {
		sub, err := s.submissions.Get(ctx, actor, id)
		return sub, nil, err
	})
}

func (s *Server) handleUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil || req.Draft {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.submissions.Update(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	res, err := s.submissions.Delete(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleTransitionSubmission(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.submissions.Transition(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Status, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleLinkSubmission(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	res, err := s.submissions.Link(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, res.Invalidated, res)
}

func (s *Server) handleSubmissionHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.submissions.History(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": history})
}
