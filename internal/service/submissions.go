package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/metrics"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/submission"
	"komunitas/pendataan/internal/workflow"
)

var ErrForbidden = workflow.ErrForbidden

// Result is returned by every successful submission mutation together with
// the cache partitions it invalidated.
type Result struct {
	Submission  model.Submission `json:"submission"`
	Invalidated []cache.Tag      `json:"invalidated"`
}

// SubmissionInput is a raw intake payload. Draft keeps the record in draft
// status and only applies the draft profile.
type SubmissionInput struct {
	Payload    map[string]any
	AdminNotes *string
	Draft      bool
}

// FormStatus summarizes the caller's own submission.
type FormStatus struct {
	HasSubmission   bool          `json:"hasSubmission"`
	SubmissionID    string        `json:"submissionId,omitempty"`
	Status          *model.Status `json:"status,omitempty"`
	Editable        bool          `json:"editable"`
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	UpdatedAt       *time.Time    `json:"updatedAt,omitempty"`
}

type Submissions struct {
	store      SubmissionStore
	accounts   AccountStore
	dispatcher *cache.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

func NewSubmissions(store SubmissionStore, accounts AccountStore, dispatcher *cache.Dispatcher, m *metrics.Metrics, logger *slog.Logger) *Submissions {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Submissions{
		store:      store,
		accounts:   accounts,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Validate runs the pure validator under profile p.
func (s *Submissions) Validate(p submission.Profile, payload map[string]any) (model.Data, error) {
	data, err := submission.Validate(p, payload)
	if err != nil {
		s.metrics.ValidationFailed(p.Name)
	}
	return data, err
}

// Create stores a new record. Admins enter unlinked records, authenticated
// users get a record linked to their account and anonymous callers get an
// unlinked public record.
func (s *Submissions) Create(ctx context.Context, actor *model.Actor, in SubmissionInput) (Result, error) {
	if in.Draft && actor == nil {
		return Result{}, ErrForbidden
	}
	if in.AdminNotes != nil && !actor.IsAdmin() {
		return Result{}, ErrForbidden
	}
	profile := submission.Public
	switch {
	case in.Draft:
		profile = submission.Draft
	case actor.IsAdmin():
		profile = submission.Admin
	}
	data, err := s.Validate(profile, in.Payload)
	if err != nil {
		return Result{}, err
	}
	if err := s.checkUnique(ctx, data, ""); err != nil {
		return Result{}, err
	}

	now := s.now()
	sub := model.Submission{
		ID:         s.newID(),
		Status:     model.StatusSubmitted,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
		AdminNotes: trimmed(in.AdminNotes),
	}
	if in.Draft {
		sub.Status = model.StatusDraft
	}
	ownerID := ""
	switch {
	case actor.IsAdmin():
		sub.CreatedBy = &actor.ID
	case actor != nil:
		if _, err := s.store.GetSubmissionByUser(ctx, actor.ID); err == nil {
			return Result{}, model.ErrAccountLinked
		} else if !errors.Is(err, model.ErrNotFound) {
			return Result{}, err
		}
		sub.UserID = &actor.ID
		ownerID = actor.ID
	}

	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		return Result{}, err
	}
	s.logger.Info("submission created", "id", sub.ID, "status", sub.Status, "profile", profile.Name)
	return s.finish(ctx, sub, workflow.Change{
		Mutation:     workflow.SubmissionCreated,
		SubmissionID: sub.ID,
		OwnerID:      ownerID,
	}), nil
}

// Update replaces the intake fields of a record as an admin correction. The
// status is left unchanged.
func (s *Submissions) Update(ctx context.Context, actor *model.Actor, id string, in SubmissionInput) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, ErrForbidden
	}
	current, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return Result{}, err
	}
	profile := submission.Admin
	if current.Status == model.StatusDraft {
		profile = submission.Draft
	}
	if in.AdminNotes != nil {
		current.AdminNotes = trimmed(in.AdminNotes)
	}
	return s.update(ctx, current, profile, in.Payload, nil)
}

// SaveOwn creates or edits the caller's own record. A caller without a
// record starts a draft. Edits are only accepted while the record is still
// in draft or submitted.
func (s *Submissions) SaveOwn(ctx context.Context, actor *model.Actor, payload map[string]any) (Result, error) {
	if actor == nil {
		return Result{}, ErrForbidden
	}
	current, err := s.store.GetSubmissionByUser(ctx, actor.ID)
	if errors.Is(err, model.ErrNotFound) {
		return s.Create(ctx, &model.Actor{ID: actor.ID, Role: model.RoleUser}, SubmissionInput{Payload: payload, Draft: true})
	}
	if err != nil {
		return Result{}, err
	}
	if !workflow.Editable(current.Status) {
		return Result{}, fmt.Errorf("%w: %s submissions are read-only", workflow.ErrInvalidTransition, current.Status)
	}
	profile := submission.Public
	if current.Status == model.StatusDraft {
		profile = submission.Draft
	}
	return s.update(ctx, current, profile, payload, []model.Status{model.StatusDraft, model.StatusSubmitted})
}

func (s *Submissions) update(ctx context.Context, current model.Submission, profile submission.Profile, payload map[string]any, allowed []model.Status) (Result, error) {
	data, err := s.Validate(profile, payload)
	if err != nil {
		return Result{}, err
	}
	if err := s.checkUnique(ctx, data, current.ID); err != nil {
		return Result{}, err
	}
	current.Data = submission.KeepLists(current.Data, data)
	current.UpdatedAt = s.now()

	updated, err := s.store.UpdateSubmission(ctx, current, allowed)
	if err != nil {
		if errors.Is(err, model.ErrStatusConflict) {
			return Result{}, fmt.Errorf("%w: %v", workflow.ErrInvalidTransition, err)
		}
		return Result{}, err
	}
	s.logger.Info("submission updated", "id", updated.ID, "status", updated.Status, "profile", profile.Name)
	return s.finish(ctx, updated, workflow.Change{
		Mutation:     workflow.SubmissionUpdated,
		SubmissionID: updated.ID,
		OwnerID:      owner(updated),
		Verified:     updated.Status == model.StatusVerified,
	}), nil
}

// Transition moves a record to target. Role and reason are checked before the
// record is loaded; the current status is checked again atomically by the
// store.
func (s *Submissions) Transition(ctx context.Context, actor *model.Actor, id string, target model.Status, reason string) (res Result, err error) {
	defer func() { s.metrics.Transition(string(target), err) }()
	if actor == nil {
		return Result{}, ErrForbidden
	}
	if _, err := workflow.Check(target, actor.Role, reason); err != nil {
		return Result{}, err
	}
	current, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !actor.IsAdmin() && owner(current) != actor.ID {
		return Result{}, ErrForbidden
	}
	rule, err := workflow.Plan(current.Status, target, actor.Role, reason)
	if err != nil {
		return Result{}, err
	}

	t := model.Transition{
		SubmissionID: current.ID,
		From:         rule.From,
		To:           rule.To,
		ActorID:      actor.ID,
		ClearReason:  rule.ClearsReason,
		SetVerifier:  rule.RecordsVerifier,
		HistoryID:    s.newID(),
		At:           s.now(),
	}
	if rule.RequiresReason {
		trimmedReason := strings.TrimSpace(reason)
		t.Reason = &trimmedReason
	}
	if rule.RequiresValidation {
		profile := submission.Public
		if actor.IsAdmin() {
			profile = submission.Admin
		}
		data, err := s.Validate(profile, submission.Payload(current.Data))
		if err != nil {
			return Result{}, err
		}
		if err := s.checkUnique(ctx, data, current.ID); err != nil {
			return Result{}, err
		}
		data = submission.KeepLists(current.Data, data)
		t.Data = &data
	}

	updated, err := s.store.TransitionSubmission(ctx, t)
	if err != nil {
		if errors.Is(err, model.ErrStatusConflict) {
			return Result{}, fmt.Errorf("%w: %v", workflow.ErrInvalidTransition, err)
		}
		return Result{}, err
	}
	s.logger.Info("submission transitioned", "id", updated.ID, "from", rule.From, "to", rule.To, "actor", actor.ID)
	return s.finish(ctx, updated, workflow.Change{
		Mutation:     workflow.SubmissionTransitioned,
		SubmissionID: updated.ID,
		OwnerID:      owner(updated),
	}), nil
}

// Finalize submits the caller's own draft.
func (s *Submissions) Finalize(ctx context.Context, actor *model.Actor) (Result, error) {
	if actor == nil {
		return Result{}, ErrForbidden
	}
	current, err := s.store.GetSubmissionByUser(ctx, actor.ID)
	if err != nil {
		return Result{}, err
	}
	return s.Transition(ctx, actor, current.ID, model.StatusSubmitted, "")
}

func (s *Submissions) Delete(ctx context.Context, actor *model.Actor, id string) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, ErrForbidden
	}
	deleted, err := s.store.DeleteSubmission(ctx, id)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("submission deleted", "id", deleted.ID, "actor", actor.ID)
	return s.finish(ctx, deleted, workflow.Change{
		Mutation:     workflow.SubmissionDeleted,
		SubmissionID: deleted.ID,
		OwnerID:      owner(deleted),
	}), nil
}

// Link attaches an unlinked record to an existing user account. A record and
// an account are linked at most once.
func (s *Submissions) Link(ctx context.Context, actor *model.Actor, id, userID string) (Result, error) {
	if !actor.IsAdmin() {
		return Result{}, ErrForbidden
	}
	if strings.TrimSpace(userID) == "" {
		return Result{}, &submission.ValidationError{Profile: "link", Errors: []submission.FieldError{
			{Field: "userId", Message: "Akun wajib diisi"},
		}}
	}
	if _, err := s.accounts.GetAccount(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Result{}, &submission.ValidationError{Profile: "link", Errors: []submission.FieldError{
				{Field: "userId", Message: "Akun tidak ditemukan"},
			}}
		}
		return Result{}, err
	}
	linked, err := s.store.LinkSubmission(ctx, id, userID, s.now())
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("submission linked", "id", linked.ID, "user_id", userID, "actor", actor.ID)
	return s.finish(ctx, linked, workflow.Change{
		Mutation:     workflow.SubmissionLinked,
		SubmissionID: linked.ID,
		OwnerID:      userID,
	}), nil
}

// Get returns a record to an admin or to its owner.
func (s *Submissions) Get(ctx context.Context, actor *model.Actor, id string) (model.Submission, error) {
	if actor == nil {
		return model.Submission{}, ErrForbidden
	}
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return model.Submission{}, err
	}
	if !actor.IsAdmin() && owner(sub) != actor.ID {
		return model.Submission{}, ErrForbidden
	}
	return sub, nil
}

// Own returns the caller's own record.
func (s *Submissions) Own(ctx context.Context, actor *model.Actor) (model.Submission, error) {
	if actor == nil {
		return model.Submission{}, ErrForbidden
	}
	return s.store.GetSubmissionByUser(ctx, actor.ID)
}

func (s *Submissions) List(ctx context.Context, actor *model.Actor, filter model.SubmissionFilter) (model.Page[model.Submission], error) {
	if !actor.IsAdmin() {
		return model.Page[model.Submission]{}, ErrForbidden
	}
	return s.store.ListSubmissions(ctx, filter)
}

func (s *Submissions) History(ctx context.Context, actor *model.Actor, id string) ([]model.StatusChange, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.store.GetSubmission(ctx, id); err != nil {
		return nil, err
	}
	return s.store.SubmissionHistory(ctx, id)
}

func (s *Submissions) FormStatus(ctx context.Context, actor *model.Actor) (FormStatus, error) {
	if actor == nil {
		return FormStatus{}, ErrForbidden
	}
	sub, err := s.store.GetSubmissionByUser(ctx, actor.ID)
	if errors.Is(err, model.ErrNotFound) {
		return FormStatus{Editable: true}, nil
	}
	if err != nil {
		return FormStatus{}, err
	}
	status := sub.Status
	updatedAt := sub.UpdatedAt
	return FormStatus{
		HasSubmission:   true,
		SubmissionID:    sub.ID,
		Status:          &status,
		Editable:        workflow.Editable(sub.Status),
		RejectionReason: sub.RejectionReason,
		UpdatedAt:       &updatedAt,
	}, nil
}

func (s *Submissions) Statistics(ctx context.Context) (model.Statistics, error) {
	return s.store.Statistics(ctx)
}

// checkUnique is the pre-check for the national ID and family card. The
// store's unique indexes remain the final guarantee.
func (s *Submissions) checkUnique(ctx context.Context, data model.Data, selfID string) error {
	existing, err := s.store.FindSubmissionByNIK(ctx, data.NIK)
	switch {
	case err == nil && existing.ID != selfID:
		return model.ErrDuplicateNIK
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return err
	}
	if data.NomorKK == nil {
		return nil
	}
	existing, err = s.store.FindSubmissionByKK(ctx, *data.NomorKK)
	switch {
	case err == nil && existing.ID != selfID:
		return model.ErrDuplicateKK
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return err
	}
	return nil
}

func (s *Submissions) finish(ctx context.Context, sub model.Submission, change workflow.Change) Result {
	tags := workflow.Invalidations(change)
	s.dispatcher.Dispatch(ctx, tags)
	return Result{Submission: sub, Invalidated: tags}
}

func owner(sub model.Submission) string {
	if sub.UserID == nil {
		return ""
	}
	return *sub.UserID
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
