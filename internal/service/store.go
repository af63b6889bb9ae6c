package service

import (
	"context"
	"time"

	"komunitas/pendataan/internal/model"
)

// SubmissionStore is the persistence contract for intake records. Both the
// Postgres and the sqlite stores satisfy it.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, id string) (model.Submission, error)
	GetSubmissionByUser(ctx context.Context, userID string) (model.Submission, error)
	FindSubmissionByNIK(ctx context.Context, nik string) (model.Submission, error)
	FindSubmissionByKK(ctx context.Context, kk string) (model.Submission, error)
	CreateSubmission(ctx context.Context, sub model.Submission) error
	UpdateSubmission(ctx context.Context, sub model.Submission, allowed []model.Status) (model.Submission, error)
	TransitionSubmission(ctx context.Context, t model.Transition) (model.Submission, error)
	DeleteSubmission(ctx context.Context, id string) (model.Submission, error)
	LinkSubmission(ctx context.Context, id, userID string, at time.Time) (model.Submission, error)
	SubmissionHistory(ctx context.Context, id string) ([]model.StatusChange, error)
	ListSubmissions(ctx context.Context, filter model.SubmissionFilter) (model.Page[model.Submission], error)
	Statistics(ctx context.Context) (model.Statistics, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post model.Post) error
	UpdatePost(ctx context.Context, post model.Post) (model.Post, error)
	DeletePost(ctx context.Context, id string) (model.Post, error)
	GetPost(ctx context.Context, id string) (model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (model.Post, error)
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	ListPosts(ctx context.Context, filter model.PostFilter) (model.Page[model.Post], error)
}

type AccountStore interface {
	CreateAccount(ctx context.Context, account model.Account) error
	GetAccount(ctx context.Context, id string) (model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (model.Account, error)
}

type Store interface {
	SubmissionStore
	PostStore
	AccountStore
	Ping(ctx context.Context) error
}
