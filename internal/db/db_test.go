package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"komunitas/pendataan/internal/model"
)

// newTestStore connects to the database named by PENDATAAN_TEST_DB and
// empties every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("PENDATAAN_TEST_DB")
	if url == "" {
		t.Skip("set PENDATAAN_TEST_DB to run")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	store := NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE submission_status_history, submissions, posts, accounts"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func seed(t *testing.T, store *Store, nik string, status model.Status) model.Submission {
	t.Helper()
	income := decimal.RequireFromString("2500000.50")
	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := model.Submission{
		ID:     uuid.NewString(),
		Status: status,
		Data: model.Data{
			NamaDepan:          "Sari",
			NIK:                nik,
			KepemilikanEKTP:    "Memiliki",
			AlamatLengkap:      "Jl. Melati 1",
			Kota:               "Bandung",
			NomorTelepon:       "081234567890",
			StatusPerkawinan:   "Belum Kawin",
			PendidikanTerakhir: "SMA",
			PenghasilanBulanan: &income,
			PelatihanDiikuti:   model.StringList{"Menjahit", "Tata Rias"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateSubmission(context.Background(), sub); err != nil {
		t.Fatalf("create: %v", err)
	}
	return sub
}

func TestPostgresSubmissionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	sub := seed(t, store, "3273010101010001", model.StatusSubmitted)

	got, err := store.GetSubmission(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Data.PenghasilanBulanan == nil || !got.Data.PenghasilanBulanan.Equal(*sub.Data.PenghasilanBulanan) {
		t.Fatalf("income mismatch: %v", got.Data.PenghasilanBulanan)
	}
	if len(got.Data.PelatihanDiikuti) != 2 || got.Data.PelatihanDiikuti[1] != "Tata Rias" {
		t.Fatalf("list order lost: %v", got.Data.PelatihanDiikuti)
	}
	if got.Data.JenisDisabilitas != nil {
		t.Fatalf("absent list must stay nil, got %v", got.Data.JenisDisabilitas)
	}

	dup := sub
	dup.ID = uuid.NewString()
	if err := store.CreateSubmission(context.Background(), dup); !errors.Is(err, model.ErrDuplicateNIK) {
		t.Fatalf("expected duplicate nik, got %v", err)
	}
}

func TestPostgresTransitionConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sub := seed(t, store, "3273010101010002", model.StatusSubmitted)

	transition := model.Transition{
		SubmissionID: sub.ID,
		From:         model.StatusSubmitted,
		To:           model.StatusVerified,
		ActorID:      "admin-1",
		SetVerifier:  true,
		HistoryID:    uuid.NewString(),
		At:           time.Now().UTC(),
	}
	verified, err := store.TransitionSubmission(ctx, transition)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != model.StatusVerified || verified.VerifiedBy == nil {
		t.Fatalf("unexpected row: %+v", verified)
	}

	transition.HistoryID = uuid.NewString()
	if _, err := store.TransitionSubmission(ctx, transition); !errors.Is(err, model.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}

	history, err := store.SubmissionHistory(ctx, sub.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history row, got %d", len(history))
	}
}

func TestPostgresLinkOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sub := seed(t, store, "3273010101010003", model.StatusSubmitted)

	account := model.Account{ID: uuid.NewString(), Email: "sari@example.org", PasswordHash: "x", Role: model.RoleUser, CreatedAt: time.Now().UTC()}
	if err := store.CreateAccount(ctx, account); err != nil {
		t.Fatalf("account: %v", err)
	}
	linked, err := store.LinkSubmission(ctx, sub.ID, account.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if linked.UserID == nil || *linked.UserID != account.ID {
		t.Fatalf("link not stored: %+v", linked.UserID)
	}
	if _, err := store.LinkSubmission(ctx, sub.ID, account.ID, time.Now().UTC()); !errors.Is(err, model.ErrAccountLinked) {
		t.Fatalf("expected already linked, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{pgx.ErrNoRows, model.ErrNotFound},
		{&pgconn.PgError{Code: "23505", ConstraintName: "idx_submissions_nik"}, model.ErrDuplicateNIK},
		{&pgconn.PgError{Code: "23505", ConstraintName: "idx_posts_slug"}, model.ErrDuplicateSlug},
		{&pgconn.PgError{Code: "23503", ConstraintName: "submissions_user_id_fkey"}, model.ErrNotFound},
	}
	for _, tc := range cases {
		if got := mapError(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("mapError(%v) expected %v got %v", tc.in, tc.want, got)
		}
	}
	other := &pgconn.PgError{Code: "23505", ConstraintName: "unknown"}
	if got := mapError(other); got != other {
		t.Fatalf("unmapped error should pass through, got %v", got)
	}
}

func TestPostgresIncomeKeepsPrecision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cases := map[string]string{
		"3273010101010004": "2500000.125",
		"3273010101010005": "123456789012345678.5",
		"3273010101010006": "0.0001",
	}
	for nik, raw := range cases {
		sub := seed(t, store, nik, model.StatusSubmitted)
		income := decimal.RequireFromString(raw)
		sub.Data.PenghasilanBulanan = &income
		if _, err := store.UpdateSubmission(ctx, sub, nil); err != nil {
			t.Fatalf("update %s: %v", raw, err)
		}
		got, err := store.GetSubmission(ctx, sub.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Data.PenghasilanBulanan == nil || !got.Data.PenghasilanBulanan.Equal(income) {
			t.Fatalf("income %s stored as %v", raw, got.Data.PenghasilanBulanan)
		}
	}
}

func TestPostgresLinkUnknownAccount(t *testing.T) {
	store := newTestStore(t)
	sub := seed(t, store, "3273010101010009", model.StatusSubmitted)
	if _, err := store.LinkSubmission(context.Background(), sub.ID, "no-such-account", time.Now().UTC()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
