package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"komunitas/pendataan/internal/auth"
	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/config"
	"komunitas/pendataan/internal/db/sqlite"
	"komunitas/pendataan/internal/metrics"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/service"
)

const (
	adminID = "22222222-2222-2222-2222-222222222221"
	userID  = "22222222-2222-2222-2222-222222222222"
)

type testApp struct {
	*httptest.Server
	cfg      config.Config
	store       *sqlite.Store
	accounts    *service.Accounts
	submissions *service.Submissions
	server      *Server
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test-issuer"

	store, err := sqlite.New("", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mem, err := cache.NewMemory(0)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(mem.Close)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	dispatcher := cache.NewDispatcher(mem, nil, m)
	accounts := service.NewAccounts(store, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, nil)
	submissions := service.NewSubmissions(store, store, dispatcher, m, nil)
	server := NewServer(cfg, Deps{
		Submissions: submissions,
		Posts:       service.NewPosts(store, dispatcher, nil),
		Accounts:    accounts,
		Cache:       mem,
		Metrics:     m,
		Gatherer:    registry,
		Ready:       store.Ping,
	})
	app := httptest.NewServer(server.Router())
	t.Cleanup(app.Close)
	return testApp{Server: app, cfg: cfg, store: store, accounts: accounts, submissions: submissions, server: server}
}

func mustToken(t *testing.T, cfg config.Config, userID string, role model.Role) string {
	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, 10*time.Minute, auth.Claims{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

func intakeData(nik string) map[string]any {
	return map[string]any{
		"namaDepan":          "Sari",
		"nik":                nik,
		"nomorKK":            "6543210987654321",
		"kepemilikanEKTP":    "Memiliki",
		"alamatLengkap":      "Jl. Melati 1",
		"kota":               "Bandung",
		"nomorTelepon":       "081234567890",
		"statusPerkawinan":   "Belum Kawin",
		"pendidikanTerakhir": "SMA/SMK",
		"jenisDiskriminasi":  []string{"Fisik", "Verbal"},
	}
}

type mutationBody struct {
	Submission  model.Submission `json:"submission"`
	Invalidated []string         `json:"invalidated"`
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp := doReq(t, http.MethodGet, app.URL+"/health", "", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodGet, app.URL+"/metrics", "", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := newTestApp(t)
	userToken := mustToken(t, app.cfg, userID, model.RoleUser)

	resp := doReq(t, http.MethodGet, app.URL+"/admin/submissions", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = doReq(t, http.MethodGet, app.URL+"/admin/submissions", "not-a-token", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = doReq(t, http.MethodGet, app.URL+"/admin/submissions", userToken, nil)
	expectStatus(t, resp, http.StatusForbidden)
}

func TestPublicSubmissionFlow(t *testing.T) {
	app := newTestApp(t)
	adminToken := mustToken(t, app.cfg, adminID, model.RoleAdmin)

	resp := doReq(t, http.MethodPost, app.URL+"/submissions", "", map[string]any{"data": intakeData("1234567890123456")})
	expectStatus(t, resp, http.StatusCreated)
	header := resp.Header.Get("X-Cache-Invalidated")
	if !strings.Contains(header, string(cache.SubmissionList)) || !strings.Contains(header, string(cache.Statistics)) {
		t.Fatalf("unexpected invalidation header %q", header)
	}
	var created mutationBody
	decodeBody(t, resp, &created)
	if created.Submission.ID == "" || created.Submission.Status != model.StatusSubmitted {
		t.Fatalf("unexpected submission: %+v", created.Submission)
	}
	if len(created.Invalidated) == 0 {
		t.Fatalf("expected invalidated partitions in body")
	}

	// Same NIK again.
	resp = doReq(t, http.MethodPost, app.URL+"/submissions", "", map[string]any{"data": intakeData("1234567890123456")})
	expectStatus(t, resp, http.StatusConflict)
	var conflict map[string]string
	decodeBody(t, resp, &conflict)
	if conflict["error"] != "duplicate_nik" {
		t.Fatalf("expected duplicate_nik, got %v", conflict)
	}

	// Multi-select order survives the round trip.
	resp = doReq(t, http.MethodGet, app.URL+"/admin/submissions/"+created.Submission.ID, adminToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var fetched model.Submission
	decodeBody(t, resp, &fetched)
	if got := strings.Join(fetched.Data.JenisDiskriminasi, ","); got != "Fisik,Verbal" {
		t.Fatalf("expected Fisik,Verbal, got %s", got)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/admin/submissions/"+created.Submission.ID+"/status", adminToken, map[string]any{"status": "rejected"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = doReq(t, http.MethodPost, app.URL+"/admin/submissions/"+created.Submission.ID+"/status", adminToken, map[string]any{"status": "verified"})
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodPost, app.URL+"/admin/submissions/"+created.Submission.ID+"/status", adminToken, map[string]any{"status": "verified"})
	expectStatus(t, resp, http.StatusConflict)
	decodeBody(t, resp, &conflict)
	if conflict["error"] != "invalid_current_state" {
		t.Fatalf("expected invalid_current_state, got %v", conflict)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/admin/submissions/"+created.Submission.ID+"/history", adminToken, nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestValidationErrorsAreOrdered(t *testing.T) {
	app := newTestApp(t)

	data := intakeData("12345")
	delete(data, "kota")
	data["nomorTelepon"] = "123"
	resp := doReq(t, http.MethodPost, app.URL+"/submissions", "", map[string]any{"data": data})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	}
	decodeBody(t, resp, &body)
	if body.Error != "validation_failed" {
		t.Fatalf("expected validation_failed, got %s", body.Error)
	}
	var fields []string
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	if got := strings.Join(fields, ","); got != "nik,kota,nomorTelepon" {
		t.Fatalf("expected nik,kota,nomorTelepon, got %s", got)
	}
}

func TestStatisticsCacheInvalidation(t *testing.T) {
	app := newTestApp(t)
	adminToken := mustToken(t, app.cfg, adminID, model.RoleAdmin)

	resp := doReq(t, http.MethodGet, app.URL+"/statistics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("expected first read to miss")
	}
	resp = doReq(t, http.MethodGet, app.URL+"/statistics", "", nil)
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Fatalf("expected second read to hit")
	}

	resp = doReq(t, http.MethodPost, app.URL+"/admin/submissions", adminToken, map[string]any{"data": intakeData("1234567890123456")})
	expectStatus(t, resp, http.StatusCreated)

	resp = doReq(t, http.MethodGet, app.URL+"/statistics", "", nil)
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("expected read after create to miss")
	}
	var stats model.Statistics
	decodeBody(t, resp, &stats)
	if stats.Total != 1 {
		t.Fatalf("expected total 1, got %d", stats.Total)
	}
}

func TestCachedReadRacingAWriteIsNotKept(t *testing.T) {
	app := newTestApp(t)
	admin := &model.Actor{ID: adminID, Role: model.RoleAdmin}
	tags := []cache.Tag{cache.Statistics}

	// the aggregate is read, then a create commits and invalidates before the
	// fill is written
	racing := func(ctx context.Context) (any, []cache.Tag, error) {
		stats, err := app.submissions.Statistics(ctx)
		if err != nil {
			return nil, nil, err
		}
		if _, err := app.submissions.Create(ctx, admin, service.SubmissionInput{Payload: intakeData("1234567890123456")}); err != nil {
			return nil, nil, err
		}
		return stats, nil, nil
	}
	req := httptest.NewRequest(http.MethodGet, "/statistics", nil)
	rec := httptest.NewRecorder()
	app.server.serveCached(rec, req, cache.StatisticsKey, tags, racing)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected miss, got %d %q", rec.Code, rec.Header().Get("X-Cache"))
	}

	resp := doReq(t, http.MethodGet, app.URL+"/statistics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("stale fill was kept in the cache")
	}
	var stats model.Statistics
	decodeBody(t, resp, &stats)
	if stats.Total != 1 {
		t.Fatalf("expected total 1, got %d", stats.Total)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/statistics", "", nil)
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Fatalf("expected fresh fill to be cached")
	}
}

func TestLinkUnknownAccount(t *testing.T) {
	app := newTestApp(t)
	adminToken := mustToken(t, app.cfg, adminID, model.RoleAdmin)
	resp := doReq(t, http.MethodPost, app.URL+"/admin/submissions", adminToken, map[string]any{"data": intakeData("1234567890123456")})
	expectStatus(t, resp, http.StatusCreated)
	var created struct {
		Submission struct {
			ID string `json:"id"`
		} `json:"submission"`
	}
	decodeBody(t, resp, &created)

	resp = doReq(t, http.MethodPost, app.URL+"/admin/submissions/"+created.Submission.ID+"/link", adminToken, map[string]any{"userId": "no-such-account"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	var body struct {
		Error  string `json:"error"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	decodeBody(t, resp, &body)
	if body.Error != "validation_failed" || len(body.Fields) != 1 || body.Fields[0].Field != "userId" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestOwnSubmissionFlow(t *testing.T) {
	app := newTestApp(t)
	account, err := app.accounts.Register(context.Background(), "warga@example.org", "rahasia123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := mustToken(t, app.cfg, account.ID, model.RoleUser)

	resp := doReq(t, http.MethodPut, app.URL+"/me/submission", token, map[string]any{
		"data": map[string]any{"namaDepan": "Sari", "nik": "1234567890123456"},
	})
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodGet, app.URL+"/me/form-status", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var status service.FormStatus
	decodeBody(t, resp, &status)
	if !status.HasSubmission || status.Status == nil || *status.Status != model.StatusDraft {
		t.Fatalf("expected draft form status, got %+v", status)
	}

	resp = doReq(t, http.MethodPut, app.URL+"/me/submission", token, map[string]any{"data": intakeData("1234567890123456")})
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodPost, app.URL+"/me/submission/finalize", token, nil)
	expectStatus(t, resp, http.StatusOK)
	var finalized mutationBody
	decodeBody(t, resp, &finalized)
	if finalized.Submission.Status != model.StatusSubmitted {
		t.Fatalf("expected submitted, got %s", finalized.Submission.Status)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/me/form-status", token, nil)
	decodeBody(t, resp, &status)
	if status.Status == nil || *status.Status != model.StatusSubmitted {
		t.Fatalf("expected submitted form status after finalize, got %+v", status)
	}
}

func TestLoginAndMe(t *testing.T) {
	app := newTestApp(t)

	resp := doReq(t, http.MethodPost, app.URL+"/auth/register", "", map[string]string{"email": "warga@example.org", "password": "rahasia123"})
	expectStatus(t, resp, http.StatusCreated)

	resp = doReq(t, http.MethodPost, app.URL+"/auth/login", "", map[string]string{"email": "warga@example.org", "password": "salah-sandi"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = doReq(t, http.MethodPost, app.URL+"/auth/login", "", map[string]string{"email": "warga@example.org", "password": "rahasia123"})
	expectStatus(t, resp, http.StatusOK)
	var session service.Session
	decodeBody(t, resp, &session)

	resp = doReq(t, http.MethodGet, app.URL+"/auth/me", session.AccessToken, nil)
	expectStatus(t, resp, http.StatusOK)
	var account model.Account
	decodeBody(t, resp, &account)
	if account.Email != "warga@example.org" || account.Role != model.RoleUser {
		t.Fatalf("unexpected account %+v", account)
	}
}

func TestPostsFlow(t *testing.T) {
	app := newTestApp(t)
	adminToken := mustToken(t, app.cfg, adminID, model.RoleAdmin)

	var slugs []string
	var firstID string
	for i := 0; i < 2; i++ {
		resp := doReq(t, http.MethodPost, app.URL+"/admin/posts", adminToken, map[string]any{"title": "Kegiatan Sosial", "body": "Bakti sosial"})
		expectStatus(t, resp, http.StatusCreated)
		var created service.PostResult
		decodeBody(t, resp, &created)
		slugs = append(slugs, created.Post.Slug)
		if firstID == "" {
			firstID = created.Post.ID
		}
	}
	if strings.Join(slugs, ",") != "kegiatan-sosial,kegiatan-sosial-1" {
		t.Fatalf("unexpected slugs %v", slugs)
	}

	resp := doReq(t, http.MethodGet, app.URL+"/posts/kegiatan-sosial", "", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = doReq(t, http.MethodPost, app.URL+"/admin/posts/"+firstID+"/publish", adminToken, map[string]bool{"published": true})
	expectStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("X-Cache-Invalidated"); got != "posts:list,post:"+firstID {
		t.Fatalf("unexpected invalidation header %q", got)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/posts/kegiatan-sosial", "", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = doReq(t, http.MethodGet, app.URL+"/posts", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var page model.Page[model.Post]
	decodeBody(t, resp, &page)
	if page.Total != 1 {
		t.Fatalf("expected one published post, got %d", page.Total)
	}
}

func TestFormSchema(t *testing.T) {
	app := newTestApp(t)
	resp := doReq(t, http.MethodGet, app.URL+"/form/schema", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var body schemaResponse
	decodeBody(t, resp, &body)
	if len(body.Sections) != 11 {
		t.Fatalf("expected 11 sections, got %d", len(body.Sections))
	}
	if len(body.Required["public"]) != 9 {
		t.Fatalf("expected 9 public required fields, got %d", len(body.Required["public"]))
	}
}
