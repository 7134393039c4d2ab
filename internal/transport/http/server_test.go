package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"crowdfund-api/internal/bootstrap"
	"crowdfund-api/internal/config"
	"crowdfund-api/internal/testutil"
	"crowdfund-api/internal/transport/http/response"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T, withRedis bool, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.App.GinMode = gin.TestMode
	cfg.Auth.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := test.NewNullLogger()

	app := &bootstrap.App{
		Config: cfg,
		Logger: logger,
		MySQL:  testutil.NewDB(t),
	}
	if withRedis {
		srv := miniredis.RunT(t)
		app.Redis = redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = app.Redis.Close() })
	}
	return &testServer{t: t, router: NewRouter(app)}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func (s *testServer) register(username, phone string) (uint, string) {
	s.t.Helper()

	status, env := s.do(http.MethodPost, "/register/", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"phone":    phone,
		"password": "password123",
	})
	if status != http.StatusCreated {
		s.t.Fatalf("register %s: %d %+v", username, status, env)
	}
	var data struct {
		Access string `json:"access"`
		User   struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decode(s.t, env, &data)
	return data.User.ID, data.Access
}

func (s *testServer) createCampaign(token, title string) uint {
	s.t.Helper()

	status, env := s.do(http.MethodPost, "/projects/", token, campaignBody(title))
	if status != http.StatusCreated {
		s.t.Fatalf("create campaign: %d %+v", status, env)
	}
	var data struct {
		ID uint `json:"id"`
	}
	decode(s.t, env, &data)
	return data.ID
}

func campaignBody(title string) gin.H {
	return gin.H{
		"title":         title,
		"description":   "Drinking water for the village",
		"target_amount": "1000",
		"start_date":    "2024-01-01",
		"end_date":      "2024-06-01",
	}
}

func decode(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestCreateCampaignGates(t *testing.T) {
	s := newTestServer(t, false, nil)

	status, env := s.do(http.MethodPost, "/projects/", "", campaignBody("Wells"))
	if status != http.StatusBadRequest || env.Code != response.CodeNotAuthenticated || env.Message != "you must be logged in" {
		t.Fatalf("anonymous create = %d %+v", status, env)
	}

	aliceID, aliceToken := s.register("alice", "01012345678")
	status, env = s.do(http.MethodPost, "/projects/", aliceToken, campaignBody("Wells"))
	if status != http.StatusCreated {
		t.Fatalf("create = %d %+v", status, env)
	}
	var created struct {
		ID           uint   `json:"id"`
		Owner        uint   `json:"owner"`
		TargetAmount string `json:"target_amount"`
		StartDate    string `json:"start_date"`
	}
	decode(t, env, &created)
	if created.Owner != aliceID || created.TargetAmount != "1000.00" || created.StartDate != "2024-01-01" {
		t.Fatalf("created = %+v", created)
	}

	// owner in the payload is ignored
	body := campaignBody("Schools")
	body["owner"] = aliceID + 40
	status, env = s.do(http.MethodPost, "/projects/", aliceToken, body)
	decode(t, env, &created)
	if status != http.StatusCreated || created.Owner != aliceID {
		t.Fatalf("owner override = %d %+v", status, created)
	}

	status, env = s.do(http.MethodDelete, "/auth/me/", aliceToken, nil)
	if status != http.StatusOK {
		t.Fatalf("delete account = %d %+v", status, env)
	}
	status, env = s.do(http.MethodPost, "/projects/", aliceToken, campaignBody("Ghost"))
	if status != http.StatusBadRequest || env.Code != response.CodeAccountGone || env.Message != "user account no longer exists" {
		t.Fatalf("stale token create = %d %+v", status, env)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	s := newTestServer(t, false, nil)
	_, token := s.register("alice", "01012345678")

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing title", gin.H{"description": "d", "target_amount": "1", "end_date": "2024-06-01"}},
		{"missing end date", gin.H{"title": "t", "description": "d", "target_amount": "1"}},
		{"too many places", gin.H{"title": "t", "description": "d", "target_amount": "1.234", "end_date": "2024-06-01"}},
		{"bad date", gin.H{"title": "t", "description": "d", "target_amount": "1", "end_date": "June 1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(http.MethodPost, "/projects/", token, tc.body)
			if status != http.StatusBadRequest || env.Code != response.CodeBadRequest {
				t.Fatalf("status = %d %+v", status, env)
			}
		})
	}

	// start_date falls back to today
	status, env := s.do(http.MethodPost, "/projects/", token, gin.H{
		"title": "t", "description": "d", "target_amount": 5, "end_date": "2030-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("create without start_date = %d %+v", status, env)
	}
}

func TestCampaignOwnership(t *testing.T) {
	s := newTestServer(t, false, nil)
	_, aliceToken := s.register("alice", "01012345678")
	_, bobToken := s.register("bob", "01112345678")
	id := s.createCampaign(aliceToken, "Wells")
	path := fmt.Sprintf("/projects/%d/", id)

	for _, token := range []string{"", bobToken, aliceToken} {
		if status, env := s.do(http.MethodGet, path, token, nil); status != http.StatusOK {
			t.Fatalf("GET with %q = %d %+v", token, status, env)
		}
	}
	if status, _ := s.do(http.MethodGet, "/projects/", "", nil); status != http.StatusOK {
		t.Fatalf("anonymous list = %d", status)
	}

	patch := gin.H{"title": "Clean wells"}
	if status, env := s.do(http.MethodPatch, path, "", patch); status != http.StatusUnauthorized || env.Code != response.CodeUnauthorized {
		t.Fatalf("anonymous PATCH = %d %+v", status, env)
	}
	if status, env := s.do(http.MethodPatch, path, bobToken, patch); status != http.StatusForbidden || env.Code != response.CodeForbidden {
		t.Fatalf("non-owner PATCH = %d %+v", status, env)
	}
	if status, env := s.do(http.MethodDelete, path, bobToken, nil); status != http.StatusForbidden {
		t.Fatalf("non-owner DELETE = %d %+v", status, env)
	}

	status, env := s.do(http.MethodPatch, path, aliceToken, patch)
	if status != http.StatusOK {
		t.Fatalf("owner PATCH = %d %+v", status, env)
	}
	var updated struct {
		Title        string `json:"title"`
		TargetAmount string `json:"target_amount"`
	}
	decode(t, env, &updated)
	if updated.Title != "Clean wells" || updated.TargetAmount != "1000.00" {
		t.Fatalf("patched = %+v", updated)
	}

	if status, env := s.do(http.MethodPut, path, aliceToken, gin.H{"title": "only title"}); status != http.StatusBadRequest {
		t.Fatalf("partial PUT = %d %+v", status, env)
	}
	if status, env := s.do(http.MethodPut, path, aliceToken, campaignBody("Rebuilt")); status != http.StatusOK {
		t.Fatalf("owner PUT = %d %+v", status, env)
	}

	if status, env := s.do(http.MethodDelete, path, aliceToken, nil); status != http.StatusOK {
		t.Fatalf("owner DELETE = %d %+v", status, env)
	}
	if status, env := s.do(http.MethodGet, path, "", nil); status != http.StatusNotFound || env.Code != response.CodeCampaignNotFound {
		t.Fatalf("GET deleted = %d %+v", status, env)
	}
	if status, _ := s.do(http.MethodDelete, "/projects/9999/", aliceToken, nil); status != http.StatusNotFound {
		t.Fatalf("DELETE missing = %d", status)
	}
}

func TestListMine(t *testing.T) {
	s := newTestServer(t, false, nil)
	_, aliceToken := s.register("alice", "01012345678")
	_, bobToken := s.register("bob", "01112345678")
	s.createCampaign(aliceToken, "A1")
	s.createCampaign(aliceToken, "A2")
	s.createCampaign(bobToken, "B1")

	status, env := s.do(http.MethodGet, "/projects/mine/", aliceToken, nil)
	var mine []struct {
		Title string `json:"title"`
	}
	decode(t, env, &mine)
	if status != http.StatusOK || len(mine) != 2 {
		t.Fatalf("mine = %d %+v", status, mine)
	}

	if status, _ := s.do(http.MethodGet, "/projects/mine/", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous mine = %d", status)
	}
}

func TestInvalidTokenOnOpenRoute(t *testing.T) {
	s := newTestServer(t, false, nil)
	status, env := s.do(http.MethodGet, "/projects/", "not-a-token", nil)
	if status != http.StatusUnauthorized || env.Code != response.CodeUnauthorized {
		t.Fatalf("status = %d %+v", status, env)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, false, nil)
	s.register("alice", "01012345678")

	cases := []struct {
		name string
		body gin.H
		code int
	}{
		{"bad phone", gin.H{"username": "bob", "email": "bob@example.com", "phone": "0201234567", "password": "password123"}, response.CodeBadRequest},
		{"duplicate username", gin.H{"username": "alice", "email": "new@example.com", "phone": "01100000000", "password": "password123"}, response.CodeUsernameExists},
		{"duplicate email", gin.H{"username": "carol", "email": "alice@example.com", "phone": "01100000000", "password": "password123"}, response.CodeEmailExists},
		{"duplicate phone", gin.H{"username": "carol", "email": "carol@example.com", "phone": "01012345678", "password": "password123"}, response.CodePhoneExists},
		{"short password", gin.H{"username": "carol", "email": "carol@example.com", "phone": "01100000000", "password": "short"}, response.CodeBadRequest},
		{"bad email", gin.H{"username": "carol", "email": "carol", "phone": "01100000000", "password": "password123"}, response.CodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(http.MethodPost, "/register/", "", tc.body)
			if status != http.StatusBadRequest || env.Code != tc.code {
				t.Fatalf("status = %d %+v", status, env)
			}
		})
	}
}

func TestLoginRefreshAndMe(t *testing.T) {
	s := newTestServer(t, false, nil)
	id, _ := s.register("alice", "01012345678")

	status, env := s.do(http.MethodPost, "/auth/jwt/create/", "", gin.H{"username": "alice", "password": "wrong-password"})
	if status != http.StatusUnauthorized || env.Code != response.CodeInvalidCredentials {
		t.Fatalf("bad login = %d %+v", status, env)
	}

	status, env = s.do(http.MethodPost, "/auth/jwt/create/", "", gin.H{"username": "alice", "password": "password123"})
	if status != http.StatusOK {
		t.Fatalf("login = %d %+v", status, env)
	}
	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	decode(t, env, &tokens)

	// a refresh token is not an access token
	if status, _ := s.do(http.MethodGet, "/auth/me/", tokens.Refresh, nil); status != http.StatusUnauthorized {
		t.Fatalf("me with refresh token = %d", status)
	}

	status, env = s.do(http.MethodPost, "/auth/jwt/refresh/", "", gin.H{"refresh": tokens.Refresh})
	if status != http.StatusOK {
		t.Fatalf("refresh = %d %+v", status, env)
	}
	var refreshed struct {
		Access string `json:"access"`
	}
	decode(t, env, &refreshed)

	status, env = s.do(http.MethodGet, "/auth/me/", refreshed.Access, nil)
	var me struct {
		ID    uint   `json:"id"`
		Phone string `json:"phone"`
	}
	decode(t, env, &me)
	if status != http.StatusOK || me.ID != id || me.Phone != "01012345678" {
		t.Fatalf("me = %d %+v", status, me)
	}

	if status, _ := s.do(http.MethodPost, "/auth/jwt/refresh/", "", gin.H{"refresh": tokens.Access}); status != http.StatusUnauthorized {
		t.Fatalf("refresh with access token = %d", status)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	s := newTestServer(t, false, nil)
	_, aliceToken := s.register("alice", "01012345678")
	id := s.createCampaign(aliceToken, "Wells")

	if status, _ := s.do(http.MethodDelete, "/auth/me/", aliceToken, nil); status != http.StatusOK {
		t.Fatalf("delete account = %d", status)
	}
	if status, _ := s.do(http.MethodGet, fmt.Sprintf("/projects/%d/", id), "", nil); status != http.StatusNotFound {
		t.Fatalf("campaign survived owner deletion: %d", status)
	}
	if status, _ := s.do(http.MethodGet, "/auth/me/", aliceToken, nil); status != http.StatusUnauthorized {
		t.Fatalf("me after delete = %d", status)
	}
}

func TestDonationEndpoints(t *testing.T) {
	s := newTestServer(t, false, nil)
	_, aliceToken := s.register("alice", "01012345678")
	id := s.createCampaign(aliceToken, "Wells")

	if status, _ := s.do(http.MethodPost, "/donations/", "", gin.H{"campaign": id, "amount": "5"}); status != http.StatusUnauthorized {
		t.Fatalf("anonymous pledge = %d", status)
	}
	if status, env := s.do(http.MethodPost, "/donations/", aliceToken, gin.H{"campaign": id, "amount": "0"}); status != http.StatusBadRequest {
		t.Fatalf("zero pledge = %d %+v", status, env)
	}
	if status, env := s.do(http.MethodPost, "/donations/", aliceToken, gin.H{"campaign": id + 10, "amount": "5"}); status != http.StatusNotFound {
		t.Fatalf("pledge to missing campaign = %d %+v", status, env)
	}
	// no broker connected
	if status, env := s.do(http.MethodPost, "/donations/", aliceToken, gin.H{"campaign": id, "amount": "5"}); status != http.StatusServiceUnavailable {
		t.Fatalf("pledge without broker = %d %+v", status, env)
	}

	status, env := s.do(http.MethodGet, fmt.Sprintf("/projects/%d/donations/", id), "", nil)
	var list struct {
		Total     string            `json:"total"`
		Donations []json.RawMessage `json:"donations"`
	}
	decode(t, env, &list)
	if status != http.StatusOK || list.Total != "0.00" || len(list.Donations) != 0 {
		t.Fatalf("donations = %d %+v", status, list)
	}
}

func TestCampaignCacheInvalidatedOnUpdate(t *testing.T) {
	s := newTestServer(t, true, nil)
	_, token := s.register("alice", "01012345678")
	id := s.createCampaign(token, "Wells")
	path := fmt.Sprintf("/projects/%d/", id)

	for i := 0; i < 2; i++ {
		if status, _ := s.do(http.MethodGet, path, "", nil); status != http.StatusOK {
			t.Fatalf("GET = %d", status)
		}
	}
	if status, _ := s.do(http.MethodPatch, path, token, gin.H{"title": "Fresh"}); status != http.StatusOK {
		t.Fatalf("PATCH = %d", status)
	}

	_, env := s.do(http.MethodGet, path, "", nil)
	var got struct {
		Title string `json:"title"`
	}
	decode(t, env, &got)
	if got.Title != "Fresh" {
		t.Fatalf("stale cached title %q", got.Title)
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, true, func(cfg *config.Config) {
		cfg.RateLimit.AuthBurst = 2
		cfg.RateLimit.AuthRPS = 0.01
	})

	body := gin.H{"username": "nobody", "password": "password123"}
	for i := 0; i < 2; i++ {
		if status, _ := s.do(http.MethodPost, "/auth/jwt/create/", "", body); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d", i, status)
		}
	}
	status, env := s.do(http.MethodPost, "/auth/jwt/create/", "", body)
	if status != http.StatusTooManyRequests || env.Code != response.CodeTooManyRequests {
		t.Fatalf("third attempt = %d %+v", status, env)
	}

	// campaign reads are not limited
	if status, _ := s.do(http.MethodGet, "/projects/", "", nil); status != http.StatusOK {
		t.Fatalf("list = %d", status)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("propagated id = %q", got)
	}

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/", nil))
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Fatalf("generated id = %q", got)
	}
}

func TestHealthReportsMissingBroker(t *testing.T) {
	s := newTestServer(t, true, nil)

	status, env := s.do(http.MethodGet, "/healthz", "", nil)
	if status != http.StatusServiceUnavailable || env.Code != response.CodeServiceUnavailable {
		t.Fatalf("healthz = %d %+v", status, env)
	}
	var report struct {
		DonationQueue string `json:"donation_queue"`
		Dependencies  map[string]struct {
			OK bool `json:"ok"`
		} `json:"dependencies"`
	}
	decode(t, env, &report)

	want := map[string]bool{"mysql": true, "redis": true, "rabbitmq": false, "donation_worker": false}
	for name, ok := range want {
		got, present := report.Dependencies[name]
		if !present || got.OK != ok {
			t.Errorf("%s = %+v (present %v), want ok=%v", name, got, present, ok)
		}
	}
	if report.DonationQueue != "donation.persist" {
		t.Errorf("queue = %q", report.DonationQueue)
	}
}

func TestCampaignCacheEvictedOnAccountDelete(t *testing.T) {
	s := newTestServer(t, true, nil)
	_, token := s.register("alice", "01012345678")
	id := s.createCampaign(token, "Wells")
	path := fmt.Sprintf("/projects/%d/", id)

	if status, _ := s.do(http.MethodGet, path, "", nil); status != http.StatusOK {
		t.Fatalf("warm GET = %d", status)
	}
	if status, _ := s.do(http.MethodDelete, "/auth/me/", token, nil); status != http.StatusOK {
		t.Fatalf("delete account = %d", status)
	}
	if status, env := s.do(http.MethodGet, path, "", nil); status != http.StatusNotFound || env.Code != response.CodeCampaignNotFound {
		t.Fatalf("GET cascaded campaign = %d %+v", status, env)
	}
}

func TestAnonymousCreateValidatesPayloadFirst(t *testing.T) {
	s := newTestServer(t, false, nil)

	status, env := s.do(http.MethodPost, "/projects/", "", gin.H{"title": "only a title"})
	if status != http.StatusBadRequest || env.Code != response.CodeBadRequest {
		t.Fatalf("anonymous incomplete create = %d %+v", status, env)
	}
}
