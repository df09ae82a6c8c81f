package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"book-service/internal/auth"
	"book-service/internal/ratelimit"
	"book-service/internal/repository"
	"book-service/internal/service"
)

type testOpts struct {
	limit     int
	authBurst int
}

func newTestServer(t *testing.T, opts testOpts) *echo.Echo {
	t.Helper()
	if opts.limit == 0 {
		opts.limit = 100
	}
	if opts.authBurst == 0 {
		opts.authBurst = 100
	}
	users := service.NewUserService(
		repository.NewUserRepository(),
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewTokenManager("test-secret", time.Hour),
	)
	return NewServer(Deps{
		Books:             service.NewBookService(repository.NewBookRepository(), nil),
		Users:             users,
		Limiter:           ratelimit.NewWindowStore(opts.limit, time.Minute),
		AllowedOrigins:    []string{"http://allowed.test"},
		AuthRatePerSecond: 0.001,
		AuthBurst:         opts.authBurst,
		Logger:            zerolog.Nop(),
	})
}

func do(t *testing.T, e *echo.Echo, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, rec, &body)
	return body.Detail
}

func registerAndLogin(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": password}
	if rec := do(t, e, http.MethodPost, "/users", creds, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, e, http.MethodPost, "/login", creds, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(t, rec, &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected login response: %s", rec.Body.String())
	}
	return tok.AccessToken
}

func TestScenario_RegisterLoginCreateGetDelete(t *testing.T) {
	e := newTestServer(t, testOpts{})

	rec := do(t, e, http.MethodPost, "/users", map[string]string{"username": "bob", "password": "pw1"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "pw1") || strings.Contains(rec.Body.String(), "$2") {
		t.Fatalf("user response leaks password material: %s", rec.Body.String())
	}

	rec = do(t, e, http.MethodPost, "/login", map[string]string{"username": "bob", "password": "pw1"}, "")
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, rec, &tok)

	rec = do(t, e, http.MethodPost, "/books", map[string]string{"title": "T", "author": "A"}, tok.AccessToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     int    `json:"id"`
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	decode(t, rec, &created)
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}

	rec = do(t, e, http.MethodGet, "/books/1", nil, tok.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("get book: %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	decode(t, rec, &got)
	if got.ID != 1 || got.Title != "T" {
		t.Fatalf("unexpected book: %s", rec.Body.String())
	}

	if rec = do(t, e, http.MethodDelete, "/books/1", nil, tok.AccessToken); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/books/1", nil, tok.AccessToken)
	if rec.Code != http.StatusNotFound || detailOf(t, rec) != "Book not found" {
		t.Fatalf("expected 404 after delete, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestBooks_ListAndUpdate(t *testing.T) {
	e := newTestServer(t, testOpts{})
	tok := registerAndLogin(t, e, "alice", "secret")

	for _, title := range []string{"First", "Second"} {
		if rec := do(t, e, http.MethodPost, "/books", map[string]string{"title": title, "author": "A"}, tok); rec.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := do(t, e, http.MethodPut, "/books/2", map[string]interface{}{
		"title": "Second, revised", "author": "B", "isbn": "978-0-441-17271-9", "publication_date": "1965-08-01", "rating": 5,
	}, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, e, http.MethodGet, "/books", nil, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var list []struct {
		ID     int    `json:"id"`
		Title  string `json:"title"`
		Author string `json:"author"`
		Rating int    `json:"rating"`
	}
	decode(t, rec, &list)
	if len(list) != 2 || list[0].Title != "First" || list[1].ID != 2 || list[1].Title != "Second, revised" || list[1].Rating != 5 {
		t.Fatalf("unexpected list: %s", rec.Body.String())
	}

	if rec = do(t, e, http.MethodPut, "/books/9", map[string]string{"title": "x", "author": "y"}, tok); rec.Code != http.StatusNotFound {
		t.Fatalf("update unknown: %d %s", rec.Code, rec.Body.String())
	}
	if rec = do(t, e, http.MethodDelete, "/books/9", nil, tok); rec.Code != http.StatusNotFound {
		t.Fatalf("delete unknown: %d %s", rec.Code, rec.Body.String())
	}
	if rec = do(t, e, http.MethodGet, "/books/abc", nil, tok); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d %s", rec.Code, rec.Body.String())
	}
}

func TestBooks_ValidationErrors(t *testing.T) {
	e := newTestServer(t, testOpts{})
	tok := registerAndLogin(t, e, "alice", "secret")

	rec := do(t, e, http.MethodPost, "/books", map[string]string{"title": strings.Repeat("t", 101), "author": ""}, tok)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Detail []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	decode(t, rec, &body)
	fields := map[string]bool{}
	for _, d := range body.Detail {
		fields[d.Field] = true
	}
	if !fields["title"] || !fields["author"] {
		t.Fatalf("expected title and author errors, got %s", rec.Body.String())
	}

	rec = do(t, e, http.MethodPost, "/books", map[string]string{"title": strings.Repeat("t", 100), "author": "A"}, tok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("100 char title should be accepted: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || detailOf(t, rec) != "Invalid request payload" {
		t.Fatalf("malformed json: %d %s", rec.Code, rec.Body.String())
	}
}

func TestBooks_RequireAuthentication(t *testing.T) {
	e := newTestServer(t, testOpts{})

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, e, http.MethodGet, "/books", nil, tc.token)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d %s", rec.Code, rec.Body.String())
			}
			if detailOf(t, rec) != "Invalid authentication credentials" {
				t.Fatalf("unexpected detail: %s", rec.Body.String())
			}
		})
	}

	// Signed by someone else
	foreign, _, err := auth.NewTokenManager("other-secret", time.Hour).Issue("bob")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rec := do(t, e, http.MethodGet, "/books", nil, foreign); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: %d", rec.Code)
	}

	// Valid signature but the user was never registered
	ghost, _, _ := auth.NewTokenManager("test-secret", time.Hour).Issue("ghost")
	if rec := do(t, e, http.MethodGet, "/books", nil, ghost); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown subject: %d", rec.Code)
	}
}

func TestLogin_FailuresDoNotRevealUsers(t *testing.T) {
	e := newTestServer(t, testOpts{})
	registerAndLogin(t, e, "bob", "pw1")

	unknown := do(t, e, http.MethodPost, "/login", map[string]string{"username": "invaliduser", "password": "invalidpassword"}, "")
	wrong := do(t, e, http.MethodPost, "/login", map[string]string{"username": "bob", "password": "invalidpassword"}, "")

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("responses differ: %s vs %s", unknown.Body.String(), wrong.Body.String())
	}
	if detailOf(t, unknown) != "Invalid authentication credentials" {
		t.Fatalf("unexpected detail: %s", unknown.Body.String())
	}
}

func TestLogin_FormEncoded(t *testing.T) {
	e := newTestServer(t, testOpts{})
	registerAndLogin(t, e, "bob", "pw1")

	form := url.Values{"username": {"bob"}, "password": {"pw1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "access_token") {
		t.Fatalf("form login: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUsers_DuplicateAndInvalid(t *testing.T) {
	e := newTestServer(t, testOpts{})
	registerAndLogin(t, e, "bob", "pw1")

	rec := do(t, e, http.MethodPost, "/users", map[string]string{"username": "bob", "password": "pw2"}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, e, http.MethodPost, "/users", map[string]string{"username": " ", "password": "pw"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank username: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGate_RateLimitRunsBeforeAuth(t *testing.T) {
	e := newTestServer(t, testOpts{limit: 3})
	tok := registerAndLogin(t, e, "bob", "pw1")

	for i := 1; i <= 3; i++ {
		rec := do(t, e, http.MethodGet, "/books", nil, tok)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d %s", i, rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(3-i) {
			t.Fatalf("request %d: remaining header %q", i, got)
		}
	}

	rec := do(t, e, http.MethodGet, "/books", nil, tok)
	if rec.Code != http.StatusTooManyRequests || detailOf(t, rec) != "Too many requests" {
		t.Fatalf("expected 429, got %d %s", rec.Code, rec.Body.String())
	}
	// Unauthenticated requests are counted and rejected by the limiter first
	if rec = do(t, e, http.MethodGet, "/books", nil, ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 without token, got %d", rec.Code)
	}
}

func TestCredentialRoutesThrottled(t *testing.T) {
	e := newTestServer(t, testOpts{authBurst: 2})
	creds := map[string]string{"username": "nobody", "password": "x"}

	for i := 0; i < 2; i++ {
		if rec := do(t, e, http.MethodPost, "/login", creds, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: %d", i, rec.Code)
		}
	}
	if rec := do(t, e, http.MethodPost, "/login", creds, ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	e := newTestServer(t, testOpts{})
	e.GET("/boom", func(c echo.Context) error {
		panic("database password is hunter2")
	})

	rec := do(t, e, http.MethodGet, "/boom", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if detailOf(t, rec) != genericErrorMessage || strings.Contains(rec.Body.String(), "hunter2") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestHealthAndCORS(t *testing.T) {
	e := newTestServer(t, testOpts{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://allowed.test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://allowed.test" {
		t.Fatalf("CORS origin header: %q", got)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("expected request id header")
	}
}
