package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/shop-api/internal/api/handler"
	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// --- stubs ---

var (
	adminIdentity  = &domain.Identity{UserID: 1, Username: "root", Role: domain.Role{ID: 2, Title: domain.RoleAdmin}, Kind: domain.RoleKindAdmin}
	clientIdentity = &domain.Identity{UserID: 7, Username: "alice", Role: domain.Role{ID: 1, Title: domain.RoleClient}, Kind: domain.RoleKindClient}
)

type stubAuth struct {
	resolveErr error
	lastSignup ports.SignupInput
}

func (s *stubAuth) ResolveIdentity(_ context.Context, token string) (*domain.Identity, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	switch token {
	case "admin-token":
		return adminIdentity, nil
	case "client-token":
		return clientIdentity, nil
	}
	return nil, domain.ErrInvalidToken
}

func (s *stubAuth) Signup(_ context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	s.lastSignup = in
	if in.Caller != nil && in.Caller.Kind == domain.RoleKindClient {
		return nil, domain.ErrAlreadyAuthenticated
	}
	if in.Email == "taken@example.com" {
		return nil, domain.ErrUserExists
	}
	role := domain.RoleClient
	if in.Caller.IsAdmin() {
		role = domain.RoleAdmin
	}
	return &ports.AuthResult{
		Token: "new-token",
		User:  ports.PublicUser{ID: 10, Username: in.Username, Email: in.Email, Role: role},
	}, nil
}

func (s *stubAuth) Login(_ context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if in.Caller != nil {
		return nil, domain.ErrAlreadyAuthenticated
	}
	if in.Email != "alice@example.com" || in.Password != "secret" {
		return nil, domain.ErrInvalidCredentials
	}
	return &ports.AuthResult{Token: "client-token", User: ports.PublicUser{ID: 7, Username: "alice", Email: in.Email, RoleID: 1, Role: domain.RoleClient}}, nil
}

type stubUsers struct{}

func (stubUsers) ListUsers(context.Context) ([]ports.PublicUser, error) {
	return []ports.PublicUser{{ID: 1, Username: "root", Role: domain.RoleAdmin}}, nil
}

func (stubUsers) GetUser(_ context.Context, id int64) (*ports.PublicUser, error) {
	switch id {
	case 1:
		return &ports.PublicUser{ID: 1, Username: "root", RoleID: 2, Role: domain.RoleAdmin}, nil
	case 7:
		return &ports.PublicUser{ID: 7, Username: "alice", RoleID: 1, Role: domain.RoleClient}, nil
	}
	return nil, domain.ErrUserNotFound
}

type stubProducts struct {
	lastList   ports.ListProductsInput
	lastCreate ports.CreateProductInput
	lastUpdate ports.UpdateProductInput
}

func (s *stubProducts) ListProducts(_ context.Context, in ports.ListProductsInput) (*ports.ListProductsResult, error) {
	s.lastList = in
	return &ports.ListProductsResult{
		Count:       1,
		CurrentPage: 1,
		TotalPages:  1,
		Results:     []*domain.Product{{ID: 3, Title: "Mug", Slug: "mug", Price: decimal.RequireFromString("9.99"), References: 2}},
	}, nil
}

func (s *stubProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if id != 3 {
		return nil, domain.ErrProductNotFound
	}
	return &domain.Product{ID: 3, Title: "Mug", Slug: "mug"}, nil
}

func (s *stubProducts) CreateProduct(_ context.Context, in ports.CreateProductInput) (*domain.Product, error) {
	s.lastCreate = in
	for _, t := range in.Tags {
		if t == "ghost" {
			return nil, domain.NewMissingTagsError([]string{"ghost"})
		}
	}
	return &domain.Product{ID: 4, Title: in.Title, Slug: "new", Price: in.Price, References: in.References}, nil
}

func (s *stubProducts) UpdateProduct(_ context.Context, id int64, in ports.UpdateProductInput) (*domain.Product, error) {
	s.lastUpdate = in
	if id != 3 {
		return nil, domain.ErrProductNotFound
	}
	return &domain.Product{ID: 3, Title: "Mug"}, nil
}

func (s *stubProducts) DeleteProduct(_ context.Context, id int64) error {
	if id != 3 {
		return domain.ErrProductNotFound
	}
	return nil
}

type stubTags struct{}

func (stubTags) ListTags(context.Context) ([]*domain.Tag, error) {
	return []*domain.Tag{{ID: 1, Title: "kitchen"}}, nil
}

func (stubTags) GetTag(_ context.Context, id int64) (*domain.Tag, error) {
	if id != 1 {
		return nil, domain.ErrTagNotFound
	}
	return &domain.Tag{ID: 1, Title: "kitchen"}, nil
}

func (stubTags) CreateTag(_ context.Context, title string) (*domain.Tag, error) {
	if title == "kitchen" {
		return nil, domain.ErrTagExists
	}
	return &domain.Tag{ID: 2, Title: title}, nil
}

func (stubTags) UpdateTag(_ context.Context, id int64, title string) (*domain.Tag, error) {
	if id != 1 {
		return nil, domain.ErrTagNotFound
	}
	return &domain.Tag{ID: 1, Title: title}, nil
}

func (stubTags) DeleteTag(_ context.Context, id int64) error {
	if id != 1 {
		return domain.ErrTagNotFound
	}
	return nil
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// --- harness ---

type testServer struct {
	auth     *stubAuth
	products *stubProducts
	deps     Dependencies
	handler  http.Handler
}

func newTestServer() *testServer {
	auth := &stubAuth{}
	products := &stubProducts{}
	registry := prometheus.NewRegistry()
	s := &testServer{
		auth:     auth,
		products: products,
		deps: Dependencies{
			Log:        zerolog.Nop(),
			Auth:       auth,
			Users:      stubUsers{},
			Products:   products,
			Tags:       stubTags{},
			Readiness:  map[string]handler.Pinger{"db": pingerFunc(func(context.Context) error { return nil })},
			Registerer: registry,
			Gatherer:   registry,
		},
	}
	s.handler = NewRouter(s.deps)
	return s
}

func (s *testServer) do(t *testing.T, method, target, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// --- products ---

func TestProducts_ListIsPublic(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodGet, "/products?page=2&pageSize=5&tags=kitchen,garden", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, 2, s.products.lastList.Page)
	assert.Equal(t, 5, s.products.lastList.PageSize)
	assert.Equal(t, []string{"kitchen", "garden"}, s.products.lastList.Tags)

	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "9.99", results[0].(map[string]any)["price"])
}

func TestProducts_ListRejectsNonNumericPage(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodGet, "/products?page=two", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "page and pageSize must be integers", body["error"])
}

func TestProducts_GetUnknownIs404(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodGet, "/products/99", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", body["error"])
}

func TestProducts_CreateRequiresAdmin(t *testing.T) {
	s := newTestServer()
	payload := `{"title":"Lamp","price":12.5,"references":3}`

	rec, _ := s.do(t, http.MethodPost, "/products", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/products", "client-token", payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body["error"])

	rec, body = s.do(t, http.MethodPost, "/products", "admin-token", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Lamp", body["title"])
	assert.True(t, s.products.lastCreate.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestProducts_CreateValidatesPayload(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/products", "admin-token", `{"title":"Lamp","references":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "price is required")
	assert.Contains(t, body["error"], "references must be at least 0")
}

func TestProducts_CreateReportsMissingTags(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/products", "admin-token", `{"title":"Lamp","price":"1.00","tags":["ghost"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "the following tags do not exist: ghost", body["error"])
}

func TestProducts_UpdatePassesOnlyProvidedFields(t *testing.T) {
	s := newTestServer()

	rec, _ := s.do(t, http.MethodPatch, "/products/3", "admin-token", `{"references":0,"tags":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	in := s.products.lastUpdate
	assert.Nil(t, in.Title)
	assert.Nil(t, in.Price)
	require.NotNil(t, in.References)
	assert.Equal(t, 0, *in.References)
	require.NotNil(t, in.Tags)
	assert.Empty(t, *in.Tags)
}

func TestProducts_UpdateRejectsBadID(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPatch, "/products/abc", "admin-token", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id must be a positive integer", body["error"])
}

func TestProducts_Delete(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodDelete, "/products/3", "admin-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "product deleted", body["message"])

	rec, _ = s.do(t, http.MethodDelete, "/products/4", "admin-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- tags ---

func TestTags_AdminOnly(t *testing.T) {
	s := newTestServer()

	rec, _ := s.do(t, http.MethodGet, "/tags", "client-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/tags", "admin-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTags_CreateAndConflict(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/tags", "admin-token", `{"title":"garden"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "garden", body["title"])

	rec, body = s.do(t, http.MethodPost, "/tags", "admin-token", `{"title":"kitchen"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "tag already exists", body["error"])

	rec, body = s.do(t, http.MethodPost, "/tags", "admin-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title is required", body["error"])
}

// --- users ---

func TestSignup_AnonymousCreatesClient(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/users/signup", "", `{"email":"bob@example.com","password":"pw","username":"bob"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "new-token", body["token"])
	assert.Equal(t, domain.RoleClient, body["user"].(map[string]any)["role"])
	assert.Nil(t, s.auth.lastSignup.Caller)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSignup_AdminCallerIsForwarded(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/users/signup", "admin-token", `{"email":"ops@example.com","password":"pw","username":"ops"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.RoleAdmin, body["user"].(map[string]any)["role"])
}

func TestSignup_LoggedInClientGetsMessage(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/users/signup", "client-token", `{"email":"x@example.com","password":"pw","username":"x"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["message"], "already logged in")
}

func TestSignup_InvalidTokenIsAnonymous(t *testing.T) {
	s := newTestServer()

	rec, _ := s.do(t, http.MethodPost, "/users/signup", "garbage", `{"email":"y@example.com","password":"pw","username":"y"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, s.auth.lastSignup.Caller)
}

func TestSignup_ValidationAndConflict(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/users/signup", "", `{"email":"not-an-email","password":"pw","username":"z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid email", body["error"])

	rec, body = s.do(t, http.MethodPost, "/users/signup", "", `{"email":"taken@example.com","password":"pw","username":"z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user already exists", body["error"])
}

func TestLogin(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/users/login", "", `{"email":"alice@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-token", body["token"])

	rec, body = s.do(t, http.MethodPost, "/users/login", "", `{"email":"alice@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])

	rec, body = s.do(t, http.MethodPost, "/users/login", "client-token", `{"email":"alice@example.com","password":"secret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already logged in", body["message"])
}

func TestUsers_AdminRoutes(t *testing.T) {
	s := newTestServer()

	rec, _ := s.do(t, http.MethodGet, "/users", "client-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/users/7", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["username"])

	rec, _ = s.do(t, http.MethodGet, "/users/42", "admin-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/users/test-token", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["id"])
	results := body["results"].(map[string]any)
	assert.Equal(t, "root", results["username"])
	assert.EqualValues(t, 2, results["roleId"])
}

func TestAuth_StoreFaultIs500(t *testing.T) {
	s := newTestServer()
	s.auth.resolveErr = errors.New("connection refused")

	rec, body := s.do(t, http.MethodGet, "/users", "admin-token", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", body["error"])
}

// --- probes ---

func TestHealthProbes(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.deps.Readiness["cache"] = pingerFunc(func(context.Context) error { return errors.New("down") })
	rec, body = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	s.do(t, http.MethodGet, "/products", "", "")

	rec, _ := s.do(t, http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_requests_total")
}
