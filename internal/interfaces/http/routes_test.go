package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/infrastructure/blob"
	"github.com/hotelops/backoffice/internal/infrastructure/identity"
	"github.com/hotelops/backoffice/internal/infrastructure/repository/memory"
	"github.com/hotelops/backoffice/internal/interfaces/http/handlers"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/config"
	"github.com/hotelops/backoffice/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	store *memory.DocumentStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memory.NewDocumentStore()
	provider := identity.NewProvider(memory.NewCredentialRepository(), "test-secret", 1)

	registry := application.NewSessionRegistry(ctx, store, provider, provider, func() application.IdentityClient {
		return provider.NewClient()
	})
	t.Cleanup(registry.Close)

	directory, err := application.NewDirectory(ctx, store)
	require.NoError(t, err)
	t.Cleanup(directory.Close)
	logbook, err := application.NewLogbookService(ctx, store)
	require.NoError(t, err)
	t.Cleanup(logbook.Close)
	concierge, err := application.NewConciergeService(ctx, store)
	require.NoError(t, err)
	t.Cleanup(concierge.Close)
	lostFound, err := application.NewLostFoundService(ctx, store, blob.NewLocalStorage(t.TempDir(), "/photos"))
	require.NoError(t, err)
	t.Cleanup(lostFound.Close)

	validate := validator.New()
	router := NewRouter(Handlers{
		Auth:      handlers.NewAuthHandler(registry, validate),
		Users:     handlers.NewUserHandler(directory, validate),
		Settings:  handlers.NewSettingsHandler(),
		Logbook:   handlers.NewLogbookHandler(logbook, validate),
		Concierge: handlers.NewConciergeHandler(concierge, validate),
		LostFound: handlers.NewLostFoundHandler(lostFound, validate),
		System:    handlers.NewSystemHandler(registry, "memory"),
	}, middleware.NewAuthMiddleware(registry), "", &config.ServerConfig{ReadTimeout: 5, IdleTimeout: 5})
	router.SetupRoutes()

	return &testServer{app: router.App(), store: store}
}

type response struct {
	Status int
	Body   map[string]interface{}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

// signup registers a manager and returns its token and uid
func (s *testServer) signup(t *testing.T, email, name string) (string, string) {
	t.Helper()

	resp := s.do(t, "POST", "/api/v1/auth/signup", "", fiber.Map{
		"email":       email,
		"password":    "password",
		"displayName": name,
	})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)

	data := resp.Body["data"].(map[string]interface{})
	principal := data["principal"].(map[string]interface{})
	return data["token"].(string), principal["uid"].(string)
}

func (s *testServer) promote(t *testing.T, token, uid string, role domain.Role) {
	t.Helper()

	require.NoError(t, s.store.MergeWrite(context.Background(), domain.PrincipalPath(uid), domain.Document{
		"role":        string(role),
		"permissions": domain.Document(domain.DefaultPermissions(role).Map()),
	}))

	require.Eventually(t, func() bool {
		resp := s.do(t, "GET", "/api/v1/auth/me", token, nil)
		data, _ := resp.Body["data"].(map[string]interface{})
		return data != nil && data["role"] == string(role)
	}, time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, "GET", "/api/v1/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "healthy", resp.Body["status"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, "GET", "/api/v1/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)

	resp = s.do(t, "GET", "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)

	token, uid := s.signup(t, "boss@hotel.local", "Boss")

	resp = s.do(t, "GET", "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	me := resp.Body["data"].(map[string]interface{})
	assert.Equal(t, uid, me["uid"])
	assert.Equal(t, "manager", me["role"])

	resp = s.do(t, "PUT", "/api/v1/auth/profile", token, fiber.Map{"displayName": "The Boss"})
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "The Boss", resp.Body["data"].(map[string]interface{})["displayName"])

	resp = s.do(t, "POST", "/api/v1/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)

	resp = s.do(t, "GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status)

	resp = s.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "boss@hotel.local", "password": "password"})
	require.Equal(t, fiber.StatusOK, resp.Status)
	data := resp.Body["data"].(map[string]interface{})
	assert.NotEqual(t, token, data["token"])
	assert.Equal(t, "The Boss", data["principal"].(map[string]interface{})["displayName"])
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "boss@hotel.local", "Boss")

	tests := []struct {
		name   string
		path   string
		body   fiber.Map
		status int
	}{
		{"duplicate signup", "/api/v1/auth/signup", fiber.Map{"email": "boss@hotel.local", "password": "password", "displayName": "B"}, fiber.StatusConflict},
		{"invalid email", "/api/v1/auth/signup", fiber.Map{"email": "boss", "password": "password", "displayName": "B"}, fiber.StatusBadRequest},
		{"short password", "/api/v1/auth/signup", fiber.Map{"email": "new@hotel.local", "password": "123", "displayName": "B"}, fiber.StatusBadRequest},
		{"wrong password", "/api/v1/auth/login", fiber.Map{"email": "boss@hotel.local", "password": "nope-nope"}, fiber.StatusUnauthorized},
		{"unknown email", "/api/v1/auth/login", fiber.Map{"email": "ghost@hotel.local", "password": "password"}, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, "POST", tt.path, "", tt.body)
			assert.Equal(t, tt.status, resp.Status, resp.Body)
			assert.NotEmpty(t, resp.Body["error"])
		})
	}
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	managerToken, _ := s.signup(t, "manager@hotel.local", "Manager")
	_, targetUID := s.signup(t, "target@hotel.local", "Target")

	resp := s.do(t, "GET", "/api/v1/users", managerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.Status)

	resp = s.do(t, "DELETE", "/api/v1/users/"+targetUID, managerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.Status)

	// account creation is unsupported whatever the role
	resp = s.do(t, "POST", "/api/v1/users", managerToken, fiber.Map{"email": "new@hotel.local"})
	assert.Equal(t, fiber.StatusNotImplemented, resp.Status)

	// the roster is open to every authenticated caller
	resp = s.do(t, "GET", "/api/v1/directory", managerToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)

	snap, err := s.store.Get(context.Background(), domain.PrincipalPath(targetUID))
	require.NoError(t, err)
	assert.True(t, snap.Exists)
}

func TestAdminManagesUsers(t *testing.T) {
	s := newTestServer(t)
	adminToken, adminUID := s.signup(t, "admin@hotel.local", "Admin")
	s.promote(t, adminToken, adminUID, domain.RoleAdmin)
	_, targetUID := s.signup(t, "target@hotel.local", "Target")

	require.Eventually(t, func() bool {
		resp := s.do(t, "GET", "/api/v1/users", adminToken, nil)
		users, _ := resp.Body["data"].([]interface{})
		return resp.Status == fiber.StatusOK && len(users) == 2
	}, time.Second, 10*time.Millisecond)

	resp := s.do(t, "PUT", "/api/v1/users/"+targetUID+"/permissions", adminToken, fiber.Map{
		"role":        "staff",
		"permissions": fiber.Map{"canViewSpa": true},
	})
	require.Equal(t, fiber.StatusOK, resp.Status, resp.Body)

	snap, err := s.store.Get(context.Background(), domain.PrincipalPath(targetUID))
	require.NoError(t, err)
	target, _ := domain.PrincipalFromSnapshot(snap)
	assert.Equal(t, domain.RoleStaff, target.Role)
	assert.True(t, target.Permissions.CanViewSpa)
	assert.False(t, target.Permissions.CanViewFnb)

	resp = s.do(t, "PUT", "/api/v1/users/"+targetUID+"/permissions", adminToken, fiber.Map{"role": "owner"})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	resp = s.do(t, "POST", "/api/v1/users", adminToken, fiber.Map{
		"email": "new@hotel.local", "password": "password", "displayName": "New", "role": "staff",
	})
	assert.Equal(t, fiber.StatusNotImplemented, resp.Status)

	resp = s.do(t, "POST", "/api/v1/users", adminToken, fiber.Map{"email": "not-an-email", "role": "owner"})
	assert.Equal(t, fiber.StatusNotImplemented, resp.Status)

	resp = s.do(t, "PUT", "/api/v1/users/missing", adminToken, fiber.Map{"displayName": "X"})
	assert.Equal(t, fiber.StatusNotFound, resp.Status)

	resp = s.do(t, "DELETE", "/api/v1/users/"+targetUID, adminToken, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)

	resp = s.do(t, "POST", "/api/v1/auth/login", "", fiber.Map{"email": "target@hotel.local", "password": "password"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.Status, "credential revoked")

	resp = s.do(t, "GET", "/api/v1/system/info", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "memory", resp.Body["data"].(map[string]interface{})["store"])
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "boss@hotel.local", "Boss")

	resp := s.do(t, "GET", "/api/v1/settings", token, nil)
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "Boss", resp.Body["data"].(map[string]interface{})["userName"])

	resp = s.do(t, "PUT", "/api/v1/settings", token, fiber.Map{"themeColor": "teal", "darkMode": true})
	require.Equal(t, fiber.StatusOK, resp.Status)

	assert.Eventually(t, func() bool {
		resp := s.do(t, "GET", "/api/v1/settings", token, nil)
		data, _ := resp.Body["data"].(map[string]interface{})
		return data != nil && data["themeColor"] == "teal" && data["darkMode"] == true
	}, time.Second, 10*time.Millisecond)
}

func TestLogbook(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "boss@hotel.local", "Boss")

	resp := s.do(t, "POST", "/api/v1/logbook", token, fiber.Map{"message": "Boiler inspection at 10", "priority": "urgent"})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)
	id := resp.Body["data"].(map[string]interface{})["id"].(string)

	resp = s.do(t, "POST", "/api/v1/logbook", token, fiber.Map{"message": "x", "priority": "critical"})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)

	require.Eventually(t, func() bool {
		resp := s.do(t, "GET", "/api/v1/logbook?filter=mine&q=boiler", token, nil)
		entries, _ := resp.Body["data"].([]interface{})
		return len(entries) == 1
	}, time.Second, 10*time.Millisecond)

	resp = s.do(t, "POST", "/api/v1/logbook/"+id+"/read", token, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)

	resp = s.do(t, "POST", "/api/v1/logbook/"+id+"/archive", token, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.Status)

	require.Eventually(t, func() bool {
		resp := s.do(t, "GET", "/api/v1/logbook?archived=true", token, nil)
		entries, _ := resp.Body["data"].([]interface{})
		return len(entries) == 1
	}, time.Second, 10*time.Millisecond)

	resp = s.do(t, "POST", "/api/v1/logbook/missing/archive", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestReceptionRequiresCapability(t *testing.T) {
	s := newTestServer(t)
	token, uid := s.signup(t, "boss@hotel.local", "Boss")

	resp := s.do(t, "POST", "/api/v1/wakeups", token, fiber.Map{"room": "101", "time": "2026-03-01T06:30:00Z"})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)

	resp = s.do(t, "POST", "/api/v1/taxis", token, fiber.Map{"pickupTime": "2026-03-01T09:00:00Z", "destination": "Airport", "passengers": 2})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)

	resp = s.do(t, "POST", "/api/v1/lostfound", token, fiber.Map{"description": "Umbrella"})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)

	perms := domain.DefaultPermissions(domain.RoleManager).With(domain.CanViewReception, false)
	require.NoError(t, s.store.MergeWrite(context.Background(), domain.PrincipalPath(uid), domain.Document{
		"permissions": domain.Document(perms.Map()),
	}))

	require.Eventually(t, func() bool {
		return s.do(t, "GET", "/api/v1/wakeups", token, nil).Status == fiber.StatusForbidden
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, fiber.StatusForbidden, s.do(t, "GET", "/api/v1/taxis", token, nil).Status)
	assert.Equal(t, fiber.StatusForbidden, s.do(t, "GET", "/api/v1/lostfound", token, nil).Status)
	assert.Equal(t, fiber.StatusOK, s.do(t, "GET", "/api/v1/logbook", token, nil).Status)
}

func TestLostFoundPhotoUpload(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "boss@hotel.local", "Boss")

	resp := s.do(t, "POST", "/api/v1/lostfound", token, fiber.Map{"description": "Blue scarf", "location": "Lobby"})
	require.Equal(t, fiber.StatusCreated, resp.Status, resp.Body)
	id := resp.Body["data"].(map[string]interface{})["id"].(string)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 30))))

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("photo", "scarf.png")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/lostfound/"+id+"/photo", &form)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, fiber.StatusOK, httpResp.StatusCode)

	var body struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&body))
	assert.Contains(t, body.Data.URL, "/photos/lostfound/"+id+"/")
	assert.True(t, strings.HasSuffix(body.Data.URL, ".jpg"))
}

func TestAdminUpdateUserPermissions(t *testing.T) {
	s := newTestServer(t)
	adminToken, adminUID := s.signup(t, "admin@hotel.local", "Admin")
	s.promote(t, adminToken, adminUID, domain.RoleAdmin)
	_, targetUID := s.signup(t, "target@hotel.local", "Target")

	require.Eventually(t, func() bool {
		return s.do(t, "GET", "/api/v1/users/"+targetUID, adminToken, nil).Status == fiber.StatusOK
	}, time.Second, 10*time.Millisecond)

	resp := s.do(t, "PUT", "/api/v1/users/"+targetUID, adminToken, fiber.Map{
		"displayName": "Night Manager",
		"permissions": fiber.Map{"canViewSpa": false, "canViewMaintenance": true},
	})
	require.Equal(t, fiber.StatusNoContent, resp.Status, resp.Body)

	snap, err := s.store.Get(context.Background(), domain.PrincipalPath(targetUID))
	require.NoError(t, err)
	target, _ := domain.PrincipalFromSnapshot(snap)
	assert.Equal(t, "Night Manager", target.DisplayName)
	assert.Equal(t, domain.RoleManager, target.Role)
	assert.False(t, target.Permissions.CanViewSpa)
	assert.True(t, target.Permissions.CanViewMaintenance)
	assert.True(t, target.Permissions.CanViewFnb, "manager default kept")

	resp = s.do(t, "PUT", "/api/v1/users/"+targetUID, adminToken, fiber.Map{
		"role":        "staff",
		"permissions": fiber.Map{"canViewSpa": true},
	})
	require.Equal(t, fiber.StatusNoContent, resp.Status, resp.Body)

	snap, err = s.store.Get(context.Background(), domain.PrincipalPath(targetUID))
	require.NoError(t, err)
	target, _ = domain.PrincipalFromSnapshot(snap)
	assert.Equal(t, domain.RoleStaff, target.Role)
	assert.True(t, target.Permissions.CanViewSpa)
	assert.False(t, target.Permissions.CanViewFnb, "staff default applied")

	resp = s.do(t, "PUT", "/api/v1/users/"+targetUID, adminToken, fiber.Map{
		"permissions": fiber.Map{"canFly": true},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
}
