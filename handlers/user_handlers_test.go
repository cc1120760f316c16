package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
	"github.com/Klienn77/pos-vendas-ecommerce/store"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserStore keeps accounts in memory keyed by hex id.
type fakeUserStore struct {
	users   map[string]*models.User
	lastUpd models.UserUpdate
	updID   string
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID.Hex()] = u
	}
	return f
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrEmailTaken
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID.Hex()] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) List(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserStore) Update(_ context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	f.updID, f.lastUpd = id, upd
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.Password = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	return u, nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

// seedUser builds an active account with the given plaintext password
// already hashed.
func seedUser(t *testing.T, email, password, role string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &models.User{
		ID:       primitive.NewObjectID(),
		Name:     "Seed User",
		Email:    email,
		Password: hash,
		Role:     role,
		IsActive: true,
	}
}

// asUser simulates the auth middleware having already validated a token.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Set("user_role", models.RoleUser)
	}
}

func newUserRouter(fake *fakeUserStore, selfID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUserHandlers(fake)
	r.POST("/api/users/register", h.Register)
	r.POST("/api/users/login", h.Login)
	r.POST("/api/users/logout", h.Logout)
	r.GET("/api/users/profile", asUser(selfID), h.Profile)
	r.POST("/api/users/change-password", asUser(selfID), h.ChangePassword)
	r.GET("/api/users", h.ListUsers)
	r.GET("/api/users/:id", h.GetUser)
	r.PUT("/api/users/:id", h.UpdateUser)
	r.DELETE("/api/users/:id", h.DeleteUser)
	return r
}

func TestLoginSuccess(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleAdmin)
	r := newUserRouter(newFakeUserStore(u), "")

	w := doJSON(t, r, http.MethodPost, "/api/users/login", map[string]any{
		"email":    "ana@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool            `json:"success"`
		Token   string          `json:"token"`
		User    models.SafeUser `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Email != "ana@example.com" || resp.User.Role != models.RoleAdmin {
		t.Errorf("user projection wrong: %+v", resp.User)
	}
	if strings.Contains(w.Body.String(), `"password"`) {
		t.Error("login response must not leak password material")
	}

	cookieSet := false
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "jwt_token" && cookie.Value != "" {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("login should set the jwt_token cookie")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
	inactive := seedUser(t, "off@example.com", "secret123", models.RoleUser)
	inactive.IsActive = false
	r := newUserRouter(newFakeUserStore(u, inactive), "")

	bodies := map[string]map[string]any{
		"unknown email":  {"email": "ghost@example.com", "password": "secret123"},
		"wrong password": {"email": "ana@example.com", "password": "wrong-pass"},
		"inactive user":  {"email": "off@example.com", "password": "secret123"},
	}

	var responses []string
	for name, body := range bodies {
		w := doJSON(t, r, http.MethodPost, "/api/users/login", body)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, w.Code)
		}
		responses = append(responses, w.Body.String())
	}
	for i := 1; i < len(responses); i++ {
		if responses[i] != responses[0] {
			t.Errorf("401 bodies differ, which leaks account state:\n%s\n%s", responses[0], responses[i])
		}
	}
}

func TestRegisterDefaults(t *testing.T) {
	fake := newFakeUserStore()
	r := newUserRouter(fake, "")

	w := doJSON(t, r, http.MethodPost, "/api/users/register", map[string]any{
		"name":     "Novo Usuario",
		"email":    "novo@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	created, err := fake.GetByEmail(context.Background(), "novo@example.com")
	if err != nil {
		t.Fatalf("account not stored: %v", err)
	}
	if created.Role != models.RoleUser {
		t.Errorf("default role = %q, want user", created.Role)
	}
	if !created.IsActive {
		t.Error("new accounts should start active")
	}
	if created.Password == "secret123" {
		t.Error("password stored in plaintext")
	}
	if !utils.CheckPassword(created.Password, "secret123") {
		t.Error("stored hash does not verify the original password")
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"short password", map[string]any{"name": "A", "email": "a@b.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", map[string]any{"name": "A", "email": "not-an-email", "password": "secret123"}, http.StatusBadRequest},
		{"bad role", map[string]any{"name": "A", "email": "a@b.com", "password": "secret123", "role": "root"}, http.StatusBadRequest},
		{"missing name", map[string]any{"email": "a@b.com", "password": "secret123"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newUserRouter(newFakeUserStore(), "")
			w := doJSON(t, r, http.MethodPost, "/api/users/register", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
	r := newUserRouter(newFakeUserStore(u), "")

	w := doJSON(t, r, http.MethodPost, "/api/users/register", map[string]any{
		"name":     "Clone",
		"email":    "ana@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestProfileProjection(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
	r := newUserRouter(newFakeUserStore(u), u.ID.Hex())

	w := doJSON(t, r, http.MethodGet, "/api/users/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"email":"ana@example.com"`) {
		t.Errorf("profile missing account data: %s", w.Body.String())
	}
	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Error("profile must not leak password material")
	}
}

func TestChangePassword(t *testing.T) {
	t.Run("wrong current password", func(t *testing.T) {
		u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
		r := newUserRouter(newFakeUserStore(u), u.ID.Hex())

		w := doJSON(t, r, http.MethodPost, "/api/users/change-password", map[string]any{
			"currentPassword": "wrong-pass",
			"newPassword":     "brand-new-pass",
		})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401: %s", w.Code, w.Body.String())
		}
	})

	t.Run("rotates the hash", func(t *testing.T) {
		u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
		fake := newFakeUserStore(u)
		r := newUserRouter(fake, u.ID.Hex())

		w := doJSON(t, r, http.MethodPost, "/api/users/change-password", map[string]any{
			"currentPassword": "secret123",
			"newPassword":     "brand-new-pass",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if fake.lastUpd.PasswordHash == nil {
			t.Fatal("store never received the new hash")
		}
		if !utils.CheckPassword(*fake.lastUpd.PasswordHash, "brand-new-pass") {
			t.Error("stored hash does not verify the new password")
		}
	})
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
	fake := newFakeUserStore(u)
	r := newUserRouter(fake, "")

	w := doJSON(t, r, http.MethodPut, "/api/users/"+u.ID.Hex(), map[string]any{
		"password": "rotated-pass",
		"isActive": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if fake.lastUpd.PasswordHash == nil || *fake.lastUpd.PasswordHash == "rotated-pass" {
		t.Error("password must be hashed before it reaches the store")
	}
	if fake.lastUpd.IsActive == nil || *fake.lastUpd.IsActive {
		t.Error("isActive=false should pass through as an explicit change")
	}
}

func TestUpdateUserValidation(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
	r := newUserRouter(newFakeUserStore(u), "")

	w := doJSON(t, r, http.MethodPut, "/api/users/"+u.ID.Hex(), map[string]any{"role": "root"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad role: status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, "/api/users/"+u.ID.Hex(), map[string]any{"password": "short"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want 400", w.Code)
	}
}

func TestUserNotFoundPaths(t *testing.T) {
	r := newUserRouter(newFakeUserStore(), "")
	missing := primitive.NewObjectID().Hex()

	if w := doJSON(t, r, http.MethodGet, "/api/users/"+missing, nil); w.Code != http.StatusNotFound {
		t.Errorf("get: status = %d, want 404", w.Code)
	}
	if w := doJSON(t, r, http.MethodPut, "/api/users/"+missing, map[string]any{"name": "X"}); w.Code != http.StatusNotFound {
		t.Errorf("update: status = %d, want 404", w.Code)
	}
	if w := doJSON(t, r, http.MethodDelete, "/api/users/"+missing, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete: status = %d, want 404", w.Code)
	}
}

func TestListUsersProjection(t *testing.T) {
	u := seedUser(t, "ana@example.com", "secret123", models.RoleUser)
	r := newUserRouter(newFakeUserStore(u), "")

	w := doJSON(t, r, http.MethodGet, "/api/users", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(strings.ToLower(w.Body.String()), "password") {
		t.Error("list must not leak password material")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r := newUserRouter(newFakeUserStore(), "")

	w := doJSON(t, r, http.MethodPost, "/api/users/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	cleared := false
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "jwt_token" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout should expire the jwt_token cookie")
	}
}
