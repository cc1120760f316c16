package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"uid":  c.GetString("user_id"),
			"role": c.GetString("user_role"),
		})
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func tokenFor(t *testing.T, role string) (string, primitive.ObjectID) {
	t.Helper()
	id := primitive.NewObjectID()
	token, err := utils.GenerateJWT(&models.User{
		ID:    id,
		Name:  "Test User",
		Email: "test@example.com",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token, id
}

func TestAuthRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")
	r := newProtectedRouter()

	t.Run("no credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("garbage bearer token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid bearer token", func(t *testing.T) {
		token, id := tokenFor(t, models.RoleUser)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["uid"] != id.Hex() {
			t.Errorf("uid = %q, want %q", body["uid"], id.Hex())
		}
		if body["role"] != models.RoleUser {
			t.Errorf("role = %q, want %q", body["role"], models.RoleUser)
		}
	})

	t.Run("cookie fallback", func(t *testing.T) {
		token, _ := tokenFor(t, models.RoleUser)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
	})
}

func TestAdminRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-test-secret")
	r := newProtectedRouter()

	t.Run("regular user forbidden", func(t *testing.T) {
		token, _ := tokenFor(t, models.RoleUser)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("admin allowed", func(t *testing.T) {
		token, _ := tokenFor(t, models.RoleAdmin)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
	})
}
