// handlers/user_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Klienn77/pos-vendas-ecommerce/models"
	"github.com/Klienn77/pos-vendas-ecommerce/store"
	"github.com/Klienn77/pos-vendas-ecommerce/utils"
)

// UserStore is what the user handlers need from the persistence layer.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type UserHandlers struct {
	Users UserStore
}

func NewUserHandlers(users UserStore) *UserHandlers {
	return &UserHandlers{Users: users}
}

// Register creates a new account. The route sits behind the admin
// middleware: accounts are provisioned by admins, there is no self
// service signup.
func (h *UserHandlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !utils.IsValidRole(role) {
		respondError(c, http.StatusBadRequest, "Invalid role. Use user, admin or manager", nil)
		return
	}

	// 1. Hash the password.
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to process password", err)
		return
	}

	// 2. Store the account. The unique email index reports duplicates.
	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Role:     role,
		IsActive: true,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "User with this email already exists", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to register user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    models.Safe(*user),
	})
}

// Login handles user authentication and JWT token creation. Every failure
// answers the same 401 so the response never confirms whether an email is
// registered.
func (h *UserHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	// 1. Retrieve the account by email.
	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Printf("Login lookup failed for %s: %v", req.Email, err)
		}
		respondError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	// 2. Deactivated accounts cannot log in.
	if !user.IsActive {
		log.Printf("Login rejected for deactivated account %s", user.Email)
		respondError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	// 3. Compare the provided password with the stored hash.
	if !utils.CheckPassword(user.Password, req.Password) {
		respondError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	// 4. Generate the JWT.
	tokenString, err := utils.GenerateJWT(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to generate authentication token", err)
		return
	}

	c.SetCookie(
		"jwt_token",
		tokenString,
		int(24*time.Hour/time.Second),
		"/",
		"",
		false,
		true,
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   tokenString,
		"user":    models.Safe(*user),
	})
}

// Logout clears the JWT cookie. Bearer tokens simply expire.
func (h *UserHandlers) Logout(c *gin.Context) {
	c.SetCookie(
		"jwt_token",
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Profile returns the account behind the presented token.
func (h *UserHandlers) Profile(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, err := h.Users.GetByID(ctx, c.GetString("user_id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to retrieve profile", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    models.Safe(*user),
	})
}

// ChangePassword lets an authenticated user rotate their own password
// after proving they know the current one.
func (h *UserHandlers) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, err := h.Users.GetByID(ctx, c.GetString("user_id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to retrieve account", err)
		}
		return
	}

	if !utils.CheckPassword(user.Password, req.CurrentPassword) {
		respondError(c, http.StatusUnauthorized, "Current password is incorrect", nil)
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to process password", err)
		return
	}

	if _, err := h.Users.Update(ctx, user.ID.Hex(), models.UserUpdate{PasswordHash: &hash}); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password updated",
	})
}

// ListUsers returns every account, newest first.
func (h *UserHandlers) ListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to retrieve users", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   models.SafeAll(users),
	})
}

func (h *UserHandlers) GetUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    models.Safe(*user),
	})
}

// UpdateUser applies a merge-style update to an account. A plaintext
// password in the request is rehashed before it reaches the store.
func (h *UserHandlers) UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	upd := models.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
	}

	if req.Role != nil {
		if !utils.IsValidRole(*req.Role) {
			respondError(c, http.StatusBadRequest, "Invalid role. Use user, admin or manager", nil)
			return
		}
		upd.Role = req.Role
	}

	if req.Password != nil {
		if len(*req.Password) < 8 {
			respondError(c, http.StatusBadRequest, "Password must be at least 8 characters", nil)
			return
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to process password", err)
			return
		}
		upd.PasswordHash = &hash
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	user, err := h.Users.Update(ctx, c.Param("id"), upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found", nil)
		case errors.Is(err, store.ErrEmailTaken):
			respondError(c, http.StatusConflict, "User with this email already exists", nil)
		default:
			respondError(c, http.StatusInternalServerError, "Failed to update user", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated",
		"user":    models.Safe(*user),
	})
}

func (h *UserHandlers) DeleteUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.Users.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found", nil)
		} else {
			respondError(c, http.StatusInternalServerError, "Failed to delete user", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}
