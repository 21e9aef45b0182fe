package api

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"giftbox/models"
	"giftbox/repositories"
)

const bcryptCost = 12

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostRegister creates a local account. The provisioned admin address
// is promoted at registration time as well, so the bootstrap does not
// depend on who signs up first.
func (impl *ServerImpl) PostRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if _, err := mail.ParseAddress(req.Email); err != nil || !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email address"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password must be at least 8 characters"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		respondError(c, err)
		return
	}
	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		IsAdmin:      impl.config.Auth.AdminEmail != "" && strings.EqualFold(req.Email, impl.config.Auth.AdminEmail),
	}
	if err := impl.users.Create(c.Request.Context(), user); err != nil {
		if err == repositories.ErrDuplicate {
			c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
			return
		}
		respondError(c, Wrap(KindPersistenceFailure, "Fail to create user", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

// PostLogin verifies the credential pair and issues the access token
// cookie. Unknown email and wrong password share one response so the
// endpoint does not leak which half failed.
func (impl *ServerImpl) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	user, err := impl.users.FindByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if err == repositories.ErrNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
			return
		}
		respondError(c, Wrap(KindPersistenceFailure, "Fail to load user", err))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, JWT{
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(impl.config.Auth.ExpireDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    impl.config.Auth.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{impl.config.Auth.Audience},
		},
	}).SignedString(impl.config.Auth.PrivateKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(AccessTokenCookie, token, int(impl.config.Auth.ExpireDuration.Seconds()), "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"id":      user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"isAdmin": user.IsAdmin,
	})
}

// GetLogout only clears the cookie. Issued tokens stay valid until
// expiry, there is no server-side revocation list.
func (impl *ServerImpl) GetLogout(c *gin.Context) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetUserInfo returns the profile of the authenticated caller.
func (impl *ServerImpl) GetUserInfo(c *gin.Context) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	user, err := impl.users.FindByID(c.Request.Context(), principal.ID)
	if err != nil {
		if err == repositories.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		respondError(c, Wrap(KindPersistenceFailure, "Fail to load user", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"isAdmin": user.IsAdmin,
	})
}
