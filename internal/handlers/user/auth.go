package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"net/url"
	"time"

	"vkitchen_back_end/internal/database"
	"vkitchen_back_end/internal/models"
	"vkitchen_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

// ================== LOCAL AUTH ==================

func Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	if _, err := findByEmail(c.Request.Context(), session, input.Email, "local"); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RoleCustomer,
		Provider:     "local",
		CreatedAt:    time.Now(),
	}

	if err := insertUser(c.Request.Context(), session, user); err != nil {
		log.Printf("❌ User creation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	log.Printf("✅ User registered: %s", user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"role":    user.Role,
	})
}

func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	user, err := findByEmail(c.Request.Context(), session, input.Email, "local")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		return
	}
	if ok, err := utils.VerifyPassword(input.Password, user.PasswordHash); err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		return
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"role":    user.Role,
	})
}

// Me returns the authenticated user's profile.
func Me(c *gin.Context) {
	userID := c.GetString("user_id")

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	var user models.User
	err = session.Query(`
		SELECT user_id, name, email, role, provider, created_at FROM users WHERE user_id = ?`,
		userID).WithContext(c.Request.Context()).
		Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Provider, &user.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ================== SOCIAL AUTH ==================

func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No provider specified"})
		return
	}

	if redirectURL := c.Query("redirect_url"); redirectURL != "" {
		state := generateRandomState()
		ctx := context.Background()
		_ = database.Redis.Set(ctx, "oauth_redirect:"+state, redirectURL, 10*time.Minute).Err()

		q := c.Request.URL.Query()
		q.Set("state", state)
		c.Request.URL.RawQuery = q.Encode()
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func CallbackAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No provider specified"})
		return
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection error"})
		return
	}

	user, err := findByEmail(c.Request.Context(), session, gothUser.Email, provider)
	if err != nil {
		newUser := models.User{
			ID:        uuid.NewString(),
			Name:      gothUser.Name,
			Email:     gothUser.Email,
			Role:      models.RoleCustomer,
			Provider:  provider,
			CreatedAt: time.Now(),
		}
		if err := insertUser(c.Request.Context(), session, newUser); err != nil {
			log.Printf("❌ OAuth user creation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}
		user = &newUser
		log.Printf("✅ New %s user: %s", provider, user.Email)
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	// Send the browser back to the frontend when a redirect was requested.
	if state := c.Query("state"); state != "" {
		ctx := context.Background()
		if redirectURL, err := database.Redis.Get(ctx, "oauth_redirect:"+state).Result(); err == nil {
			database.Redis.Del(ctx, "oauth_redirect:"+state)
			c.Redirect(http.StatusTemporaryRedirect, redirectURL+"?token="+url.QueryEscape(token))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"user_id":  user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"role":     user.Role,
		"provider": provider,
	})
}

func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// ================== STORAGE HELPERS ==================

func findByEmail(ctx context.Context, session *gocql.Session, email, provider string) (*models.User, error) {
	var user models.User
	err := session.Query(`
		SELECT user_id, name, email, password_hash, role, provider, created_at
		FROM users WHERE email = ? AND provider = ? ALLOW FILTERING`,
		email, provider).WithContext(ctx).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Provider, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func insertUser(ctx context.Context, session *gocql.Session, user models.User) error {
	return session.Query(`
		INSERT INTO users (user_id, name, email, password_hash, role, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Provider, user.CreatedAt,
	).WithContext(ctx).Exec()
}
