package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"workspace-app/config"
	"workspace-app/internal/app/http/middleware"
	"workspace-app/internal/domain/users"
	wsdomain "workspace-app/internal/domain/workspaces"
	"workspace-app/internal/infra/mail"
)

type Mailer interface {
	Send(msg mail.Message) error
}

type Handler struct {
	db     *gorm.DB
	mailer Mailer
	log    zerolog.Logger
}

func NewHandler(db *gorm.DB, mailer Mailer, log zerolog.Logger) *Handler {
	return &Handler{db: db, mailer: mailer, log: log}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func generateToken() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func issueJWT(user *users.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(config.JWT_SECRET))
}

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !isPasswordStrong(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.Error(err)
		return
	}
	hashed := string(hashedPassword)

	name := req.FirstName
	if req.LastName != "" {
		name = req.FirstName + " " + req.LastName
	}

	user := users.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         name,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Password:     &hashed,
		AuthProvider: "local",
	}

	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email may already exist"})
		return
	}

	if err := h.sendVerification(&user); err != nil {
		// Registration stands; the token can be re-sent.
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send verification email")
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully. Please check your email to verify your account."})
}

func (h *Handler) sendVerification(user *users.User) error {
	h.db.Where("user_id = ? AND type = ?", user.ID, "email_verification").Delete(&users.VerificationToken{})

	token := generateToken()
	verification := users.VerificationToken{
		UserID:    user.ID,
		Token:     token,
		Type:      "email_verification",
		ExpiresAt: time.Now().Add(48 * time.Hour),
	}
	if err := h.db.Create(&verification).Error; err != nil {
		return err
	}

	link := fmt.Sprintf("%s/verify?token=%s", config.APP_URL, token)
	return h.mailer.Send(mail.Message{
		To:      user.Email,
		Subject: "Verify your email address",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Please confirm your email address by clicking the link below.</p><p><a href=%q>Verify email</a></p>",
			user.FirstName, link,
		),
	})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	var verification users.VerificationToken
	err := h.db.Where("token = ? AND type = ?", token, "email_verification").First(&verification).Error
	if err != nil || verification.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	err = h.db.Model(&users.User{}).Where("id = ?", verification.UserID).Update("is_verified", true).Error
	if err != nil {
		c.Error(err)
		return
	}
	h.db.Delete(&verification)

	c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}

	var user users.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already verified"})
		return
	}

	if err := h.sendVerification(&user); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification email resent"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user users.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in"})
		return
	}
	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := issueJWT(&user)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	// Never reveal whether the email exists.
	response := gin.H{"message": "If your email exists, you'll receive a reset link."}

	var user users.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, response)
		return
	}

	h.db.Where("user_id = ? AND type = ?", user.ID, "password_reset").Delete(&users.VerificationToken{})

	token := generateToken()
	reset := users.VerificationToken{
		UserID:    user.ID,
		Token:     token,
		Type:      "password_reset",
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	if err := h.db.Create(&reset).Error; err != nil {
		c.Error(err)
		return
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", config.APP_URL, token)
	err := h.mailer.Send(mail.Message{
		To:      user.Email,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Click the link below to choose a new password. The link expires in one hour.</p><p><a href=%q>Reset password</a></p>",
			user.FirstName, link,
		),
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send password reset email")
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !isPasswordStrong(req.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with letters and numbers"})
		return
	}

	var reset users.VerificationToken
	err := h.db.Where("token = ? AND type = ?", req.Token, "password_reset").First(&reset).Error
	if err != nil || reset.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.Error(err)
		return
	}
	err = h.db.Model(&users.User{}).Where("id = ?", reset.UserID).Update("password", string(hashed)).Error
	if err != nil {
		c.Error(err)
		return
	}
	h.db.Delete(&reset)

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if !isPasswordStrong(req.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 8 characters with letters and numbers"})
		return
	}

	var user users.User
	if err := h.db.Where("id = ?", middleware.UserID(c)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This account does not have a password. Sign in with Google or set a password first."})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Old password is incorrect"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.db.Model(&user).Update("password", string(hashed)).Error; err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

type membershipView struct {
	WorkspaceID string  `json:"workspaceId"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Logo        *string `json:"logo,omitempty"`
	Role        string  `json:"role"`
}

// Me returns the authenticated user and their active workspace
// memberships.
func (h *Handler) Me(c *gin.Context) {
	var user users.User
	err := h.db.Where("id = ?", middleware.UserID(c)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	var memberships []membershipView
	err = h.db.Model(&wsdomain.Member{}).
		Select("workspaces.id AS workspace_id, workspaces.name, workspaces.slug, workspaces.logo, workspace_members.role").
		Joins("JOIN workspaces ON workspaces.id = workspace_members.workspace_id").
		Where("workspace_members.user_id = ? AND workspace_members.status = ?", user.ID, wsdomain.MemberStatusActive).
		Scan(&memberships).Error
	if err != nil {
		c.Error(err)
		return
	}
	if memberships == nil {
		memberships = []membershipView{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":        user.ID,
			"email":     user.Email,
			"name":      user.Name,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"avatar":    user.Avatar,
		},
		"workspaces": memberships,
	})
}
