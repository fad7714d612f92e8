package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Krish-Depani/order-session-api/database"
	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/Krish-Depani/order-session-api/validators"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AuthController struct {
	db       *gorm.DB
	sessions *database.SessionStore
	tokens   *utils.TokenService
}

type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

func NewAuthController(db *gorm.DB, sessions *database.SessionStore, tokens *utils.TokenService) *AuthController {
	return &AuthController{
		db:       db,
		sessions: sessions,
		tokens:   tokens,
	}
}

// Login checks the credentials and opens a new session, replacing any
// session the user already had.
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := validators.ValidateLoginRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var user models.User
	err := ac.db.WithContext(ctx).
		Where("email = ? AND is_deleted = ?", strings.ToLower(strings.TrimSpace(req.Email)), false).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Fail(c, utils.ErrUserNotFound)
		return
	}
	if err != nil {
		utils.Fail(c, fmt.Errorf("find user: %w", err))
		return
	}

	if req.Password == "" {
		utils.Fail(c, utils.ErrInvalidCredential)
		return
	}
	match, err := utils.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		utils.Fail(c, fmt.Errorf("check password: %w", err))
		return
	}
	if !match {
		log.Info().Str("user_id", user.ID.String()).Str("ip", c.ClientIP()).Msg("Login rejected: wrong password")
		utils.Fail(c, utils.ErrInvalidCredential)
		return
	}
	if !user.IsActive {
		utils.Fail(c, utils.Forbidden("User account is inactive"))
		return
	}

	identity := utils.Identity{UserID: user.ID, Email: user.Email, Role: string(user.Role)}
	accessToken, err := ac.tokens.IssueAccessToken(identity)
	if err != nil {
		utils.Fail(c, fmt.Errorf("issue access token: %w", err))
		return
	}
	refreshToken, err := ac.tokens.IssueRefreshToken(identity)
	if err != nil {
		utils.Fail(c, fmt.Errorf("issue refresh token: %w", err))
		return
	}

	accessClaims, err := ac.tokens.Decode(accessToken)
	if err != nil {
		utils.Fail(c, fmt.Errorf("decode access token: %w", err))
		return
	}
	refreshClaims, err := ac.tokens.Decode(refreshToken)
	if err != nil {
		utils.Fail(c, fmt.Errorf("decode refresh token: %w", err))
		return
	}

	now := time.Now()
	session := &models.UserSession{
		UserID:                user.ID,
		Role:                  user.Role,
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessClaims.ExpiresTime(),
		RefreshTokenExpiresAt: refreshClaims.ExpiresTime(),
		LoginAt:               now,
		IPAddress:             c.ClientIP(),
		UserAgent:             c.Request.UserAgent(),
		IsActive:              true,
	}
	if err := ac.sessions.Replace(ctx, session); err != nil {
		utils.Fail(c, err)
		return
	}

	if err := ac.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to stamp last login")
	} else {
		user.LastLogin = &now
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("session_id", session.ID.String()).
		Str("ip", session.IPAddress).
		Msg("User logged in")

	utils.Success(c, http.StatusOK, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         &user,
	})
}

// Logout ends the session holding the bearer token. An unknown or already
// ended session is not an error.
func (ac *AuthController) Logout(c *gin.Context) {
	token, err := bearerToken(c)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	found, err := ac.sessions.Deactivate(c.Request.Context(), token)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if found {
		log.Info().Str("ip", c.ClientIP()).Msg("User logged out")
	}

	utils.Success(c, http.StatusOK, "Logged out successfully", nil)
}

// RefreshToken issues a new access token for the session holding the given
// refresh token. The refresh token itself is not rotated.
func (ac *AuthController) RefreshToken(c *gin.Context) {
	req, ok := validators.ValidateRefreshTokenRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		utils.Fail(c, utils.ErrMissingRefreshToken)
		return
	}

	session, err := ac.sessions.FindActiveByRefreshToken(ctx, refreshToken)
	if errors.Is(err, database.ErrNoSession) {
		utils.Fail(c, utils.ErrSessionNotFound)
		return
	}
	if err != nil {
		utils.Fail(c, err)
		return
	}

	claims, err := ac.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		utils.Fail(c, utils.ErrRefreshTokenExpired)
		return
	}

	accessToken, err := ac.tokens.IssueAccessToken(utils.Identity{
		UserID: session.UserID,
		Email:  claims.Email,
		Role:   string(session.Role),
	})
	if err != nil {
		utils.Fail(c, fmt.Errorf("issue access token: %w", err))
		return
	}
	accessClaims, err := ac.tokens.Decode(accessToken)
	if err != nil {
		utils.Fail(c, fmt.Errorf("decode access token: %w", err))
		return
	}

	err = ac.sessions.UpdateAccessToken(ctx, session, accessToken, accessClaims.ExpiresTime())
	if errors.Is(err, database.ErrNoSession) {
		// Logged out or replaced between the lookup and the update.
		utils.Fail(c, utils.ErrSessionNotFound)
		return
	}
	if err != nil {
		utils.Fail(c, err)
		return
	}

	utils.Success(c, http.StatusOK, "Access token refreshed", gin.H{"accessToken": accessToken})
}

// AuthMiddleware guards protected routes. A token is accepted only while it
// is cryptographically valid and still held by an active session, so logout
// and replacement take effect immediately.
func (ac *AuthController) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			utils.Abort(c, err)
			return
		}

		if _, err := ac.tokens.VerifyAccessToken(token); err != nil {
			utils.Abort(c, err)
			return
		}

		session, err := ac.sessions.LookupActive(c.Request.Context(), token)
		if errors.Is(err, database.ErrNoSession) {
			utils.Abort(c, utils.ErrSessionExpiredOrLoggedOut)
			return
		}
		if err != nil {
			utils.Abort(c, err)
			return
		}

		c.Set(ctxUserID, session.UserID)
		c.Set(ctxRole, models.Role(session.Role))
		c.Set(ctxSessionID, session.SessionID)

		c.Next()
	}
}
