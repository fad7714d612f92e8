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
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type UserController struct {
	db       *gorm.DB
	sessions *database.SessionStore
}

func NewUserController(db *gorm.DB, sessions *database.SessionStore) *UserController {
	return &UserController{
		db:       db,
		sessions: sessions,
	}
}

type SessionResponse struct {
	ID                    uuid.UUID  `json:"id"`
	IPAddress             string     `json:"ipAddress"`
	UserAgent             string     `json:"userAgent"`
	LoginAt               time.Time  `json:"loginAt"`
	LogoutAt              *time.Time `json:"logoutAt,omitempty"`
	AccessTokenExpiresAt  time.Time  `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time  `json:"refreshTokenExpiresAt"`
	IsActive              bool       `json:"isActive"`
	CurrentSession        bool       `json:"currentSession"`
}

func (uc *UserController) GetUserStatus(c *gin.Context) {
	utils.Success(c, http.StatusOK, "User service is up", nil)
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}

	user, err := uc.find(c, viewer.UserID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "User details retrieved", user)
}

// GetActiveSessions returns the caller's stored session history. With the
// single-session policy this is at most one row.
func (uc *UserController) GetActiveSessions(c *gin.Context) {
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	currentSessionID, _ := c.Get(ctxSessionID)

	sessions, err := uc.sessions.ListByUser(c.Request.Context(), viewer.UserID)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	response := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		response = append(response, SessionResponse{
			ID:                    session.ID,
			IPAddress:             session.IPAddress,
			UserAgent:             session.UserAgent,
			LoginAt:               session.LoginAt,
			LogoutAt:              session.LogoutAt,
			AccessTokenExpiresAt:  session.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: session.RefreshTokenExpiresAt,
			IsActive:              session.IsActive,
			CurrentSession:        session.ID == currentSessionID,
		})
	}

	utils.Success(c, http.StatusOK, "Sessions retrieved successfully", response)
}

func (uc *UserController) List(c *gin.Context) {
	req, ok := validators.Bind[validators.UserListRequest](c)
	if !ok {
		return
	}
	page, limit := req.Window()

	query := uc.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("is_deleted = ?", false)
	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Fail(c, fmt.Errorf("count users: %w", err))
		return
	}
	if total == 0 {
		utils.Fail(c, utils.NotFound("No users found"))
		return
	}

	order := "created_at DESC"
	if req.Sort == "Ascending" {
		order = "created_at ASC"
	}
	var users []models.User
	if err := query.Order(order).Order("id").Offset(req.Offset()).Limit(limit).Find(&users).Error; err != nil {
		utils.Fail(c, fmt.Errorf("list users: %w", err))
		return
	}

	utils.Page(c, "Users retrieved successfully", users, utils.NewMeta(page, limit, total), nil)
}

var (
	errAdminOnly      = utils.Forbidden("Only Admin users can manage other users")
	errRoleChangeDeny = utils.Forbidden("Only Admin users can change roles or account status")
)

// Create registers a new user. Admin only.
func (uc *UserController) Create(c *gin.Context) {
	req, ok := validators.Bind[validators.CreateUserRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	if viewer.Role != models.RoleAdmin {
		utils.Fail(c, errAdminOnly)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Fail(c, fmt.Errorf("hash password: %w", err))
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Mobile:       req.Mobile,
		PasswordHash: hash,
		Role:         models.Role(req.Role),
		IsActive:     true,
		CreatedBy:    &viewer.UserID,
		CreatedIP:    c.ClientIP(),
	}
	if err := uc.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Fail(c, utils.Conflict("A user with this email already exists"))
			return
		}
		utils.Fail(c, fmt.Errorf("create user: %w", err))
		return
	}

	log.Info().Str("user_id", user.ID.String()).Str("created_by", viewer.UserID.String()).Msg("User created")
	utils.Success(c, http.StatusCreated, "User created successfully", user)
}

// Update edits a user. A non-Admin may only edit their own profile and may
// not touch role or isActive. Revoking access or changing the role ends the
// target's session.
func (uc *UserController) Update(c *gin.Context) {
	req, ok := validators.Bind[validators.UpdateUserRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if viewer.Role != models.RoleAdmin {
		if id != viewer.UserID {
			utils.Fail(c, errAdminOnly)
			return
		}
		if req.Role != nil || req.IsActive != nil {
			utils.Fail(c, errRoleChangeDeny)
			return
		}
	}

	updates := map[string]interface{}{
		"modified_by": viewer.UserID,
		"modified_ip": c.ClientIP(),
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Mobile != nil {
		updates["mobile"] = *req.Mobile
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			utils.Fail(c, fmt.Errorf("hash password: %w", err))
			return
		}
		updates["password_hash"] = hash
	}

	result := uc.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			utils.Fail(c, utils.Conflict("A user with this email already exists"))
			return
		}
		utils.Fail(c, fmt.Errorf("update user: %w", result.Error))
		return
	}
	if result.RowsAffected == 0 {
		utils.Fail(c, utils.ErrUserNotFound)
		return
	}
	if req.Role != nil || (req.IsActive != nil && !*req.IsActive) {
		if !uc.endSessions(c, id) {
			return
		}
	}

	user, err := uc.find(c, id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "User updated successfully", user)
}

// Delete soft-deletes a user and ends their session. Admin only, and Admin
// accounts cannot be deleted.
func (uc *UserController) Delete(c *gin.Context) {
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	if viewer.Role != models.RoleAdmin {
		utils.Fail(c, errAdminOnly)
		return
	}
	id, err := parseID(c.Param("id"), "id")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	user, err := uc.find(c, id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if user.Role == models.RoleAdmin {
		utils.Fail(c, utils.Forbidden("Admin users cannot be deleted"))
		return
	}

	now := time.Now()
	err = uc.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted":  true,
			"is_active":   false,
			"deleted_at":  now,
			"modified_by": viewer.UserID,
			"modified_ip": c.ClientIP(),
		}).Error
	if err != nil {
		utils.Fail(c, fmt.Errorf("delete user: %w", err))
		return
	}
	if !uc.endSessions(c, id) {
		return
	}

	log.Info().Str("user_id", id.String()).Str("deleted_by", viewer.UserID.String()).Msg("User deleted")
	utils.Success(c, http.StatusOK, "User deleted successfully", nil)
}

func (uc *UserController) endSessions(c *gin.Context, userID uuid.UUID) bool {
	ended, err := uc.sessions.DeactivateUser(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, err)
		return false
	}
	if ended > 0 {
		log.Info().Str("user_id", userID.String()).Int64("sessions", ended).Msg("User sessions ended")
	}
	return true
}

func (uc *UserController) find(c *gin.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := uc.db.WithContext(c.Request.Context()).
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
