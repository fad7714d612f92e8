package controllers

import (
	"errors"
	"strings"

	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/reports"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keys the access guard sets on the gin context.
const (
	ctxUserID    = "userID"
	ctxRole      = "role"
	ctxSessionID = "sessionID"
)

var errNoIdentity = errors.New("handler reached without an authenticated identity")

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) (string, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", utils.ErrMissingAuthHeader
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", utils.ErrInvalidTokenFormat
	}
	return parts[1], nil
}

// CurrentViewer returns the identity the access guard attached to c.
func CurrentViewer(c *gin.Context) (reports.Viewer, bool) {
	userID, ok := c.Get(ctxUserID)
	if !ok {
		return reports.Viewer{}, false
	}
	id, ok := userID.(uuid.UUID)
	if !ok {
		return reports.Viewer{}, false
	}
	role, _ := c.Get(ctxRole)
	r, _ := role.(models.Role)
	return reports.Viewer{UserID: id, Role: r}, true
}

func mustViewer(c *gin.Context) (reports.Viewer, bool) {
	viewer, ok := CurrentViewer(c)
	if !ok {
		utils.Fail(c, errNoIdentity)
	}
	return viewer, ok
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, utils.Validation("Invalid " + field)
	}
	return id, nil
}

func optionalID(raw, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
