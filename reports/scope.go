package reports

import (
	"strings"

	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Viewer is the authenticated caller a report is produced for.
type Viewer struct {
	UserID uuid.UUID
	Role   models.Role
}

// Scope restricts order rows to one owner. A nil UserID means every order.
type Scope struct {
	UserID *uuid.UUID
}

// ScopeFor applies role-based visibility. Admins see every order, or only
// requestedUserID's orders when it is set; everyone else sees only their own
// orders and requestedUserID is ignored.
func ScopeFor(viewer Viewer, requestedUserID string) (Scope, error) {
	if viewer.Role != models.RoleAdmin {
		id := viewer.UserID
		return Scope{UserID: &id}, nil
	}

	requestedUserID = strings.TrimSpace(requestedUserID)
	if requestedUserID == "" {
		return Scope{}, nil
	}
	id, err := uuid.Parse(requestedUserID)
	if err != nil {
		return Scope{}, utils.ErrInvalidUserID
	}
	return Scope{UserID: &id}, nil
}

// Self scopes to the viewer's own orders whatever their role.
func Self(viewer Viewer) Scope {
	id := viewer.UserID
	return Scope{UserID: &id}
}

func (s Scope) apply(db *gorm.DB) *gorm.DB {
	if s.UserID == nil {
		return db
	}
	return db.Where("orders.user_id = ?", *s.UserID)
}
