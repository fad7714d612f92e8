package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSession is the server-side record of a login. A user owns at most one
// row; a new login overwrites it.
type UserSession struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	UserID                uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Role                  Role       `gorm:"type:varchar(16);not null" json:"role"`
	AccessToken           string     `gorm:"index;not null" json:"-"`
	RefreshToken          string     `gorm:"index;not null" json:"-"`
	AccessTokenExpiresAt  time.Time  `gorm:"not null" json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time  `gorm:"index;not null" json:"refreshTokenExpiresAt"`
	LoginAt               time.Time  `json:"loginAt"`
	LogoutAt              *time.Time `json:"logoutAt,omitempty"`
	IPAddress             string     `json:"ipAddress"`
	UserAgent             string     `json:"userAgent"`
	IsActive              bool       `gorm:"default:true" json:"isActive"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (s *UserSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
