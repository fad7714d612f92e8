package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleUser    Role = "User"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Mobile       string     `gorm:"not null" json:"mobile"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         Role       `gorm:"type:varchar(16);default:'User';not null" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	IsDeleted    bool       `gorm:"default:false;index" json:"isDeleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedBy    *uuid.UUID `gorm:"type:uuid" json:"createdBy,omitempty"`
	CreatedIP    string     `json:"createdIP,omitempty"`
	ModifiedBy   *uuid.UUID `gorm:"type:uuid" json:"modifiedBy,omitempty"`
	ModifiedIP   string     `json:"modifiedIP,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
