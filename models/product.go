package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID         uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	Name       string     `gorm:"not null;uniqueIndex:idx_product_name_color" json:"name"`
	Color      string     `gorm:"not null;uniqueIndex:idx_product_name_color" json:"color"`
	Price      float64    `gorm:"not null" json:"price"`
	IsActive   bool       `gorm:"default:true" json:"isActive"`
	IsDeleted  bool       `gorm:"default:false" json:"isDeleted"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid" json:"createdBy,omitempty"`
	CreatedIP  string     `json:"createdIP,omitempty"`
	ModifiedBy *uuid.UUID `gorm:"type:uuid" json:"modifiedBy,omitempty"`
	ModifiedIP string     `json:"modifiedIP,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
