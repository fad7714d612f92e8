package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"productId"`
	IsDeleted bool      `gorm:"default:false" json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one line of a multi-product order.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"productId"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
