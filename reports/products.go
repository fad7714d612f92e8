package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ColorSummary struct {
	Color         string  `json:"color"`
	TotalProducts int64   `json:"totalProducts"`
	AvgPrice      float64 `json:"avgPrice"`
}

// ProductSummary groups active, non-deleted products by color.
func (e *Engine) ProductSummary(ctx context.Context) ([]ColorSummary, error) {
	var rows []ColorSummary
	if err := e.db.WithContext(ctx).Table("products").
		Select("color, COUNT(*) AS total_products, AVG(price) AS avg_price").
		Where("is_deleted = ? AND is_active = ?", false, true).
		Group("color").
		Order("color").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("product summary: %w", err)
	}
	return rows, nil
}

type TopSeller struct {
	ProductID  uuid.UUID `json:"productId"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	TotalQty   int64     `json:"totalQty"`
	OrderCount int64     `json:"orderCount"`
}

type TopSellerPage struct {
	Products     []TopSeller
	TotalRecords int64
}

// TopSelling ranks products by quantity sold across all order items. Items
// whose product no longer exists are not ranked.
func (e *Engine) TopSelling(ctx context.Context, w Window) (*TopSellerPage, error) {
	var page TopSellerPage
	err := e.read(ctx, func(tx *gorm.DB) error {
		base := func() *gorm.DB {
			return tx.Table("order_items").
				Joins("JOIN products ON products.id = order_items.product_id")
		}

		if err := base().Distinct("order_items.product_id").Count(&page.TotalRecords).Error; err != nil {
			return fmt.Errorf("count top sellers: %w", err)
		}
		if page.TotalRecords == 0 {
			return nil
		}

		if err := base().
			Select(`order_items.product_id AS product_id, products.name AS name, products.price AS price,
				SUM(order_items.quantity) AS total_qty, COUNT(*) AS order_count`).
			Group("order_items.product_id, products.name, products.price").
			Order("total_qty DESC").Order("order_items.product_id").
			Offset(w.Offset).Limit(w.Limit).
			Scan(&page.Products).Error; err != nil {
			return fmt.Errorf("list top sellers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}
