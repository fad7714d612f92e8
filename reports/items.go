package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemView struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"orderId"`
	ProductID   uuid.UUID `json:"productId"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
	ProductName *string   `json:"productName"`
	UnitPrice   *float64  `json:"unitPrice"`
	OwnerID     uuid.UUID `json:"ownerId"`
	OwnerName   *string   `json:"ownerName"`
}

type ItemFilter struct {
	OrderID   *uuid.UUID
	ProductID *uuid.UUID
}

type ItemPage struct {
	Items        []ItemView
	TotalRecords int64
}

const itemColumns = `order_items.id AS id, order_items.order_id AS order_id,
	order_items.product_id AS product_id, order_items.quantity AS quantity,
	order_items.created_at AS created_at, products.name AS product_name,
	products.price AS unit_price, orders.user_id AS owner_id, users.name AS owner_name`

// items starts from order items whose order is visible in scope. Product and
// owner are joined tolerantly.
func items(tx *gorm.DB, scope Scope) *gorm.DB {
	return scope.apply(tx.Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("LEFT JOIN products ON products.id = order_items.product_id").
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Where("orders.is_deleted = ?", false))
}

// ListItems returns the order items of visible orders, newest first.
func (e *Engine) ListItems(ctx context.Context, scope Scope, filter ItemFilter, w Window) (*ItemPage, error) {
	var page ItemPage
	err := e.read(ctx, func(tx *gorm.DB) error {
		base := func() *gorm.DB {
			q := items(tx, scope)
			if filter.OrderID != nil {
				q = q.Where("order_items.order_id = ?", *filter.OrderID)
			}
			if filter.ProductID != nil {
				q = q.Where("order_items.product_id = ?", *filter.ProductID)
			}
			return q
		}

		if err := base().Count(&page.TotalRecords).Error; err != nil {
			return fmt.Errorf("count order items: %w", err)
		}
		if page.TotalRecords == 0 {
			return nil
		}

		if err := base().Select(itemColumns).
			Order("order_items.created_at DESC").Order("order_items.id").
			Offset(w.Offset).Limit(w.Limit).
			Scan(&page.Items).Error; err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (e *Engine) ItemDetail(ctx context.Context, scope Scope, itemID uuid.UUID) (*ItemView, error) {
	var rows []ItemView
	if err := items(e.db.WithContext(ctx), scope).
		Where("order_items.id = ?", itemID).
		Select(itemColumns).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("order item detail: %w", err)
	}
	if len(rows) == 0 {
		return nil, utils.NotFound("Order item not found")
	}
	return &rows[0], nil
}
