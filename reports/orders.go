package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engine runs role-scoped order listings and aggregate reports.
type Engine struct {
	db     *gorm.DB
	txOpts *sql.TxOptions
}

func NewEngine(db *gorm.DB) *Engine {
	e := &Engine{db: db}
	// Keep the data and summary branches on one snapshot where the
	// database supports it.
	if db.Dialector.Name() == "postgres" {
		e.txOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return e
}

type ProductRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type ItemRef struct {
	ID        uuid.UUID `json:"id"`
	Quantity  int       `json:"quantity"`
	ProductID uuid.UUID `json:"productId"`
}

type OrderView struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Product   ProductRef `json:"product"`
	User      UserRef    `json:"user"`
}

// OrderLine is one order joined with one of its items. Item, Product and
// User are nil when the referenced row does not exist.
type OrderLine struct {
	OrderID   uuid.UUID   `json:"orderId"`
	CreatedAt time.Time   `json:"createdAt"`
	User      *UserRef    `json:"user"`
	Item      *ItemRef    `json:"orderItem"`
	Product   *ProductRef `json:"product"`
}

type Summary struct {
	TotalOrders       int64   `json:"totalOrders"`
	TotalQuantitySold int64   `json:"totalQuantitySold"`
	TotalRevenue      float64 `json:"totalRevenue"`
}

type OrderPage struct {
	Orders       []OrderView
	TotalRecords int64
}

type LinePage struct {
	Lines        []OrderLine
	TotalRecords int64
	Summary      *Summary
}

type OrderDetail struct {
	OrderID     uuid.UUID  `json:"orderId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UserID      uuid.UUID  `json:"userId"`
	Name        string     `json:"name"`
	ProductID   *uuid.UUID `json:"productId"`
	ProductName *string    `json:"productName"`
}

type Window struct {
	Offset int
	Limit  int
}

type OrderFilter struct {
	ProductID *uuid.UUID
}

type orderRow struct {
	OrderID      uuid.UUID
	CreatedAt    time.Time
	ProductID    uuid.UUID
	ProductName  string
	ProductPrice float64
	UserID       uuid.UUID
	UserName     string
	UserEmail    string
}

// ListOrders returns visible orders joined with their product and user.
// Orders whose product or user is missing are dropped.
func (e *Engine) ListOrders(ctx context.Context, scope Scope, filter OrderFilter, w Window) (*OrderPage, error) {
	var page OrderPage
	err := e.read(ctx, func(tx *gorm.DB) error {
		base := func() *gorm.DB {
			q := scope.apply(tx.Table("orders").
				Joins("JOIN products ON products.id = orders.product_id").
				Joins("JOIN users ON users.id = orders.user_id").
				Where("orders.is_deleted = ?", false))
			if filter.ProductID != nil {
				q = q.Where("orders.product_id = ?", *filter.ProductID)
			}
			return q
		}

		if err := base().Count(&page.TotalRecords).Error; err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		if page.TotalRecords == 0 {
			return nil
		}

		var rows []orderRow
		if err := base().
			Select(`orders.id AS order_id, orders.created_at AS created_at,
				products.id AS product_id, products.name AS product_name, products.price AS product_price,
				users.id AS user_id, users.name AS user_name, users.email AS user_email`).
			Order("orders.created_at DESC").Order("orders.id").
			Offset(w.Offset).Limit(w.Limit).
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		page.Orders = make([]OrderView, len(rows))
		for i, r := range rows {
			page.Orders[i] = OrderView{
				ID:        r.OrderID,
				CreatedAt: r.CreatedAt,
				Product:   ProductRef{ID: r.ProductID, Name: r.ProductName, Price: r.ProductPrice},
				User:      UserRef{ID: r.UserID, Name: r.UserName, Email: r.UserEmail},
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

type lineRow struct {
	OrderID      uuid.UUID
	CreatedAt    time.Time
	UserID       *uuid.UUID
	UserName     *string
	UserEmail    *string
	ItemID       *uuid.UUID
	ItemQuantity *int
	ItemProduct  *uuid.UUID
	ProductID    *uuid.UUID
	ProductName  *string
	ProductPrice *float64
}

type aggRow struct {
	TotalRecords      int64
	TotalOrders       int64
	TotalQuantitySold int64
	TotalRevenue      float64
}

const lineColumns = `orders.id AS order_id, orders.created_at AS created_at,
	users.id AS user_id, users.name AS user_name, users.email AS user_email,
	order_items.id AS item_id, order_items.quantity AS item_quantity, order_items.product_id AS item_product,
	products.id AS product_id, products.name AS product_name, products.price AS product_price`

// OrdersByUser lists visible orders with their owner and each of their
// items. Orders without an owner are dropped; orders without items are kept
// with a nil item.
func (e *Engine) OrdersByUser(ctx context.Context, scope Scope, w Window) (*LinePage, error) {
	return e.lines(ctx, scope, w, false, func(tx *gorm.DB) *gorm.DB {
		return tx.Table("orders").
			Joins("JOIN users ON users.id = orders.user_id").
			Joins("LEFT JOIN order_items ON order_items.order_id = orders.id").
			Joins("LEFT JOIN products ON products.id = order_items.product_id")
	})
}

// OrderSummary lists visible orders at line-item granularity and totals the
// whole matched set in the same read. Every join is tolerant so orphaned
// references never drop quantities from the totals.
func (e *Engine) OrderSummary(ctx context.Context, scope Scope, w Window) (*LinePage, error) {
	return e.lines(ctx, scope, w, true, func(tx *gorm.DB) *gorm.DB {
		return tx.Table("orders").
			Joins("LEFT JOIN users ON users.id = orders.user_id").
			Joins("LEFT JOIN order_items ON order_items.order_id = orders.id").
			Joins("LEFT JOIN products ON products.id = order_items.product_id")
	})
}

func (e *Engine) lines(ctx context.Context, scope Scope, w Window, withSummary bool, from func(*gorm.DB) *gorm.DB) (*LinePage, error) {
	var page LinePage
	err := e.read(ctx, func(tx *gorm.DB) error {
		base := func() *gorm.DB {
			return scope.apply(from(tx).Where("orders.is_deleted = ?", false))
		}

		var agg aggRow
		if err := base().Select(`COUNT(*) AS total_records,
			COUNT(DISTINCT orders.id) AS total_orders,
			COALESCE(SUM(order_items.quantity), 0) AS total_quantity_sold,
			COALESCE(SUM(order_items.quantity * products.price), 0) AS total_revenue`).
			Scan(&agg).Error; err != nil {
			return fmt.Errorf("aggregate order lines: %w", err)
		}
		page.TotalRecords = agg.TotalRecords
		if withSummary {
			page.Summary = &Summary{
				TotalOrders:       agg.TotalOrders,
				TotalQuantitySold: agg.TotalQuantitySold,
				TotalRevenue:      agg.TotalRevenue,
			}
		}
		if agg.TotalRecords == 0 {
			return nil
		}

		var rows []lineRow
		if err := base().Select(lineColumns).
			Order("orders.created_at DESC").Order("orders.id").Order("order_items.id").
			Offset(w.Offset).Limit(w.Limit).
			Scan(&rows).Error; err != nil {
			return fmt.Errorf("list order lines: %w", err)
		}

		page.Lines = make([]OrderLine, len(rows))
		for i, r := range rows {
			page.Lines[i] = r.shape()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r lineRow) shape() OrderLine {
	line := OrderLine{OrderID: r.OrderID, CreatedAt: r.CreatedAt}
	if r.UserID != nil {
		line.User = &UserRef{ID: *r.UserID, Name: deref(r.UserName), Email: deref(r.UserEmail)}
	}
	if r.ItemID != nil {
		item := &ItemRef{ID: *r.ItemID, Quantity: deref(r.ItemQuantity)}
		if r.ItemProduct != nil {
			item.ProductID = *r.ItemProduct
		}
		line.Item = item
	}
	if r.ProductID != nil {
		line.Product = &ProductRef{ID: *r.ProductID, Name: deref(r.ProductName), Price: deref(r.ProductPrice)}
	}
	return line
}

type detailRow struct {
	OrderID     uuid.UUID
	CreatedAt   time.Time
	UserID      uuid.UUID
	UserName    *string
	ProductID   *uuid.UUID
	ProductName *string
}

// Detail returns one visible order with its owner's and product's names.
func (e *Engine) Detail(ctx context.Context, scope Scope, orderID uuid.UUID) (*OrderDetail, error) {
	var rows []detailRow
	err := scope.apply(e.db.WithContext(ctx).Table("orders").
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Joins("LEFT JOIN products ON products.id = orders.product_id").
		Where("orders.id = ? AND orders.is_deleted = ?", orderID, false)).
		Select(`orders.id AS order_id, orders.created_at AS created_at, orders.user_id AS user_id,
			users.name AS user_name, products.id AS product_id, products.name AS product_name`).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("order detail: %w", err)
	}
	if len(rows) == 0 {
		return nil, utils.NotFound("Order not found")
	}

	row := rows[0]
	return &OrderDetail{
		OrderID:     row.OrderID,
		CreatedAt:   row.CreatedAt,
		UserID:      row.UserID,
		Name:        deref(row.UserName),
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
	}, nil
}

func (e *Engine) read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return e.db.WithContext(ctx).Transaction(fn, e.txOpts)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
