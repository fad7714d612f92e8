package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/reports"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/Krish-Depani/order-session-api/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// OrderController serves the role-scoped order reports. Report endpoints
// answer 404 when nothing matches the caller's scope and filters.
type OrderController struct {
	db      *gorm.DB
	reports *reports.Engine
}

func NewOrderController(db *gorm.DB, engine *reports.Engine) *OrderController {
	return &OrderController{db: db, reports: engine}
}

var errNoOrders = utils.NotFound("No orders found")

// GetOrders lists every order visible to the caller.
func (oc *OrderController) GetOrders(c *gin.Context) {
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	scope, err := reports.ScopeFor(viewer, "")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	result, err := oc.reports.ListOrders(c.Request.Context(), scope, reports.OrderFilter{}, reports.Window{Limit: -1})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if result.TotalRecords == 0 {
		utils.Fail(c, errNoOrders)
		return
	}
	utils.Success(c, http.StatusOK, "Orders retrieved successfully", result.Orders)
}

func (oc *OrderController) List(c *gin.Context) {
	req, ok := validators.Bind[validators.OrderListRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	scope, err := reports.ScopeFor(viewer, req.UserID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	productID, err := optionalID(req.ProductID, "productId")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	oc.respondOrders(c, scope, reports.OrderFilter{ProductID: productID}, req.Pagination)
}

func (oc *OrderController) MyOrders(c *gin.Context) {
	req, ok := validators.Bind[validators.Pagination](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}

	oc.respondOrders(c, reports.Self(viewer), reports.OrderFilter{}, *req)
}

func (oc *OrderController) respondOrders(c *gin.Context, scope reports.Scope, filter reports.OrderFilter, p validators.Pagination) {
	page, limit := p.Window()
	result, err := oc.reports.ListOrders(c.Request.Context(), scope, filter, reports.Window{Offset: p.Offset(), Limit: limit})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if result.TotalRecords == 0 {
		utils.Fail(c, errNoOrders)
		return
	}
	utils.Page(c, "Orders retrieved successfully", emptyIfNil(result.Orders), utils.NewMeta(page, limit, result.TotalRecords), nil)
}

// ByUser lists orders with their owner and line items.
func (oc *OrderController) ByUser(c *gin.Context) {
	oc.respondLines(c, "Orders retrieved successfully", oc.reports.OrdersByUser)
}

// Summary lists order lines and totals the whole matched set.
func (oc *OrderController) Summary(c *gin.Context) {
	oc.respondLines(c, "Order summary retrieved successfully", oc.reports.OrderSummary)
}

type lineReport func(context.Context, reports.Scope, reports.Window) (*reports.LinePage, error)

func (oc *OrderController) respondLines(c *gin.Context, message string, run lineReport) {
	req, ok := validators.Bind[validators.OrderListRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	scope, err := reports.ScopeFor(viewer, req.UserID)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	page, limit := req.Window()
	result, err := run(c.Request.Context(), scope, reports.Window{Offset: req.Offset(), Limit: limit})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if result.TotalRecords == 0 {
		utils.Fail(c, errNoOrders)
		return
	}

	var summary interface{}
	if result.Summary != nil {
		summary = result.Summary
	}
	utils.Page(c, message, emptyIfNil(result.Lines), utils.NewMeta(page, limit, result.TotalRecords), summary)
}

// Create places an order for a product. Only an Admin may order on behalf
// of another user.
func (oc *OrderController) Create(c *gin.Context) {
	req, ok := validators.Bind[validators.CreateOrderRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	userID := viewer.UserID
	if viewer.Role == models.RoleAdmin && req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			utils.Fail(c, utils.ErrInvalidUserID)
			return
		}
		userID = id
	}
	productID, err := parseID(req.ProductID, "productId")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	if userID != viewer.UserID {
		if err := exists(oc.db.WithContext(ctx), &models.User{}, "id = ? AND is_deleted = ?", userID, false); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = utils.ErrUserNotFound
			}
			utils.Fail(c, err)
			return
		}
	}
	if err := exists(oc.db.WithContext(ctx), &models.Product{}, orderableProduct, productID, false, true); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = utils.NotFound("Product not found")
		}
		utils.Fail(c, err)
		return
	}

	order := models.Order{UserID: userID, ProductID: productID}
	if err := oc.db.WithContext(ctx).Create(&order).Error; err != nil {
		utils.Fail(c, fmt.Errorf("create order: %w", err))
		return
	}

	log.Info().Str("order_id", order.ID.String()).Str("user_id", userID.String()).Msg("Order created")
	utils.Success(c, http.StatusCreated, "Order created successfully", order)
}

func (oc *OrderController) Detail(c *gin.Context) {
	req, ok := validators.Bind[validators.OrderDetailRequest](c)
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
	scope, err := reports.ScopeFor(viewer, "")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	detail, err := oc.reports.Detail(c.Request.Context(), scope, id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Order retrieved successfully", detail)
}

// orderableProduct matches a live product that may be ordered.
const orderableProduct = "id = ? AND is_deleted = ? AND is_active = ?"

// exists returns gorm.ErrRecordNotFound when no row of model matches.
func exists(db *gorm.DB, model interface{}, query string, args ...interface{}) error {
	var n int64
	if err := db.Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
