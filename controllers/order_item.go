package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/reports"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/Krish-Depani/order-session-api/validators"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OrderItemController manages the lines of orders. Non-Admin callers only
// see and extend their own orders.
type OrderItemController struct {
	db      *gorm.DB
	reports *reports.Engine
}

func NewOrderItemController(db *gorm.DB, engine *reports.Engine) *OrderItemController {
	return &OrderItemController{db: db, reports: engine}
}

func (ic *OrderItemController) GetOrderItemStatus(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Order item service is up", nil)
}

func (ic *OrderItemController) List(c *gin.Context) {
	req, ok := validators.Bind[validators.OrderItemListRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	scope, err := reports.ScopeFor(viewer, "")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	var filter reports.ItemFilter
	if filter.OrderID, err = optionalID(req.OrderID, "orderId"); err != nil {
		utils.Fail(c, err)
		return
	}
	if filter.ProductID, err = optionalID(req.ProductID, "productId"); err != nil {
		utils.Fail(c, err)
		return
	}

	page, limit := req.Window()
	result, err := ic.reports.ListItems(c.Request.Context(), scope, filter, reports.Window{Offset: req.Offset(), Limit: limit})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if result.TotalRecords == 0 {
		utils.Fail(c, utils.NotFound("No order items found"))
		return
	}
	utils.Page(c, "Order items retrieved successfully", emptyIfNil(result.Items), utils.NewMeta(page, limit, result.TotalRecords), nil)
}

func (ic *OrderItemController) Create(c *gin.Context) {
	req, ok := validators.Bind[validators.CreateOrderItemRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	orderID, err := parseID(req.OrderID, "orderId")
	if err != nil {
		utils.Fail(c, err)
		return
	}
	productID, err := parseID(req.ProductID, "productId")
	if err != nil {
		utils.Fail(c, err)
		return
	}

	orderQuery := "id = ? AND is_deleted = ?"
	orderArgs := []interface{}{orderID, false}
	if viewer.Role != models.RoleAdmin {
		orderQuery += " AND user_id = ?"
		orderArgs = append(orderArgs, viewer.UserID)
	}
	if err := exists(ic.db.WithContext(ctx), &models.Order{}, orderQuery, orderArgs...); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = utils.NotFound("Order not found")
		}
		utils.Fail(c, err)
		return
	}
	if err := exists(ic.db.WithContext(ctx), &models.Product{}, orderableProduct, productID, false, true); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = utils.NotFound("Product not found")
		}
		utils.Fail(c, err)
		return
	}

	item := models.OrderItem{OrderID: orderID, ProductID: productID, Quantity: req.Quantity}
	if err := ic.db.WithContext(ctx).Create(&item).Error; err != nil {
		utils.Fail(c, fmt.Errorf("create order item: %w", err))
		return
	}
	utils.Success(c, http.StatusCreated, "Order item created successfully", item)
}

func (ic *OrderItemController) Detail(c *gin.Context) {
	req, ok := validators.Bind[validators.OrderItemDetailRequest](c)
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

	item, err := ic.reports.ItemDetail(c.Request.Context(), scope, id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Order item retrieved successfully", item)
}
