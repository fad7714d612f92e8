package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Krish-Depani/order-session-api/models"
	"github.com/Krish-Depani/order-session-api/reports"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/Krish-Depani/order-session-api/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ProductController struct {
	db      *gorm.DB
	reports *reports.Engine
}

func NewProductController(db *gorm.DB, engine *reports.Engine) *ProductController {
	return &ProductController{db: db, reports: engine}
}

func (pc *ProductController) GetProductStatus(c *gin.Context) {
	utils.Success(c, http.StatusOK, "Product service is up", nil)
}

func (pc *ProductController) List(c *gin.Context) {
	req, ok := validators.Bind[validators.ProductListRequest](c)
	if !ok {
		return
	}
	page, limit := req.Window()

	query := pc.db.WithContext(c.Request.Context()).Model(&models.Product{}).Where("is_deleted = ?", false)
	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if color := strings.TrimSpace(req.Color); color != "" {
		query = query.Where("LOWER(color) LIKE ?", "%"+strings.ToLower(color)+"%")
	}
	if req.Price != nil {
		query = query.Where("price = ?", *req.Price)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Fail(c, fmt.Errorf("count products: %w", err))
		return
	}
	if total == 0 {
		utils.Fail(c, utils.NotFound("No products found"))
		return
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Order("id").Offset(req.Offset()).Limit(limit).Find(&products).Error; err != nil {
		utils.Fail(c, fmt.Errorf("list products: %w", err))
		return
	}

	utils.Page(c, "Products retrieved successfully", products, utils.NewMeta(page, limit, total), nil)
}

func (pc *ProductController) Create(c *gin.Context) {
	req, ok := validators.Bind[validators.CreateProductRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}

	product := newProduct(*req, viewer.UserID, c.ClientIP())
	if err := pc.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		utils.Fail(c, productWriteError(err))
		return
	}

	utils.Success(c, http.StatusCreated, "Product created successfully", product)
}

// BulkCreate inserts every product or none of them.
func (pc *ProductController) BulkCreate(c *gin.Context) {
	req, ok := validators.Bind[validators.BulkCreateProductRequest](c)
	if !ok {
		return
	}
	viewer, ok := mustViewer(c)
	if !ok {
		return
	}

	products := make([]models.Product, len(req.Products))
	for i, p := range req.Products {
		products[i] = newProduct(p, viewer.UserID, c.ClientIP())
	}

	err := pc.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&products, 100).Error
	})
	if err != nil {
		utils.Fail(c, productWriteError(err))
		return
	}

	log.Info().Int("count", len(products)).Str("created_by", viewer.UserID.String()).Msg("Products bulk created")
	utils.Success(c, http.StatusCreated, "Products created successfully", products)
}

func (pc *ProductController) Summary(c *gin.Context) {
	summary, err := pc.reports.ProductSummary(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if len(summary) == 0 {
		utils.Fail(c, utils.NotFound("No products found"))
		return
	}
	utils.Success(c, http.StatusOK, "Product summary retrieved successfully", summary)
}

func (pc *ProductController) TopSelling(c *gin.Context) {
	req, ok := validators.Bind[validators.TopSellingRequest](c)
	if !ok {
		return
	}
	page, limit := req.Window()

	result, err := pc.reports.TopSelling(c.Request.Context(), reports.Window{Offset: req.Offset(), Limit: limit})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if result.TotalRecords == 0 {
		utils.Fail(c, utils.NotFound("No sales found"))
		return
	}

	utils.Page(c, "Top selling products retrieved successfully", result.Products, utils.NewMeta(page, limit, result.TotalRecords), nil)
}

func newProduct(req validators.CreateProductRequest, createdBy uuid.UUID, ip string) models.Product {
	return models.Product{
		Name:      strings.TrimSpace(req.Name),
		Color:     strings.TrimSpace(req.Color),
		Price:     req.Price,
		IsActive:  true,
		CreatedBy: &createdBy,
		CreatedIP: ip,
	}
}

func productWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return utils.Conflict("A product with this name and color already exists")
	}
	return fmt.Errorf("create product: %w", err)
}
