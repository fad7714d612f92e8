package validators

type ProductListRequest struct {
	Pagination
	Name     string   `json:"name" validate:"omitempty,max=100"`
	Color    string   `json:"color" validate:"omitempty,max=50"`
	Price    *float64 `json:"price" validate:"omitempty,gte=0"`
	IsActive *bool    `json:"isActive"`
}

type CreateProductRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color string  `json:"color" validate:"required,max=50"`
	Price float64 `json:"price" validate:"required,gt=0"`
}

type BulkCreateProductRequest struct {
	Products []CreateProductRequest `json:"products" validate:"required,min=1,max=500,dive"`
}

type TopSellingRequest struct {
	Pagination
}
