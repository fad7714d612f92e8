package validators

// OrderListRequest filters a role-scoped order listing. UserID is parsed by
// the handler so a malformed value can be reported as InvalidUserId.
type OrderListRequest struct {
	Pagination
	UserID    string `json:"userId"`
	ProductID string `json:"productId" validate:"omitempty,uuid"`
}

type CreateOrderRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId" validate:"required,uuid"`
}

type OrderDetailRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type OrderItemListRequest struct {
	Pagination
	OrderID   string `json:"orderId" validate:"omitempty,uuid"`
	ProductID string `json:"productId" validate:"omitempty,uuid"`
}

type CreateOrderItemRequest struct {
	OrderID   string `json:"orderId" validate:"required,uuid"`
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type OrderItemDetailRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}
