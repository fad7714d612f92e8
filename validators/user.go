package validators

type UserListRequest struct {
	Pagination
	Name     string `json:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,max=254"`
	IsActive *bool  `json:"isActive"`
	Sort     string `json:"sort" validate:"omitempty,oneof=Ascending Descending"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"required,numeric,min=7,max=15"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=Admin Manager User"`
}

type UpdateUserRequest struct {
	ID       string  `json:"id" validate:"required,uuid"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Mobile   *string `json:"mobile" validate:"omitempty,numeric,min=7,max=15"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=Admin Manager User"`
	IsActive *bool   `json:"isActive"`
}
