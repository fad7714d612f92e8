package validators

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Pagination struct {
	Page  int `json:"page" validate:"omitempty,min=1"`
	Limit int `json:"limit" validate:"omitempty,min=1,max=100"`
}

// Window returns the page and limit with defaults applied.
func (p Pagination) Window() (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return page, limit
}

func (p Pagination) Offset() int {
	page, limit := p.Window()
	return (page - 1) * limit
}
