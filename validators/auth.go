package validators

import (
	"errors"
	"io"
	"net/http"

	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

func Validate(data interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(data)
	if err != nil {
		if errors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errors {
				validationErrors = append(validationErrors, ValidationError{
					Field: e.Namespace(),
					Tag:   e.Tag(),
					Value: e.Param(),
				})
			}
		}
	}

	return validationErrors
}

// Bind decodes the JSON body into T and validates it, answering 400 itself
// when either step fails. An empty body decodes to the zero T.
func Bind[T any](c *gin.Context) (*T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, utils.Response{
			Message: "Invalid request payload",
			Error:   utils.CodeValidationFailed,
		})
		return nil, false
	}

	if errs := Validate(req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, utils.Response{
			Message: "Validation failed",
			Error:   utils.CodeValidationFailed,
			Errors:  errs,
		})
		return nil, false
	}

	return &req, true
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func ValidateLoginRequest(c *gin.Context) (*LoginRequest, bool) {
	return Bind[LoginRequest](c)
}

func ValidateRefreshTokenRequest(c *gin.Context) (*RefreshTokenRequest, bool) {
	return Bind[RefreshTokenRequest](c)
}
