package http

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators agrega reglas propias al motor de binding de Gin.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("phone", validPhoneNumber)
	}
}

// validPhoneNumber acepta 10 a 15 digitos, ignorando guiones y espacios.
func validPhoneNumber(fl validator.FieldLevel) bool {
	stripped := strings.NewReplacer("-", "", " ", "").Replace(fl.Field().String())
	if len(stripped) < 10 || len(stripped) > 15 {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
