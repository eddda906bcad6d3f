// Package validate собирает общий валидатор входных структур.
// Помимо стандартных тегов регистрируется правило cnmobile для
// мобильных номеров формата 1[3-9]xxxxxxxxx, который требует
// веб-форма заявки.
package validate

import (
	"regexp"

	"github.com/go-playground/validator"
)

var mobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

// New возвращает валидатор с зарегистрированными доменными правилами.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cnmobile", func(fl validator.FieldLevel) bool {
		return mobileRe.MatchString(fl.Field().String())
	})
	return v
}
