package checkout

import (
	"reflect"
	"strings"

	pkgerrors "github.com/Piotrek1987/ds-online-shop/pkg/errors"
	"github.com/go-playground/validator/v10"
)

const cardNumberLength = 16

// PaymentForm is the checkout form submitted by the shopper.
type PaymentForm struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,max=320"`
	Address string `json:"address" validate:"required,max=500"`
	Card    string `json:"card" validate:"required"`
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// validate reports missing fields first; the card format is checked separately
// so the caller can tell the two rejections apart.
func (f PaymentForm) validate() error {
	if err := formValidator.Struct(f); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "please fill in all payment fields").WithDetails(details)
	}
	return nil
}

// ValidCardNumber reports whether card is exactly sixteen ASCII digits.
func ValidCardNumber(card string) bool {
	if len(card) != cardNumberLength {
		return false
	}
	for i := 0; i < len(card); i++ {
		if card[i] < '0' || card[i] > '9' {
			return false
		}
	}
	return true
}
