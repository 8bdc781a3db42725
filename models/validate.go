package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// Input structs share gin's "binding" tag so the same rules run at the edge and in the model layer.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

// RegisterValidations installs the custom tags used by input structs on v.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return utils.ValidatePhoneNumber(fl.Field().String(), config.PhoneRegion()) == nil
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// validateInput runs struct tags and converts failures into a validation AppError.
func validateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		appErr := utils.NewValidationError("invalid input")
		for field, tag := range utils.ProcessValidationErrors(err) {
			appErr = appErr.WithDetail(field, tag)
		}
		return appErr
	}
	return nil
}
