package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"pgvplaning/backend/internal/calendar"
)

// RegisterValidations adds the custom tags used in binding rules:
//   - frdate: DD/MM/YYYY
//   - datekey: YYYY-MM-DD
//   - notblank: not empty once trimmed
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("frdate", func(fl validator.FieldLevel) bool {
		_, ok := calendar.ParseFrenchDate(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return err
	}
	return v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		_, ok := calendar.ParseDateKey(fl.Field().String())
		return ok
	})
}
