package utils

import (
	"context"

	"github.com/amankumarsingh77/media-muxer/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("muxformat", func(fl validator.FieldLevel) bool {
		return models.Format(fl.Field().String()).Valid()
	})
}

// ValidateStruct validates s against its `validate` tags.
func ValidateStruct(ctx context.Context, s interface{}) error {
	return validate.StructCtx(ctx, s)
}
