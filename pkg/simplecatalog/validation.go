package simplecatalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Release years accepted for catalog entries.
const (
	MinReleaseYear       = 1900
	ReleaseYearLookahead = 5
)

// Rating bounds.
const (
	MinRating = 0
	MaxRating = 10
)

func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("releaseyear", func(fl validator.FieldLevel) bool {
		year := int(fl.Field().Int())
		return year >= MinReleaseYear && year <= now().Year()+ReleaseYearLookahead
	})
	return v
}

// normalizeMovieRequest trims free-text fields in place.
func normalizeMovieRequest(req *CreateMovieRequest) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Genre = strings.TrimSpace(req.Genre)
	req.ImageKey = strings.TrimSpace(req.ImageKey)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
}

// validateStruct runs v over s and converts failures into a *ValidationError.
func validateStruct(v *validator.Validate, now func() time.Time, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe, now),
		})
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError, now func() time.Time) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "releaseyear":
		return fmt.Sprintf("releaseYear must be between %d and %d", MinReleaseYear, now().Year()+ReleaseYearLookahead)
	case "gte", "lte":
		if fe.Field() == "rating" {
			return fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating)
		}
		return fmt.Sprintf("%s is out of range", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
