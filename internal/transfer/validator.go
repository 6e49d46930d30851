package transfer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"catalog-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator checks normalized records against the product field rules.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate splits a batch into records ready to commit and records rejected
// with their field errors. Input order is kept in both results.
func (v *Validator) Validate(records []Record) ([]Record, []models.InvalidRecord) {
	valid := make([]Record, 0, len(records))
	invalid := make([]models.InvalidRecord, 0)

	for _, rec := range records {
		errs := v.Check(rec)
		if len(errs) == 0 {
			valid = append(valid, rec)
			continue
		}
		invalid = append(invalid, models.InvalidRecord{
			Index:  rec.Index,
			SKU:    rec.SKU,
			Errors: errs,
		})
	}
	return valid, invalid
}

// Check returns the field errors of one record.
func (v *Validator) Check(rec Record) []models.FieldError {
	errs := append([]models.FieldError(nil), rec.problems...)

	if err := v.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return append(errs, models.FieldError{Field: "record", Message: err.Error()})
		}
		for _, fe := range fieldErrs {
			errs = append(errs, models.FieldError{Field: fe.Field(), Message: message(fe)})
		}
	}

	for i, a := range rec.Assets {
		if a.AssetID == "" && a.URL == "" {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("assets[%d]", i),
				Message: "assetId or url is required",
			})
		}
	}
	for i, c := range rec.Categories {
		if c.CategoryID == "" {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("categories[%d]", i),
				Message: "categoryId is required",
			})
		}
	}
	for i, a := range rec.Attributes {
		if a.Code == "" {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("attributes[%d]", i),
				Message: "attributeCode is required",
			})
		}
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return fe.Field() + " must be a valid UUID"
	}
	return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
}

// RootError reports a file whose top level is not a list of records.
func RootError(err error) []models.InvalidRecord {
	return []models.InvalidRecord{{
		Index:  0,
		Errors: []models.FieldError{{Field: "root", Message: err.Error()}},
	}}
}
