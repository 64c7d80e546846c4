package validation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// MandatoryFieldsValidator checks the struct-level requirements of an event
// and rejects occurred dates after today
type MandatoryFieldsValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewMandatoryFieldsValidator creates a MandatoryFieldsValidator
func NewMandatoryFieldsValidator(now func() time.Time) *MandatoryFieldsValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if now == nil {
		now = time.Now
	}
	return &MandatoryFieldsValidator{validate: v, now: now}
}

// Validate implements stockledger.Validator
func (m *MandatoryFieldsValidator) Validate(_ context.Context, event *stockledger.Event) error {
	if err := m.validate.Struct(event); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return err
		}
		field := strings.TrimPrefix(fieldErrs[0].Namespace(), "Event.")
		if fieldErrs[0].Tag() == "min" {
			return NewValidationError(CodeMandatoryFieldMissing, field, "%s must contain at least one entry", field)
		}
		return NewValidationError(CodeMandatoryFieldMissing, field, "%s is required", field)
	}

	y, mo, d := m.now().UTC().Date()
	tomorrow := time.Date(y, mo, d+1, 0, 0, 0, 0, time.UTC)
	for i := range event.LineItems {
		occurred := event.LineItems[i].OccurredDate
		oy, omo, od := occurred.Date()
		if !time.Date(oy, omo, od, 0, 0, 0, 0, time.UTC).Before(tomorrow) {
			return NewValidationError(CodeOccurredDateInFuture, lineField(i, "occurredDate"),
				"occurred date %s is in the future", occurred.Format(time.DateOnly))
		}
	}
	return nil
}
