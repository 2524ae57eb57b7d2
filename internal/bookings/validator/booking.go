package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"stylo/pkg/clock"
	"stylo/pkg/logger"
	"stylo/pkg/model"
	"stylo/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

var dniRegex = regexp.MustCompile(`^\d{8}$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the AppError details map.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	clock    clock.Clock
	logger   *logger.Logger
}

func NewBookingValidator(clk clock.Clock, log *logger.Logger) *BookingValidator {
	v := validator.New()
	bv := &BookingValidator{validate: v, clock: clk, logger: log}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("phone_e164", validatePhone); err != nil {
		log.Fatal("Failed to register 'phone_e164' validator", "error", err)
	}
	if err := v.RegisterValidation("document_number", validateDocumentNumber); err != nil {
		log.Fatal("Failed to register 'document_number' validator", "error", err)
	}
	if err := v.RegisterValidation("past_date", bv.validatePastDate); err != nil {
		log.Fatal("Failed to register 'past_date' validator", "error", err)
	}

	return bv
}

// validatePhone accepts only numbers that are already in normalized E.164
// form, so callers must run NormalizeDraft first.
func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	return phone != "" && sanitizer.NormalizePhone(phone) == phone
}

// validateDocumentNumber applies the per-type rule. A DNI is exactly 8
// digits; passports and foreigner cards rely on the generic length tags.
func validateDocumentNumber(fl validator.FieldLevel) bool {
	parent := fl.Parent()
	if parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}
	docType := parent.FieldByName("DocumentType")
	if !docType.IsValid() {
		return true
	}
	if docType.String() == model.DocumentDNI {
		return dniRegex.MatchString(fl.Field().String())
	}
	return true
}

func (v *BookingValidator) validatePastDate(fl validator.FieldLevel) bool {
	date, err := time.Parse(time.DateOnly, fl.Field().String())
	if err != nil {
		return false
	}
	now := v.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return date.Before(today)
}

// NormalizeDraft canonicalizes the draft in place. A phone number that cannot
// be normalized is left as sent so validation reports it.
func (v *BookingValidator) NormalizeDraft(d *model.ClientDraft) {
	if phone := sanitizer.NormalizePhone(d.PhoneNumber); phone != "" {
		d.PhoneNumber = phone
	}
	d.DocumentType = sanitizer.NormalizeDocumentType(d.DocumentType)
	d.DocumentNumber = sanitizer.NormalizeDocument(d.DocumentNumber)
	d.FirstName = sanitizer.NormalizeName(d.FirstName)
	d.LastNamePaterno = sanitizer.NormalizeName(d.LastNamePaterno)
	d.LastNameMaterno = sanitizer.NormalizeName(d.LastNameMaterno)
	d.Email = sanitizer.NormalizeEmail(d.Email)
	d.Gender = strings.ToUpper(strings.TrimSpace(d.Gender))
	d.BirthDate = strings.TrimSpace(d.BirthDate)
}

func (v *BookingValidator) ValidateDraft(d *model.ClientDraft) error {
	return v.Validate(d)
}

// Validate checks any request struct against its validate tags.
func (v *BookingValidator) Validate(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "phone_e164":
			message = fmt.Sprintf("%s must be a valid phone number (e.g., +51987654321)", err.Field())
		case "document_number":
			message = fmt.Sprintf("%s must be exactly 8 digits for a DNI", err.Field())
		case "past_date":
			message = fmt.Sprintf("%s must be a date in the past", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must use the format YYYY-MM-DD", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "numeric", "alphanum":
			message = fmt.Sprintf("%s contains invalid characters", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
