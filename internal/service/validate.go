package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tripmeet-backend/internal/domain"
)

// Group links must point at one of the supported community platforms.
var socialLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://chat\.whatsapp\.com/[A-Za-z0-9]+$`),
	regexp.MustCompile(`^https://(t\.me|telegram\.me)/(\+|joinchat/)?[A-Za-z0-9_-]+$`),
	regexp.MustCompile(`^https://(www\.|m\.)?facebook\.com/groups/[A-Za-z0-9_.-]+/?$`),
	regexp.MustCompile(`^https://(www\.)?instagram\.com/[A-Za-z0-9_.]+/?$`),
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("sociallink", func(fl validator.FieldLevel) bool {
		return IsSocialLink(fl.Field().String())
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// IsSocialLink reports whether link is an accepted group link.
func IsSocialLink(link string) bool {
	for _, p := range socialLinkPatterns {
		if p.MatchString(link) {
			return true
		}
	}
	return false
}

// validateStruct runs the struct tags and converts the first failure into
// a domain.ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewValidationError(fe.Field(), "%s", describe(fe))
	}
	return err
}

func describe(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if isList {
			return "must have at most " + fe.Param() + " entries"
		}
		return "must be at most " + fe.Param() + " characters"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "sociallink":
		return "must be a WhatsApp, Telegram, Facebook group or Instagram link"
	case "username":
		return "must be 3-30 lowercase letters, digits or underscores"
	case "url":
		return "must be a URL"
	}
	return "is invalid"
}

// checkID maps malformed ids to ErrNotFound so they never reach the database.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return nil
}
