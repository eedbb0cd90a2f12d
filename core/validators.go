package core

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters, hyphens and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w-]+$`)

	personNameTag   = "personname"
	personNameText  = "{0} must contain only letters, dots and spaces"
	personNameRegex = regexp.MustCompile(`^[a-zA-Z\s.]+$`)

	semesterTag  = "semester"
	semesterText = fmt.Sprintf("semester must be between %d and %d", MinSemester, MaxSemester)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	// password policy
	PwdMinLen     = 6
	PwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must be at least %d characters long", PwdMinLen)

	pwdMaxSim      = .7
	PwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password is too similar to your account details"
)

const (
	MinSemester = 1
	MaxSemester = 8
)

// NewValidate returns a validator with the app's custom validations registered, and its english translator.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)
	return validate, translator
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(personNameTag, personNameValidation)
	RegisterCustomTranslation(validate, translator, personNameTag, personNameText)

	_ = validate.RegisterValidation(semesterTag, semesterValidation)
	RegisterCustomTranslation(validate, translator, semesterTag, semesterText)

	RegisterCustomTranslation(validate, translator, PwdMinLenTag, pwdMinLenText)
	RegisterCustomTranslation(validate, translator, PwdAttrSimTag, pwdAttrSimText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters, hyphens and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// personNameValidation only allows letters, dots and spaces (eg. "Dr. A. Kumar", "H.O.D").
func personNameValidation(fl validator.FieldLevel) bool {
	return personNameRegex.MatchString(fl.Field().String())
}

func semesterValidation(fl validator.FieldLevel) bool {
	var sem int64
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sem = fl.Field().Int()
	default:
		return false
	}
	return sem >= MinSemester && sem <= MaxSemester
}

// ValidatePassword applies the password policy to provided password and returns the failing tag, if any:
// - minLen: 6
// - no similarity with account attributes
func ValidatePassword(pwd string, attrs ...string) string {
	if len([]rune(pwd)) < PwdMinLen {
		return PwdMinLenTag
	}
	for _, attr := range attrs {
		if PasswordSimilarity(pwd, attr) >= pwdMaxSim {
			return PwdAttrSimTag
		}
	}
	return ""
}

// PasswordSimilarity returns a case-insensitive similarity ratio in [0, 1] between pwd and an account attribute.
func PasswordSimilarity(pwd, attr string) float64 {
	attr = strings.ToLower(strings.TrimSpace(attr))
	if attr == "" {
		return 0
	}
	pwd = strings.ToLower(pwd)
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).Ratio()
}

// PasswordError returns a ValidationError on the "password" field for a failing password policy tag.
func PasswordError(tag string) error {
	msg := pwdAttrSimText
	if tag == PwdMinLenTag {
		msg = pwdMinLenText
	}
	return NewFieldValidationError("password", msg)
}

// ReportPassword runs ValidatePassword and reports the failure on the "password" field.
func ReportPassword(sl validator.StructLevel, pwd string, attrs ...string) {
	if tag := ValidatePassword(pwd, attrs...); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}
