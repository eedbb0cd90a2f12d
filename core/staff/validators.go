package staff

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/nojinx/ssm/core"
)

var (
	staffRoleTag  = "staffrole"
	staffRoleText = "invalid role"

	minAgeTag  = "minage"
	minAgeText = "staff must be at least 18 years old"
	minAgeDays = 18 * 365.25

	joinedBeforeBirthTag  = "joinedbeforebirth"
	joinedBeforeBirthText = "date of joining cannot be before date of birth"

	// NowFunc is mockable in tests.
	NowFunc = time.Now
)

// InitValidators registers the staff validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(staffRoleTag, staffRoleValidation)
	core.RegisterCustomTranslation(validate, translator, staffRoleTag, staffRoleText)

	validate.RegisterStructValidation(staffStructValidation, NewStaff{}, ChangePassword{})
	core.RegisterCustomTranslation(validate, translator, minAgeTag, minAgeText)
	core.RegisterCustomTranslation(validate, translator, joinedBeforeBirthTag, joinedBeforeBirthText)
}

func staffRoleValidation(fl validator.FieldLevel) bool {
	return IsValidRole(fl.Field().String())
}

// staffStructValidation does struct level validation on NewStaff and ChangePassword.
// ChangePassword attrs similarity is checked by the service which knows the Staff member.
func staffStructValidation(sl validator.StructLevel) {
	switch st := sl.Current().Interface().(type) {
	case NewStaff:
		core.ReportPassword(sl, st.Password, st.ID, st.Name, st.Email)
		if tag := checkDates(st.DateOfBirth, st.DateOfJoining); tag != "" {
			reportDateErr(sl, st.DateOfBirth, st.DateOfJoining, tag)
		}
	case ChangePassword:
		core.ReportPassword(sl, st.Password)
	}
}

func reportDateErr(sl validator.StructLevel, dob, doj core.Date, tag string) {
	switch tag {
	case minAgeTag:
		sl.ReportError(dob, "date_of_birth", "DateOfBirth", tag, "")
	case joinedBeforeBirthTag:
		sl.ReportError(doj, "date_of_joining", "DateOfJoining", tag, "")
	}
}

// checkDates applies the age and joining date rules and returns the failing tag, if any.
func checkDates(dob, doj core.Date) string {
	if dob.IsZero() {
		return ""
	}
	today := core.Today(NowFunc())
	if today.Sub(dob.Time).Hours()/24 < minAgeDays {
		return minAgeTag
	}
	if !doj.IsZero() && doj.Before(dob) {
		return joinedBeforeBirthTag
	}
	return ""
}

// datesError returns a ValidationError when dob/doj break the age or joining date rules.
func datesError(dob, doj core.Date) error {
	switch checkDates(dob, doj) {
	case minAgeTag:
		return core.NewFieldValidationError("date_of_birth", minAgeText)
	case joinedBeforeBirthTag:
		return core.NewFieldValidationError("date_of_joining", joinedBeforeBirthText)
	}
	return nil
}
