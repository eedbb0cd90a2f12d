package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/core/staff"
)

// NewValidate returns the app validator, with the core and domain validations registered, and its translator.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidate()
	staff.InitValidators(validate, translator)
	news.InitValidators(validate, translator)
	return validate, translator
}
