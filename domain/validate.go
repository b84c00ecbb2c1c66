package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the domain's custom rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %q: %v", tag, err))
		}
	}

	// skill-list: a comma separated list holding at least one non-blank entry
	mustRegister("skill-list", func(fl validator.FieldLevel) bool {
		return len(ManualProfile{Skills: fl.Field().String()}.SkillList()) > 0
	})
	return v
}
