package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	for i, s := range cfg.Steps {
		switch s.Kind {
		case "ignore":
			if len(s.Patterns) == 0 {
				return fmt.Errorf("steps[%d]: ignore needs at least one pattern", i)
			}
		case "stream":
			if len(s.Stages) == 0 {
				return fmt.Errorf("steps[%d]: stream needs at least one stage", i)
			}
		}
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
