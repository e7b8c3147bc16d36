package serverutils

import (
	"fmt"

	"ai-orchestrator-be/internal/pipeline"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct-tag validation and reports the first failing
// field as an InvalidInput pipeline error.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return pipeline.NewError(
				pipeline.KindInvalidInput,
				fmt.Sprintf("field '%s' failed on '%s' rule", first.Field(), first.Tag()),
			)
		}
		return pipeline.WrapError(pipeline.KindInvalidInput, "invalid request payload", err)
	}
	return nil
}
