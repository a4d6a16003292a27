package lifecycle

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/pkg/utils"
)

// newValidator reads the same binding tags gin uses on the server and
// reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := utils.RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

var submissionValidator = newValidator()

// ValidateSubmission checks a submission without touching the network.
// The submission is not modified.
func ValidateSubmission(sub *entity.Submission) error {
	err := submissionValidator.Struct(sub)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Field: "submission", Rule: err.Error()}}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return &ValidationError{Fields: fields}
}
