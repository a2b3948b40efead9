package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/tbourn/character-chat-backend/internal/services"
)

var registerOnce sync.Once

// registerValidators installs the notblank rule on gin's validator and makes
// field errors report JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindError turns a binding failure into a ValidationError. Rule violations
// become field-level details; malformed JSON is reported as such.
func bindError(err error) *services.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return services.ValidationError(MsgInvalidJSON, map[string]any{"error": err.Error()})
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fieldPath(fe)] = fieldMessage(fe)
	}
	return services.ValidationError(services.MsgValidation, details)
}

// fieldPath drops the root struct name: "ChatRequest.character1.name" ->
// "character1.name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		if isList {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if isList {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
