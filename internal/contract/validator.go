package contract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "component_type", enumValidator(componentTypes))
		mustRegister(v, "supplier_status", enumValidator(supplierStatuses))
		mustRegister(v, "payment_status", enumValidator(paymentStatuses))
		mustRegister(v, "refund_status", enumValidator(refundStatuses))
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("contract: register %s: %v", tag, err))
	}
}

func enumValidator(set map[string]string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		_, ok := lookup(set, fl.Field().String())
		return ok
	}
}

// validateStruct runs tag validation and appends every failure to out.
func validateStruct(s any, out *violations) {
	err := structValidator().Struct(s)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.add("", "invalid", "%v", err)
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		field = strings.ReplaceAll(field, "eventCommon.", "")
		out.add(field, fe.Tag(), "%s", describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "component_type", "supplier_status", "payment_status", "refund_status":
		return fmt.Sprintf("unknown value %q", fe.Value())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
