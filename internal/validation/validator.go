package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator that reports fields by their JSON names
// and carries the struct-level checkout rules.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// a cart merges identical variants, so a well-formed checkout never repeats one
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)

	seen := make(map[[3]string]bool, len(req.Items))
	for _, it := range req.Items {
		k := [3]string{it.ProductID, it.Size, it.Color}
		if seen[k] {
			sl.ReportError(req.Items, "items", "Items", "unique_variant", it.ProductID)
			return
		}
		seen[k] = true
	}
}
