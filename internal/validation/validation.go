// Copyright 2024 The wicket Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/saucelabs/customerror"
)

// Loopback hostnames accepted by the `loopback` validation rule. Binding to
// any other interface is rejected at configuration-validation time, not at
// the socket layer.
var loopbackHostnames = []string{"127.0.0.1", "localhost"}

// Singleton, cached validator.
var validate *validator.Validate

func init() {
	validate = validator.New()

	// `loopback` ensures a hostname targets the loopback interface.
	//nolint:errcheck
	validate.RegisterValidation("loopback", func(fl validator.FieldLevel) bool {
		hostname := fl.Field().String()

		for _, allowed := range loopbackHostnames {
			if hostname == allowed {
				return true
			}
		}

		return false
	})
}

// ValidateStruct validates a struct against its `validate` tags.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return customerror.NewInvalidError(
			"struct",
			customerror.WithError(err),
		)
	}

	return nil
}
