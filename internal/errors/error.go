// Package errors provides sentinel errors for product operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
