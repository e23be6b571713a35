package web

import (
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gt returns a ParamValidator that checks if the argument is greater than the value captured in the closure.
func gt(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue > closedValue
	})
}

// QueryIntGtOrDefault reads an integer query parameter that must be greater than min.
// Absent, non-numeric or out-of-range values fall back to def.
func QueryIntGtOrDefault(r *http.Request, key string, min int64, def int) int {
	return queryIntOrDefault(r, key, def, gt(min))
}

func queryIntOrDefault(r *http.Request, key string, def int, pValidator ParamValidator) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || !pValidator(intValue) {
		return def
	}
	return int(intValue)
}
