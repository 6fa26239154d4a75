package httpserver

import (
	"strconv"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ParseID parses a path identifier. Zero is accepted only when allowZero is set.
func ParseID(field, raw string, allowZero bool) (int64, ValidationResult) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid(field, "REQUIRED", field+" is required")
	}
	if len(raw) > 19 {
		return 0, invalid(field, "TOO_LONG", field+" is too long")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid(field, "INVALID_FORMAT", field+" must be an integer")
	}
	if id < 0 || (id == 0 && !allowZero) {
		return 0, invalid(field, "OUT_OF_RANGE", field+" must be positive")
	}
	return id, ValidationResult{Valid: true}
}

// Merge folds several results into one, keeping every error.
func Merge(results ...ValidationResult) ValidationResult {
	var errs []ValidationError
	for _, r := range results {
		errs = append(errs, r.Errors...)
	}
	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{Valid: true}
}

func invalid(field, code, msg string) ValidationResult {
	return ValidationResult{
		Valid:  false,
		Errors: []ValidationError{{Field: field, Code: code, Message: msg}},
	}
}
