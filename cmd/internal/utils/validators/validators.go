package validators

import (
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

func HasUpper(fl validator.FieldLevel) bool {
	return strings.ContainsFunc(fl.Field().String(), unicode.IsUpper)
}

func HasLower(fl validator.FieldLevel) bool {
	return strings.ContainsFunc(fl.Field().String(), unicode.IsLower)
}

func HasDigit(fl validator.FieldLevel) bool {
	return strings.ContainsFunc(fl.Field().String(), unicode.IsDigit)
}

func HasSpecial(fl validator.FieldLevel) bool {
	return strings.ContainsAny(fl.Field().String(), "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~")
}

func NoWhiteSpaces(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
}

// NoDupes rejects strings made of a single repeated character ("aaaaaa").
func NoDupes(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 2 {
		return true
	}
	first := rune(s[0])
	for _, r := range s {
		if r != first {
			return true
		}
	}
	return false
}

// IsIso8601 accepts RFC3339 timestamps, the wire format for all times.
func IsIso8601(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}
