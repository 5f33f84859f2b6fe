package middleware

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// maxCategoryLength matches the category columns of security_log
const maxCategoryLength = 255

// ValidateCategory checks a category label used as a lookup filter.
func ValidateCategory(category string) error {
	if category == "" {
		return fmt.Errorf("category cannot be empty")
	}
	if !utf8.ValidString(category) {
		return fmt.Errorf("category must be valid UTF-8")
	}
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return fmt.Errorf("category too long (max %d characters)", maxCategoryLength)
	}
	for _, r := range category {
		if unicode.IsControl(r) {
			return fmt.Errorf("invalid characters in category")
		}
	}
	return nil
}
