package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

const (
	minNameLength        = 2
	minTitleLength       = 3
	minDescriptionLength = 10
)

// trimmedMin trims s and fails when fewer than n characters remain.
func trimmedMin(field, s string, n int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < n {
		return "", domain.NewValidationError(field, fmt.Sprintf("must be at least %d characters", n))
	}
	return s, nil
}
