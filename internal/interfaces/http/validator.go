package http

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxQuestionLength = 2000
	MaxAPIKeyLength   = 512
	MaxUsernameLength = 64

	defaultChatLimit = 200
	maxChatLimit     = 5000
	defaultStatsDays = 30
	maxStatsDays     = 365
)

var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-.:]+$`)

// ValidAPIKey accepts printable tokens without whitespace
func ValidAPIKey(s string) bool {
	if s == "" || len(s) > MaxAPIKeyLength {
		return false
	}
	return apiKeyPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

func ValidateLength(s string, min, max int) bool {
	l := utf8.RuneCountInString(s)
	return l >= min && l <= max
}

// boundedInt parses a query value, falling back to def when missing or invalid
// and clamping to [1, max].
func boundedInt(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
