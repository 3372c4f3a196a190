package registry

import (
	"strings"

	"github.com/bidhall/bidhall/internal/apperrors"
)

// Exact-match weak PINs rejected outright.
var weakPins = map[string]struct{}{
	"1234":     {},
	"12345":    {},
	"123456":   {},
	"0000":     {},
	"1111":     {},
	"2580":     {},
	"0852":     {},
	"1212":     {},
	"6969":     {},
	"4321":     {},
	"password": {},
	"admin":    {},
	"letmein":  {},
}

// Keyboard rows checked for adjacency runs.
var keyboardRows = []string{
	"1234567890",
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

// ValidatePin enforces length 4-20 and rejects guessable patterns: known weak
// values, a single repeated character, ascending or descending character
// sequences and keyboard-row runs.
func ValidatePin(pin string) *apperrors.AppError {
	if len(pin) < 4 || len(pin) > 20 {
		return apperrors.New(apperrors.CodeValidation, "pin must be between 4 and 20 characters")
	}

	lower := strings.ToLower(pin)

	if _, weak := weakPins[lower]; weak {
		return apperrors.New(apperrors.CodeValidation, "pin is too common")
	}
	if allSameChar(lower) {
		return apperrors.New(apperrors.CodeValidation, "pin must not repeat a single character")
	}
	if isSequential(lower) {
		return apperrors.New(apperrors.CodeValidation, "pin must not be a sequence")
	}
	if isKeyboardRun(lower) {
		return apperrors.New(apperrors.CodeValidation, "pin must not be a keyboard pattern")
	}

	return nil
}

func allSameChar(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// isSequential reports whether every step through the string is +1 or every
// step is -1 ("3456", "9876").
func isSequential(s string) bool {
	if len(s) < 2 {
		return false
	}
	ascending, descending := true, true
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1]+1 {
			ascending = false
		}
		if s[i] != s[i-1]-1 {
			descending = false
		}
	}
	return ascending || descending
}

// isKeyboardRun reports whether the pin is a run along a keyboard row in
// either direction ("qwer", "lkjh").
func isKeyboardRun(s string) bool {
	for _, row := range keyboardRows {
		if strings.Contains(row, s) || strings.Contains(reverse(row), s) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
