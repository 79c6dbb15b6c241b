package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// AKS cluster names: 1-63 chars, alphanumeric at both ends, hyphens and underscores inside
	clusterNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,61}[a-zA-Z0-9])?$`)

	// AKS node pool names: lowercase alphanumeric, starting with a letter, up to 12 chars
	nodePoolRegex = regexp.MustCompile(`^[a-z][a-z0-9]{0,11}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateClusterName checks a name against the managed cluster naming rules.
func ValidateClusterName(name string) error {
	if name == "" {
		return errors.New("cluster name cannot be empty")
	}
	if len(name) > 63 {
		return errors.New("cluster name must not exceed 63 characters")
	}
	if !clusterNameRegex.MatchString(name) {
		return errors.New("cluster name must start and end with alphanumeric and contain only letters, numbers, hyphens, and underscores")
	}
	return nil
}

func ValidateNodePoolName(name string) error {
	if name == "" {
		return errors.New("node pool name cannot be empty")
	}
	if !nodePoolRegex.MatchString(name) {
		return errors.New("node pool name must start with a lowercase letter and contain at most 12 lowercase letters and numbers")
	}
	return nil
}

// ValidateCycleID checks that id is a cycle identifier as issued by the control loop.
func ValidateCycleID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("cycle id must be a UUID")
	}
	return nil
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return errors.New("username must not exceed 50 characters")
	}

	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSpecial {
		return errors.New("password must contain at least one special character")
	}

	return nil
}
