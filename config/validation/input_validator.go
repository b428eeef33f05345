// Package validation checks interactive input before it reaches the stores.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"caswitch/internal/utils"
)

// MaxNameLength bounds site, secret and provider names
const MaxNameLength = 64

// InputValidator validates user input
type InputValidator struct{}

// NewInputValidator creates a new InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateName checks a site, secret or provider name. kind names the
// entity in the error message.
func (iv *InputValidator) ValidateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%s name must not start or end with whitespace", kind)
	}
	if strings.ContainsAny(name, "<>\"'&/\\") {
		return fmt.Errorf("%s name contains invalid characters", kind)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%s name is too long (max %d characters)", kind, MaxNameLength)
	}
	return nil
}

// ValidateURL checks a URL; empty is allowed and means "unset"
func (iv *InputValidator) ValidateURL(url string) error {
	if url != "" && !utils.ValidateURL(url) {
		return fmt.Errorf("invalid URL format: %s", url)
	}
	return nil
}

// ValidateRequiredURL checks a URL that must be present
func (iv *InputValidator) ValidateRequiredURL(url string) error {
	if url == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	return iv.ValidateURL(url)
}

// ValidateModelID checks a model id. Ids may contain "/" because some
// gateways namespace their models.
func (iv *InputValidator) ValidateModelID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("model id cannot be empty")
	}
	if strings.ContainsAny(id, "<>\"'& \t") {
		return fmt.Errorf("model id contains invalid characters")
	}
	return nil
}

// ValidateSetting checks a value that is projected into a tool's files.
// Line-based formats such as .env cannot hold a line break.
func (iv *InputValidator) ValidateSetting(name, value string) error {
	if strings.ContainsAny(value, "\r\n\x00") {
		return fmt.Errorf("%s must be a single line", name)
	}
	return nil
}
