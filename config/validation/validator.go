package validation

import (
	"fmt"

	"caswitch/internal/providers"
)

// SiteInput is what the interactive layer collects for a new site
type SiteInput struct {
	Family     string
	Name       string
	URL        string
	SecretName string
	Secret     string
}

// Validator checks complete inputs for one family
type Validator struct {
	input *InputValidator
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{input: NewInputValidator()}
}

// ValidateSite checks a site and, when given, its first secret
func (v *Validator) ValidateSite(in SiteInput) error {
	tool, err := providers.Get(in.Family)
	if err != nil {
		return err
	}
	if err := v.input.ValidateName("site", in.Name); err != nil {
		return err
	}
	if err := v.input.ValidateRequiredURL(in.URL); err != nil {
		return err
	}
	if in.SecretName == "" && in.Secret == "" {
		return nil
	}
	return v.ValidateSecret(tool, in.SecretName, in.Secret)
}

// ValidateSecret checks a secret name and value for tool
func (v *Validator) ValidateSecret(tool providers.Tool, name, value string) error {
	if err := v.input.ValidateName("secret", name); err != nil {
		return err
	}
	if err := tool.ValidateSecret(value); err != nil {
		return fmt.Errorf("invalid secret '%s': %w", name, err)
	}
	return nil
}

// ValidateFamilySecret is ValidateSecret with the tool looked up by family name
func (v *Validator) ValidateFamilySecret(family, name, value string) error {
	tool, err := providers.Get(family)
	if err != nil {
		return err
	}
	return v.ValidateSecret(tool, name, value)
}
