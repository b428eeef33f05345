package models

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrSerialization = errors.New("serialization failed")
	ErrIO            = errors.New("write failed")
	ErrCancelled     = errors.New("cancelled by user")
)

// Entity names used in lookup errors
const (
	EntitySite     = "site"
	EntityToken    = "token"
	EntityAPIKey   = "API key"
	EntityProvider = "provider"
	EntityModel    = "model"
)

// NotFoundError names the entity that was missing at lookup time
type NotFoundError struct {
	Entity string
	Name   string
	// Parent is the site or provider that was searched, if any
	Parent string
}

func (e *NotFoundError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("%s '%s' not found in %s '%s'", capitalize(e.Entity), e.Name, parentEntity(e.Entity), e.Parent)
	}
	return fmt.Sprintf("%s '%s' not found", capitalize(e.Entity), e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyExistsError is returned by duplicate adds
type AlreadyExistsError struct {
	Entity string
	Name   string
	Parent string
}

func (e *AlreadyExistsError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("%s '%s' already exists in %s '%s'", capitalize(e.Entity), e.Name, parentEntity(e.Entity), e.Parent)
	}
	return fmt.Sprintf("%s '%s' already exists", capitalize(e.Entity), e.Name)
}

func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// NotFound builds a *NotFoundError
func NotFound(entity, name, parent string) error {
	return &NotFoundError{Entity: entity, Name: name, Parent: parent}
}

// AlreadyExists builds an *AlreadyExistsError
func AlreadyExists(entity, name, parent string) error {
	return &AlreadyExistsError{Entity: entity, Name: name, Parent: parent}
}

func parentEntity(entity string) string {
	if entity == EntityModel {
		return EntityProvider
	}
	return EntitySite
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

// Error categories reported to the user
const (
	ErrorCategoryNotFound      = "not_found"
	ErrorCategoryAlreadyExists = "already_exists"
	ErrorCategorySerialization = "serialization_failure"
	ErrorCategoryIO            = "io_failure"
	ErrorCategoryCancelled     = "user_cancelled"
	ErrorCategoryUnknown       = "unknown_error"
)

var errorUserMessages = map[string]string{
	ErrorCategoryNotFound:      "The referenced site, secret, provider or model does not exist.",
	ErrorCategoryAlreadyExists: "An entry with that name already exists.",
	ErrorCategorySerialization: "A configuration document could not be encoded or decoded.",
	ErrorCategoryIO:            "A configuration file could not be written.",
	ErrorCategoryCancelled:     "Operation cancelled.",
	ErrorCategoryUnknown:       "An unknown error occurred.",
}

// ErrorInfo contains a categorized error ready for display
type ErrorInfo struct {
	Category    string `json:"category"`
	Message     string `json:"message"`
	UserMessage string `json:"userMessage"`
}

// CategorizeError maps an error onto one of the error categories
func CategorizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return ErrorCategoryNotFound
	case errors.Is(err, ErrAlreadyExists):
		return ErrorCategoryAlreadyExists
	case errors.Is(err, ErrSerialization):
		return ErrorCategorySerialization
	case errors.Is(err, ErrIO):
		return ErrorCategoryIO
	case errors.Is(err, ErrCancelled):
		return ErrorCategoryCancelled
	default:
		return ErrorCategoryUnknown
	}
}

// CategorizeErrorWithInfo categorizes an error and returns detailed ErrorInfo
func CategorizeErrorWithInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	category := CategorizeError(err)
	return &ErrorInfo{
		Category:    category,
		Message:     err.Error(),
		UserMessage: GetUserMessage(category),
	}
}

// GetUserMessage returns the user-friendly message for an error category
func GetUserMessage(category string) string {
	if msg, ok := errorUserMessages[category]; ok {
		return msg
	}
	return errorUserMessages[ErrorCategoryUnknown]
}
