// Package businessflow contains the core business logic and use cases for messaging workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Connection-related errors
	ErrConnectionNotFound      = errors.New("connection not found")
	ErrConnectionAlreadyExists = errors.New("connection with this phone number already exists")
	ErrConnectionNotRegistered = errors.New("connection has no live handle")
	ErrInvalidStatusTransition = errors.New("invalid connection status transition")

	// Template-related errors
	ErrTemplateNotFound        = errors.New("template not found")
	ErrTemplateContentRequired = errors.New("template content is required")
	ErrTemplateMediaRefMissing = errors.New("template media type requires a media reference")

	// Contact-related errors
	ErrContactNotFound      = errors.New("contact not found")
	ErrContactAlreadyExists = errors.New("contact with this phone number already exists")

	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignNotCancelable    = errors.New("campaign cannot be canceled in its current status")
	ErrCampaignNotStartable     = errors.New("campaign cannot be started in its current status")
	ErrCampaignContactsRequired = errors.New("campaign needs at least one contact")
	ErrCampaignIntervalInvalid  = errors.New("campaign pacing interval is invalid")
	ErrScheduleTimeInPast       = errors.New("schedule time is in the past")

	// Message-related errors
	ErrMessageNotFound = errors.New("message not found")
)

// BusinessError represents a business logic error with context
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsConnectionNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound)
}

func IsConnectionAlreadyExists(err error) bool {
	return errors.Is(err, ErrConnectionAlreadyExists)
}

func IsConnectionNotRegistered(err error) bool {
	return errors.Is(err, ErrConnectionNotRegistered)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsTemplateContentRequired(err error) bool {
	return errors.Is(err, ErrTemplateContentRequired)
}

func IsTemplateMediaRefMissing(err error) bool {
	return errors.Is(err, ErrTemplateMediaRefMissing)
}

func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

func IsContactAlreadyExists(err error) bool {
	return errors.Is(err, ErrContactAlreadyExists)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNotCancelable(err error) bool {
	return errors.Is(err, ErrCampaignNotCancelable)
}

func IsCampaignContactsRequired(err error) bool {
	return errors.Is(err, ErrCampaignContactsRequired)
}

func IsCampaignIntervalInvalid(err error) bool {
	return errors.Is(err, ErrCampaignIntervalInvalid)
}

func IsScheduleTimeInPast(err error) bool {
	return errors.Is(err, ErrScheduleTimeInPast)
}
