package wave

import "errors"

// Sentinel errors for the wave service layer.
var (
	ErrNotFound            = errors.New("wave not found")
	ErrInvalidTransition   = errors.New("invalid wave status transition")
	ErrProviderUnavailable = errors.New("mail provider connection validation failed")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrCampaignNotFound    = errors.New("campaign not found")
)
