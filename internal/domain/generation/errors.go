package generation

import "errors"

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidStyle        = errors.New("invalid style")
	ErrInvalidImage        = errors.New("invalid image upload")
	ErrProviderFailed      = errors.New("image provider failed")
	ErrInternal            = errors.New("internal error")
)
