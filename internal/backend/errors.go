package backend

import "errors"

var (
	ErrProviderUnavailable = errors.New("analysis provider unavailable")
	ErrInferenceTimeout    = errors.New("analysis inference timeout")
	ErrInvalidResponse     = errors.New("analysis provider returned invalid response")
)
