package domain

import (
	"context"
	"errors"
)

var (
	ErrAcquisition       = errors.New("acquisition failed")
	ErrUnsupportedType   = errors.New("unsupported type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrDecode            = errors.New("decode failed")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrExport            = errors.New("export failed")
	ErrStorageQuota      = errors.New("storage quota exceeded")
	ErrNotFound          = errors.New("not found")
)

// UserMessage maps an error to the short text shown in a notification.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFileTooLarge):
		return "File is too large"
	case errors.Is(err, ErrUnsupportedType):
		return "File type is not supported"
	case errors.Is(err, ErrDecode):
		return "Could not read the file, it may be corrupt"
	case errors.Is(err, ErrCameraUnavailable):
		return "Camera is not available"
	case errors.Is(err, ErrInvalidParameters):
		return "Invalid settings: " + err.Error()
	case errors.Is(err, ErrExport):
		return "Export failed"
	case errors.Is(err, ErrStorageQuota):
		return "Storage is full, clear some history and try again"
	case errors.Is(err, ErrNotFound):
		return "Nothing was found"
	case errors.Is(err, ErrAcquisition):
		return "Could not load the input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Operation was cancelled"
	default:
		return "Something went wrong"
	}
}
