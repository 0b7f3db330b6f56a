package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrTemporary              = errors.New("temporary failure")
	ErrDownload               = errors.New("document download failed")
	ErrExtraction             = errors.New("text extraction failed")
	ErrPersistence            = errors.New("persistence failed")
	ErrPaginationGuardTripped = errors.New("pagination guard tripped")
)

// DownloadError reports a non-success response for a gazette document.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	if e == nil {
		return "download error"
	}
	return fmt.Sprintf("download %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *DownloadError) Is(target error) bool {
	return target == ErrDownload
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
