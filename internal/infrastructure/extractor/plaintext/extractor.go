package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

var ErrBinaryPayload = errors.New("payload is not utf-8 text")

// Extractor accepts documents that are already plain UTF-8 text, such as
// archived text renditions of a gazette issue.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrBinaryPayload
	}
	raw = stripBOM(raw)
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n")), nil
}

func stripBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}
