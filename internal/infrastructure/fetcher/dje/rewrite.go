package dje

import "strings"

const (
	previewSegment  = "consultaSimples"
	documentSegment = "getPaginaDoDiario"
	captchaParam    = "uuidCaptcha="
)

// RewriteURL turns a search-result preview link into the document endpoint
// URL. The endpoint rejects requests without an (empty) captcha parameter.
func RewriteURL(raw string) string {
	out := strings.Replace(strings.TrimSpace(raw), previewSegment, documentSegment, 1)
	if strings.Contains(out, captchaParam) {
		return out
	}
	switch {
	case !strings.Contains(out, "?"):
		return out + "?" + captchaParam
	case strings.HasSuffix(out, "?"), strings.HasSuffix(out, "&"):
		return out + captchaParam
	default:
		return out + "&" + captchaParam
	}
}
