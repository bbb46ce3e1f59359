package sourcemap

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const dataScheme = "data:"

// IsDataURL reports whether ref is a data: URL.
func IsDataURL(ref string) bool {
	return len(ref) >= len(dataScheme) && strings.EqualFold(ref[:len(dataScheme)], dataScheme)
}

// DecodeDataURL returns the payload of a data: URL. Both base64 and
// percent-encoded payloads are accepted.
func DecodeDataURL(ref string) ([]byte, error) {
	if !IsDataURL(ref) {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrDataURL)
	}
	meta, payload, ok := strings.Cut(ref[len(dataScheme):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma", ErrDataURL)
	}

	isBase64 := false
	for _, param := range strings.Split(meta, ";") {
		if strings.EqualFold(strings.TrimSpace(param), "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDataURL, err)
		}
		return []byte(decoded), nil
	}

	payload, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataURL, err)
	}
	payload = strings.TrimRight(strings.Join(strings.Fields(payload), ""), "=")
	for _, enc := range []*base64.Encoding{base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(payload); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid base64 payload", ErrDataURL)
}
