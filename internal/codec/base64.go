package codec

import "encoding/base64"

// DecodeBase64 decodes standard (not URL-safe) base64, the form Geyser log
// lines use after the "Program data: " preamble.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
