package recording

import (
	"encoding/base64"
	"fmt"
)

// Encoding tags how a stored body's text maps back to its bytes.
type Encoding string

const (
	// EncodingIdentity means the text is the body itself.
	EncodingIdentity Encoding = "identity"
	// EncodingBase64 means the text is the standard base64 form of the body.
	EncodingBase64 Encoding = "base64"
)

// IsValid reports whether e is a known encoding tag. The empty tag is
// read as identity.
func (e Encoding) IsValid() bool {
	switch e {
	case "", EncodingIdentity, EncodingBase64:
		return true
	default:
		return false
	}
}

// Body is a stored payload. Text holds the literal body or its base64 form
// according to Encoding.
type Body struct {
	Text     string
	Encoding Encoding
	MimeType string
}

// NewBody wraps raw bytes as an identity-encoded body.
func NewBody(raw []byte, mimeType string) Body {
	return Body{
		Text:     string(raw),
		Encoding: EncodingIdentity,
		MimeType: mimeType,
	}
}

// Bytes decodes the body according to its encoding tag.
func (b Body) Bytes() ([]byte, error) {
	switch b.Encoding {
	case "", EncodingIdentity:
		return []byte(b.Text), nil
	case EncodingBase64:
		raw, err := base64.StdEncoding.DecodeString(b.Text)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown body encoding %q", b.Encoding)
	}
}

// IsBase64 reports whether the body is stored base64-encoded.
func (b Body) IsBase64() bool {
	return b.Encoding == EncodingBase64
}

// Empty reports whether the body carries no bytes.
func (b Body) Empty() bool {
	return b.Text == ""
}
