package core

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// Layout of the outer-decoded backup blob.
const (
	SaltSize = 20 // PBKDF2 salt at the start of the blob
	IVSize   = 16 // AES-CBC IV following the salt
	KeySize  = 32 // AES-256 key derived from the password

	headerSize = SaltSize + IVSize
)

// Blob is the binary backup split into its fixed-offset parts.
// The slices alias the input passed to ParseBlob.
type Blob struct {
	Salt       []byte
	IV         []byte
	Ciphertext []byte
}

// ParseBlob splits the outer-decoded blob into salt, IV and ciphertext.
func ParseBlob(b []byte) (Blob, error) {
	if len(b) < headerSize {
		return Blob{}, fmt.Errorf("%w: blob is %d bytes, need at least %d", ErrInputFormat, len(b), headerSize)
	}
	return Blob{
		Salt:       b[:SaltSize],
		IV:         b[SaltSize:headerSize],
		Ciphertext: b[headerSize:],
	}, nil
}

// DecodeEnvelope removes the outer base64 wrapper of a backup file.
// Whitespace anywhere in the content (line wrapping, trailing newline) is ignored.
func DecodeEnvelope(content []byte) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(content))

	if compact == "" {
		return nil, fmt.Errorf("%w: file is empty", ErrInputFormat)
	}

	raw, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: outer base64 wrapper: %v", ErrInputFormat, err)
	}
	return raw, nil
}

// EncodeEnvelope is the inverse of DecodeEnvelope.
func EncodeEnvelope(raw []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}
