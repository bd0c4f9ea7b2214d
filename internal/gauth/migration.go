// Package gauth decodes Google Authenticator export links
// (otpauth-migration://offline?data=...) into OTP accounts.
package gauth

import (
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrInvalidURI       = errors.New("not an otpauth-migration://offline URI")
	ErrMalformedPayload = errors.New("malformed migration payload")
	ErrNoAccounts       = errors.New("migration payload contains no accounts")
)

const (
	uriScheme = "otpauth-migration"
	uriHost   = "offline"
)

// MigrationPayload field numbers.
const (
	payloadOTPParameters protowire.Number = 1
	payloadVersion       protowire.Number = 2
	payloadBatchSize     protowire.Number = 3
	payloadBatchIndex    protowire.Number = 4
	payloadBatchID       protowire.Number = 5
)

// OtpParameters field numbers.
const (
	otpSecret    protowire.Number = 1
	otpName      protowire.Number = 2
	otpIssuer    protowire.Number = 3
	otpAlgorithm protowire.Number = 4
	otpDigits    protowire.Number = 5
	otpType      protowire.Number = 6
	otpCounter   protowire.Number = 7
)

// Account is one exported authenticator entry.
type Account struct {
	Issuer    string `json:"issuer"`
	Name      string `json:"name"`
	Secret    string `json:"totp_secret"` // Base32, no padding
	Algorithm string `json:"algorithm"`
	Digits    int    `json:"digits"`
	Type      string `json:"type"`
	Counter   uint64 `json:"counter,omitempty"`
}

// Payload is a decoded migration batch. Large exports are split over
// several QR codes; BatchIndex counts from 0 to BatchSize-1.
type Payload struct {
	Accounts   []Account
	Version    int
	BatchSize  int
	BatchIndex int
	BatchID    int64
}

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ParseURI decodes the accounts in a migration URI.
func ParseURI(uri string) ([]Account, error) {
	data, err := payloadData(uri)
	if err != nil {
		return nil, err
	}

	p, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}
	if len(p.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return p.Accounts, nil
}

// payloadData validates the URI and returns the raw protobuf bytes of its
// data parameter.
func payloadData(uri string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != uriScheme || u.Host != uriHost {
		return nil, ErrInvalidURI
	}

	encoded := u.Query().Get("data")
	if encoded == "" {
		return nil, fmt.Errorf("%w: missing data parameter", ErrInvalidURI)
	}

	// The parameter is usually standard base64 with the padding stripped
	// (and '+' possibly surviving unescaped as ' ').
	encoded = strings.ReplaceAll(encoded, " ", "+")
	encoded = strings.TrimRight(encoded, "=")
	if r := len(encoded) % 4; r != 0 {
		encoded += strings.Repeat("=", 4-r)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: data parameter: %v", ErrMalformedPayload, err)
	}
	return data, nil
}

// DecodePayload decodes a serialized MigrationPayload message.
func DecodePayload(b []byte) (*Payload, error) {
	fields, err := readFields(b)
	if err != nil {
		return nil, err
	}

	p := &Payload{}
	for _, f := range fields {
		switch f.num {
		case payloadOTPParameters:
			if f.typ != protowire.BytesType {
				return nil, fmt.Errorf("%w: otp_parameters has wire type %d", ErrMalformedPayload, f.typ)
			}
			acc, err := decodeAccount(f.bytes)
			if err != nil {
				return nil, err
			}
			p.Accounts = append(p.Accounts, acc)
		case payloadVersion:
			p.Version = int(f.varint)
		case payloadBatchSize:
			p.BatchSize = int(f.varint)
		case payloadBatchIndex:
			p.BatchIndex = int(f.varint)
		case payloadBatchID:
			p.BatchID = int64(int32(f.varint))
		}
	}
	return p, nil
}

func decodeAccount(b []byte) (Account, error) {
	fields, err := readFields(b)
	if err != nil {
		return Account{}, err
	}

	var (
		secret           []byte
		algo, digits, tp uint64
		acc              Account
	)
	for _, f := range fields {
		switch f.num {
		case otpSecret:
			secret = f.bytes
		case otpName:
			acc.Name = string(f.bytes)
		case otpIssuer:
			acc.Issuer = string(f.bytes)
		case otpAlgorithm:
			algo = f.varint
		case otpDigits:
			digits = f.varint
		case otpType:
			tp = f.varint
		case otpCounter:
			acc.Counter = f.varint
		}
	}

	acc.Secret = secretEncoding.EncodeToString(secret)
	acc.Algorithm = algorithmName(algo)
	acc.Digits = digitCount(digits)
	acc.Type = otpTypeName(tp)

	// Older exports leave issuer empty and store "Issuer:account" as the name.
	if acc.Issuer == "" {
		if issuer, name, ok := strings.Cut(acc.Name, ":"); ok && issuer != "" {
			acc.Issuer = strings.TrimSpace(issuer)
			acc.Name = strings.TrimSpace(name)
		}
	}
	return acc, nil
}

func algorithmName(v uint64) string {
	switch v {
	case 0, 1:
		return "SHA1"
	case 2:
		return "SHA256"
	case 3:
		return "SHA512"
	case 4:
		return "MD5"
	default:
		return "UNKNOWN"
	}
}

func digitCount(v uint64) int {
	if v == 2 {
		return 8
	}
	return 6
}

func otpTypeName(v uint64) string {
	switch v {
	case 0, 2:
		return "TOTP"
	case 1:
		return "HOTP"
	default:
		return "UNKNOWN"
	}
}

// Merge combines accounts from several batches. Accounts with the same
// secret are collapsed (the last one seen wins, in the first one's slot) and
// the result is sorted by issuer, case-insensitively.
func Merge(batches ...[]Account) []Account {
	index := make(map[string]int)
	var out []Account
	for _, batch := range batches {
		for _, acc := range batch {
			if i, ok := index[acc.Secret]; ok {
				out[i] = acc
				continue
			}
			index[acc.Secret] = len(out)
			out = append(out, acc)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Issuer) < strings.ToLower(out[j].Issuer)
	})
	return out
}
