package gauth

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

type otpFixture struct {
	secret    []byte
	name      string
	issuer    string
	algorithm uint64
	digits    uint64
	typ       uint64
	counter   uint64
}

func (o otpFixture) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, otpSecret, protowire.BytesType)
	b = protowire.AppendBytes(b, o.secret)
	b = protowire.AppendTag(b, otpName, protowire.BytesType)
	b = protowire.AppendString(b, o.name)
	if o.issuer != "" {
		b = protowire.AppendTag(b, otpIssuer, protowire.BytesType)
		b = protowire.AppendString(b, o.issuer)
	}
	b = protowire.AppendTag(b, otpAlgorithm, protowire.VarintType)
	b = protowire.AppendVarint(b, o.algorithm)
	b = protowire.AppendTag(b, otpDigits, protowire.VarintType)
	b = protowire.AppendVarint(b, o.digits)
	b = protowire.AppendTag(b, otpType, protowire.VarintType)
	b = protowire.AppendVarint(b, o.typ)
	if o.counter != 0 {
		b = protowire.AppendTag(b, otpCounter, protowire.VarintType)
		b = protowire.AppendVarint(b, o.counter)
	}
	return b
}

func payload(accounts ...otpFixture) []byte {
	var b []byte
	for _, a := range accounts {
		b = protowire.AppendTag(b, payloadOTPParameters, protowire.BytesType)
		b = protowire.AppendBytes(b, a.marshal())
	}
	b = protowire.AppendTag(b, payloadVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, payloadBatchSize, protowire.VarintType)
	b = protowire.AppendVarint(b, 2)
	b = protowire.AppendTag(b, payloadBatchIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, payloadBatchID, protowire.VarintType)
	b = protowire.AppendVarint(b, 12345)
	return b
}

func migrationURI(data []byte) string {
	enc := base64.StdEncoding.EncodeToString(data)
	return "otpauth-migration://offline?data=" + url.QueryEscape(enc)
}

var helloSecret = []byte("Hello!\xde\xad\xbe\xef")

func TestParseURI(t *testing.T) {
	uri := migrationURI(payload(
		otpFixture{secret: helloSecret, name: "alice@example.com", issuer: "Example", algorithm: 1, digits: 1, typ: 2},
		otpFixture{secret: []byte{1, 2, 3, 4, 5}, name: "bob", issuer: "Bank", algorithm: 3, digits: 2, typ: 1, counter: 7},
	))

	accounts, err := ParseURI(uri)
	require.NoError(t, err)
	require.Equal(t, []Account{
		{Issuer: "Example", Name: "alice@example.com", Secret: "JBSWY3DPEHPK3PXP", Algorithm: "SHA1", Digits: 6, Type: "TOTP"},
		{Issuer: "Bank", Name: "bob", Secret: "AEBAGBAF", Algorithm: "SHA512", Digits: 8, Type: "HOTP", Counter: 7},
	}, accounts)
}

func TestParseURI_UnpaddedAndUnescapedData(t *testing.T) {
	data := payload(otpFixture{secret: helloSecret, name: "x", issuer: "Y", typ: 2})
	enc := base64.RawStdEncoding.EncodeToString(data)

	accounts, err := ParseURI("otpauth-migration://offline?data=" + enc)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "JBSWY3DPEHPK3PXP", accounts[0].Secret)

	urlSafe := base64.RawURLEncoding.EncodeToString(data)
	accounts, err = ParseURI("otpauth-migration://offline?data=" + urlSafe)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestParseURI_IssuerFromName(t *testing.T) {
	uri := migrationURI(payload(otpFixture{secret: helloSecret, name: "GitHub:octocat"}))

	accounts, err := ParseURI(uri)
	require.NoError(t, err)
	require.Equal(t, "GitHub", accounts[0].Issuer)
	require.Equal(t, "octocat", accounts[0].Name)
}

func TestParseURI_EnumMappings(t *testing.T) {
	tests := []struct {
		algorithm, digits, typ uint64
		wantAlgo               string
		wantDigits             int
		wantType               string
	}{
		{0, 0, 0, "SHA1", 6, "TOTP"},
		{2, 1, 2, "SHA256", 6, "TOTP"},
		{4, 2, 1, "MD5", 8, "HOTP"},
		{9, 9, 9, "UNKNOWN", 6, "UNKNOWN"},
	}

	for _, tt := range tests {
		acc, err := decodeAccount(otpFixture{secret: helloSecret, name: "n", algorithm: tt.algorithm, digits: tt.digits, typ: tt.typ}.marshal())
		require.NoError(t, err)
		require.Equal(t, tt.wantAlgo, acc.Algorithm)
		require.Equal(t, tt.wantDigits, acc.Digits)
		require.Equal(t, tt.wantType, acc.Type)
	}
}

func TestParseURI_Errors(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want error
	}{
		{"wrong scheme", "otpauth://totp/x?secret=ABC", ErrInvalidURI},
		{"wrong host", "otpauth-migration://online?data=AAAA", ErrInvalidURI},
		{"missing data", "otpauth-migration://offline?foo=bar", ErrInvalidURI},
		{"garbage", "::not a uri", ErrInvalidURI},
		{"bad base64", "otpauth-migration://offline?data=!!!!", ErrMalformedPayload},
		{"truncated protobuf", migrationURI([]byte{0x0a, 0x10, 0x01}), ErrMalformedPayload},
		{"no accounts", migrationURI(payload()), ErrNoAccounts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURI(tt.uri)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodePayload_BatchInfo(t *testing.T) {
	p, err := DecodePayload(payload(otpFixture{secret: helloSecret, name: "a"}))
	require.NoError(t, err)
	require.Equal(t, 1, p.Version)
	require.Equal(t, 2, p.BatchSize)
	require.Equal(t, 1, p.BatchIndex)
	require.Equal(t, int64(12345), p.BatchID)
	require.Len(t, p.Accounts, 1)
}

func TestDecodePayload_SkipsUnknownFields(t *testing.T) {
	b := payload(otpFixture{secret: helloSecret, name: "a"})
	b = protowire.AppendTag(b, 15, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 42)

	p, err := DecodePayload(b)
	require.NoError(t, err)
	require.Len(t, p.Accounts, 1)
}

func TestMerge(t *testing.T) {
	a := Account{Issuer: "zeta", Name: "1", Secret: "AAAA"}
	b := Account{Issuer: "Alpha", Name: "2", Secret: "BBBB"}
	bAgain := Account{Issuer: "Alpha", Name: "2-renamed", Secret: "BBBB"}
	c := Account{Issuer: "beta", Name: "3", Secret: "CCCC"}

	got := Merge([]Account{a, b}, []Account{bAgain, c})
	require.Equal(t, []Account{bAgain, c, a}, got)

	require.Empty(t, Merge())
}
