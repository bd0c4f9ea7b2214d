package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Oracipher/Unsealer/internal/schema"
)

func testRegistry(t *testing.T, schemas ...schema.Schema) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(schemas...)
	require.NoError(t, err)
	return reg
}

func defaultRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	return reg
}

// row joins base64-encoded cells with the cell delimiter.
func row(cells ...string) string {
	enc := make([]string, len(cells))
	for i, c := range cells {
		enc[i] = b64(c)
	}
	return strings.Join(enc, ";")
}

func TestExtract_EndToEndExample(t *testing.T) {
	reg := testRegistry(t, schema.Schema{
		Name:        "pairs",
		Fingerprint: []string{"h1", "h2"},
		Fields:      []schema.Field{{Name: "h1"}, {Name: "h2"}},
	})

	res, err := NewDecrypter(reg).Extract(context.Background(), "h1;h2\nv1;v2\nnext_table\nh3;h4\nv3;v4")
	require.NoError(t, err)
	require.Equal(t, []string{"pairs", "unknown_data_1"}, res.Names())

	pairs, _ := res.Table("pairs")
	require.Equal(t, []Record{{"h1": "v1", "h2": "v2"}}, pairs.Records)

	unknown, _ := res.Table("unknown_data_1")
	require.Equal(t, []Record{{"h3": "v3", "h4": "v4"}}, unknown.Records)
	require.Empty(t, res.Warnings)
}

func TestExtract_UnknownNumberingFollowsEncounterOrder(t *testing.T) {
	reg := testRegistry(t, schema.Schema{
		Name:        "notes",
		Fingerprint: []string{"note_title"},
		Fields:      []schema.Field{{Name: "note_title"}},
	})

	plaintext := strings.Join([]string{
		"a;b\n1;2",
		"note_title;x\n" + row("t1", "x"),
		"c;d\n3;4",
		"note_title;y\n" + row("t2", "y"),
		"e;f\n5;6",
	}, "\nnext_table\n")

	res, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
	require.NoError(t, err)
	require.Equal(t, []string{"unknown_data_1", "notes", "unknown_data_2", "unknown_data_3"}, res.Names())

	u2, _ := res.Table("unknown_data_2")
	require.Equal(t, []Record{{"c": "3", "d": "4"}}, u2.Records)

	// Both notes segments land in the same table.
	notes, _ := res.Table("notes")
	require.Equal(t, []Record{{"note_title": "t1"}, {"note_title": "t2"}}, notes.Records)
}

func TestExtract_FirstMatchWins(t *testing.T) {
	reg := testRegistry(t,
		schema.Schema{Name: "a", Fingerprint: []string{"h1"}, Fields: []schema.Field{{Name: "h1"}}},
		schema.Schema{Name: "b", Fingerprint: []string{"h1", "h2"}, Fields: []schema.Field{{Name: "h2"}}},
	)

	res, err := NewDecrypter(reg).Extract(context.Background(), "h1;h2;h3\n"+row("x", "y", "z"))
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, res.Names())
}

func TestExtract_PlaceholderSegmentDiscarded(t *testing.T) {
	reg := testRegistry(t, schema.Schema{Name: "x", Fingerprint: []string{"zz"}, Fields: []schema.Field{{Name: "zz"}}})

	// The placeholder piece carries enough delimiters in its rows to pass
	// the noise filter, but must not consume an unknown number.
	plaintext := "24\na;b;c\nnext_table\nk1;k2\nv1;v2"

	res, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
	require.NoError(t, err)
	require.Equal(t, []string{"unknown_data_1"}, res.Names())
}

func TestExtract_NoisePiecesIgnored(t *testing.T) {
	reg := testRegistry(t, schema.Schema{Name: "x", Fingerprint: []string{"zz"}, Fields: []schema.Field{{Name: "zz"}}})

	plaintext := "garbage\nnext_table\n   \nnext_table\na;b\nnext_table\nk1;k2\nv1;v2"
	segs := SplitSegments(plaintext)
	require.Len(t, segs, 1)
	require.Equal(t, 3, segs[0].Index)

	res, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
	require.NoError(t, err)
	require.Equal(t, []string{"unknown_data_1"}, res.Names())
}

func TestExtract_EmptyValuesOmitted(t *testing.T) {
	reg := defaultRegistry(t)

	header := "title;username_value;password_value;origin_url;credential_memo;otp"
	rows := []string{
		strings.Join([]string{b64("Bank"), b64("alice"), b64("s3cret"), b64("android://h@bank"), NullSentinel, ""}, ";"),
		// Every cell empty or null: the record is dropped.
		strings.Join([]string{"", NullSentinel, "", "", "", NullSentinel}, ";"),
	}

	res, err := NewDecrypter(reg).Extract(context.Background(), header+"\n"+strings.Join(rows, "\n"))
	require.NoError(t, err)

	logins, ok := res.Table("logins")
	require.True(t, ok)
	require.Equal(t, []Record{{
		"title":          "Bank",
		"username_value": "alice",
		"password_value": "s3cret",
		"origin_url":     "bank",
	}}, logins.Records)
}

func TestExtract_SamsungTables(t *testing.T) {
	reg := defaultRegistry(t)

	otp := `"{\"secret\":\"JBSWY3DP\",\"name\":\"alice@example.com\"}"`
	logins := "_id;title;username_value;password_value;origin_url;otp\n" +
		row("1", "Mail", "alice", "pw1", "https://mail.example.com", otp)

	phones := b64("+1 555 0100") + "#mobile&&&" + b64("+1 555 0199") + "#work"
	identities := "name;id_card_detail;telephone_number_list;email_address_list\n" +
		row("Alice", `{"mIDCardNumber":"X123","mUsername":"Alice A"}`, phones, "")

	addresses := "full_name;street_address;city;zipcode\n" + row("Alice A", "1 Main St", "Springfield", "12345")
	notes := "note_title;note_detail;extra\n" + row("Wifi", "router pw: abc", "ignored")

	plaintext := strings.Join([]string{logins, identities, addresses, notes, "24\n1;2;3"}, "\nnext_table\n")

	res, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
	require.NoError(t, err)
	require.Equal(t, []string{"logins", "identities", "addresses", "notes"}, res.Names())

	l, _ := res.Table("logins")
	require.Equal(t, Record{
		"title":          "Mail",
		"username_value": "alice",
		"password_value": "pw1",
		"origin_url":     "https://mail.example.com",
		"otp":            map[string]any{"secret": "JBSWY3DP", "name": "alice@example.com"},
	}, l.Records[0])
	require.NotContains(t, l.Records[0], "_id", "only schema fields are extracted")

	id, _ := res.Table("identities")
	require.Equal(t, []string{"+1 555 0100", "+1 555 0199"}, id.Records[0]["telephone_number_list"])
	require.Equal(t, map[string]any{"mIDCardNumber": "X123", "mUsername": "Alice A"}, id.Records[0]["id_card_detail"])
	require.NotContains(t, id.Records[0], "email_address_list")

	n, _ := res.Table("notes")
	require.Equal(t, []Record{{"note_title": "Wifi", "note_detail": "router pw: abc"}}, n.Records)
	require.Equal(t, 4, res.RecordCount())
}

func TestExtract_BareQuoteKeepsRows(t *testing.T) {
	reg := testRegistry(t, schema.Schema{
		Name:        "pairs",
		Fingerprint: []string{"h1", "h2"},
		Fields:      []schema.Field{{Name: "h1"}, {Name: "h2"}},
	})

	plaintext := "h1;h2;h3\nv1;a\"b;v3\nw1;w2;w3\nnext_table\nk1;k2\nx1;x2"

	res, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Equal(t, []string{"pairs", "unknown_data_1"}, res.Names())

	pairs, _ := res.Table("pairs")
	require.Equal(t, []Record{
		{"h1": "v1", "h2": `a"b`},
		{"h1": "w1", "h2": "w2"},
	}, pairs.Records)
}

func TestExtract_BareQuoteInEncodedRows(t *testing.T) {
	reg := defaultRegistry(t)
	plaintext := "note_title;note_detail\n" + row("Door code", "4711") +
		"\nbroken\"cell;" + b64("kept") + "\n" + row("Wifi", "abc")

	res, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
	require.NoError(t, err)

	notes, _ := res.Table("notes")
	require.Equal(t, []Record{
		{"note_title": "Door code", "note_detail": "4711"},
		{"note_title": `broken"cell`, "note_detail": "kept"},
		{"note_title": "Wifi", "note_detail": "abc"},
	}, notes.Records)
}

func TestExtract_UnterminatedQuoteAtSegmentEnd(t *testing.T) {
	reg := testRegistry(t, schema.Schema{Name: "x", Fingerprint: []string{"zz"}, Fields: []schema.Field{{Name: "zz"}}})

	res, err := NewDecrypter(reg).Extract(context.Background(), "a;b\nv1;\"open\nnext_table\nk1;k2\nv3;v4")
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Equal(t, []string{"unknown_data_1", "unknown_data_2"}, res.Names())

	first, _ := res.Table("unknown_data_1")
	require.Equal(t, []Record{{"a": "v1", "b": "open"}}, first.Records)
}

func TestExtract_NoData(t *testing.T) {
	reg := defaultRegistry(t)

	for _, plaintext := range []string{
		"",
		"just some text",
		"24\n1;2;3",
		"note_title;note_detail\n" + NullSentinel + ";",
	} {
		_, err := NewDecrypter(reg).Extract(context.Background(), plaintext)
		require.ErrorIs(t, err, ErrNoData, "plaintext %q", plaintext)
	}
}

func TestDecrypt_RoundTrip(t *testing.T) {
	reg := defaultRegistry(t)
	plaintext := "note_title;note_detail;x\n" + row("Door code", "4711", "") +
		"\nnext_table\nfoo;bar\n" + row("1", "2")

	content, err := Seal([]byte(plaintext), "correct horse", testSalt, testIV)
	require.NoError(t, err)

	res, err := NewDecrypter(reg).Decrypt(context.Background(), content, "correct horse")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.RunID)
	require.Equal(t, []string{"notes", "unknown_data_1"}, res.Names())

	notes, _ := res.Table("notes")
	require.Equal(t, []Record{{"note_title": "Door code", "note_detail": "4711"}}, notes.Records)
}

func TestDecrypt_PlaintextRoundTrip(t *testing.T) {
	for _, plain := range []string{"", "x", "exactly sixteen!", strings.Repeat("データ;", 100)} {
		content, err := Seal([]byte(plain), "pw", testSalt, testIV)
		require.NoError(t, err)

		raw, err := DecodeEnvelope(content)
		require.NoError(t, err)
		blob, err := ParseBlob(raw)
		require.NoError(t, err)

		got, err := DecryptCBC(DeriveKey("pw", blob.Salt), blob.IV, blob.Ciphertext)
		require.NoError(t, err)
		require.Equal(t, plain, string(got))
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	reg := defaultRegistry(t)
	plaintext := "note_title;note_detail;x\n" + row("Door code", "4711 is the code for the back door", "")

	content, err := Seal([]byte(plaintext), "right", testSalt, testIV)
	require.NoError(t, err)

	for _, pw := range []string{"wrong", "Right", ""} {
		res, err := NewDecrypter(reg).Decrypt(context.Background(), content, pw)
		require.Nil(t, res)
		require.Equal(t, ErrCrypto, err, "password %q", pw)
	}
}

func TestDecrypt_InputFormatErrors(t *testing.T) {
	reg := defaultRegistry(t)
	d := NewDecrypter(reg)

	_, err := d.Decrypt(context.Background(), []byte("%%% not base64 %%%"), "pw")
	require.ErrorIs(t, err, ErrInputFormat)

	_, err = d.Decrypt(context.Background(), EncodeEnvelope(make([]byte, 35)), "pw")
	require.ErrorIs(t, err, ErrInputFormat)

	// Valid layout but no ciphertext is a crypto failure, not a format one.
	_, err = d.Decrypt(context.Background(), EncodeEnvelope(make([]byte, 36)), "pw")
	require.Equal(t, ErrCrypto, err)
}

func TestDecrypt_NonUTF8PlaintextIsCryptoError(t *testing.T) {
	content, err := Seal([]byte{0xff, 0xfe, 0xfd, ';', ';'}, "pw", testSalt, testIV)
	require.NoError(t, err)

	_, err = NewDecrypter(defaultRegistry(t)).Decrypt(context.Background(), content, "pw")
	require.Equal(t, ErrCrypto, err)
}

func TestResult_JSONShape(t *testing.T) {
	res, err := NewDecrypter(defaultRegistry(t)).Extract(context.Background(),
		"note_title;note_detail\n"+row("a", "b"))
	require.NoError(t, err)

	out, err := json.Marshal(res.Tables)
	require.NoError(t, err)
	require.JSONEq(t, `[{"Name":"notes","Records":[{"note_title":"a","note_detail":"b"}]}]`, string(out))
}
