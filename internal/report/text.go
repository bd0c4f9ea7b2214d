package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Oracipher/Unsealer/internal/core"
)

var textFormatters = map[string]tableFormatter{
	TableLogins:     textLogins,
	TableIdentities: textIdentities,
	TableAddresses:  textAddresses,
	TableNotes:      textNotes,
}

func writeText(w io.Writer, res *core.Result, opts Options) error {
	var b strings.Builder

	b.WriteString("Unsealer decryption report\n")
	b.WriteString("--------------------------\n")
	if opts.Source != "" {
		fmt.Fprintf(&b, "Source:    %s\n", opts.Source)
	}
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n", opts.GeneratedAt.Format(timeLayout))
	}
	fmt.Fprintf(&b, "Summary:   %d categories, %d records\n\n", len(res.Tables), res.RecordCount())
	fmt.Fprintf(&b, "!!!!!!!! WARNING !!!!!!!!\n%s\n", sensitiveWarning)

	for _, t := range OrderedTables(res) {
		format, ok := textFormatters[t.Name]
		if !ok {
			format = textGeneric
		}
		format(&b, t)
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(&b, "\nwarning: %s", warn.Error())
	}
	b.WriteString("\n\n--- end of report ---\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func textBanner(b *strings.Builder, t *core.Table) {
	title := fmt.Sprintf(" %s (%d)", DisplayName(t.Name), len(t.Records))
	rule := strings.Repeat("=", len(title)+1)
	fmt.Fprintf(b, "\n\n%s\n%s\n%s", rule, title, rule)
}

// textLine writes a "label: value" line with the label padded to a column.
func textLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "\n%-12s %s", label+":", value)
}

func textLogins(b *strings.Builder, t *core.Table) {
	textBanner(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "\n\n--- [ %d. %s ] ---", i+1, textOr(rec, "title", "Untitled login"))
		textLine(b, "Username", textOr(rec, "username_value", notAvailable))
		textLine(b, "Password", textOr(rec, "password_value", notAvailable))
		if url := text(rec, "origin_url"); url != "" {
			textLine(b, "Website/app", url)
		}
		if memo := text(rec, "credential_memo"); memo != "" {
			textLine(b, "Memo", memo)
		}
		if otp, ok := object(rec, "otp"); ok && formatValue(otp["secret"]) != "" {
			b.WriteString("\n\n  [!!] 2FA secret:")
			fmt.Fprintf(b, "\n    %-9s %s", "Secret:", formatValue(otp["secret"]))
			fmt.Fprintf(b, "\n    %-9s %s", "Account:", objectText(otp, "name", notAvailable))
		}
	}
}

func textIdentities(b *strings.Builder, t *core.Table) {
	textBanner(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "\n\n--- [ %d. %s ] ---", i+1, textOr(rec, "name", "Unnamed identity"))
		if card, ok := object(rec, "id_card_detail"); ok {
			textLine(b, "ID number", objectText(card, "mIDCardNumber", notAvailable))
			textLine(b, "Name", objectText(card, "mUsername", notAvailable))
			textLine(b, "Born", objectText(card, "mBirthDay", notAvailable))
		}
		if phones := list(rec, "telephone_number_list"); len(phones) > 0 {
			textLine(b, "Phone", strings.Join(phones, ", "))
		}
		if emails := list(rec, "email_address_list"); len(emails) > 0 {
			textLine(b, "Email", strings.Join(emails, ", "))
		}
	}
}

func textAddresses(b *strings.Builder, t *core.Table) {
	textBanner(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "\n\n--- [ %d. %s ] ---", i+1, addressName(rec, i+1))
		if addr := joinAddress(rec); addr != "" {
			textLine(b, "Address", addr)
		}
		if phone := text(rec, "phone_number"); phone != "" {
			textLine(b, "Phone", phone)
		}
		if email := text(rec, "email"); email != "" {
			textLine(b, "Email", email)
		}
	}
}

func textNotes(b *strings.Builder, t *core.Table) {
	textBanner(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "\n\n--- [ %d. %s ] ---\n", i+1, textOr(rec, "note_title", "Untitled note"))
		b.WriteString(text(rec, "note_detail"))
	}
}

func textGeneric(b *strings.Builder, t *core.Table) {
	textBanner(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "\n\n--- [ %d ] ---", i+1)
		for _, k := range sortedKeys(rec) {
			textLine(b, k, formatValue(rec[k]))
		}
	}
}
