package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Oracipher/Unsealer/internal/core"
)

// addressPlaceholder is the name Samsung Pass gives an address slot the user
// never filled in.
const addressPlaceholder = "添加地址/名称"

const sensitiveWarning = "This file contains passwords, 2FA secrets and identity documents. Keep it somewhere safe and delete it when you are done."

type tableFormatter func(b *strings.Builder, t *core.Table)

var markdownFormatters = map[string]tableFormatter{
	TableLogins:     markdownLogins,
	TableIdentities: markdownIdentities,
	TableAddresses:  markdownAddresses,
	TableNotes:      markdownNotes,
}

func writeMarkdown(w io.Writer, res *core.Result, opts Options) error {
	var b strings.Builder

	b.WriteString("# Unsealer decryption report\n\n")
	if opts.Source != "" {
		fmt.Fprintf(&b, "- **Source**: `%s`\n", opts.Source)
	}
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- **Generated**: %s\n", opts.GeneratedAt.Format(timeLayout))
	}
	fmt.Fprintf(&b, "- **Summary**: %d categories, %d records\n\n", len(res.Tables), res.RecordCount())
	fmt.Fprintf(&b, "**[!] %s**\n\n", sensitiveWarning)

	for _, t := range OrderedTables(res) {
		format, ok := markdownFormatters[t.Name]
		if !ok {
			format = markdownGeneric
		}
		format(&b, t)
	}

	if len(res.Warnings) > 0 {
		b.WriteString("## Skipped segments\n\n")
		for _, warn := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn.Error())
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func markdownHeading(b *strings.Builder, t *core.Table) {
	fmt.Fprintf(b, "## %s (%d)\n\n", DisplayName(t.Name), len(t.Records))
}

func markdownLogins(b *strings.Builder, t *core.Table) {
	markdownHeading(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "### %d. %s\n", i+1, textOr(rec, "title", "Untitled login"))
		fmt.Fprintf(b, "- **Username**: `%s`\n", textOr(rec, "username_value", notAvailable))
		fmt.Fprintf(b, "- **Password**: `%s`\n", textOr(rec, "password_value", notAvailable))
		if url := text(rec, "origin_url"); url != "" {
			fmt.Fprintf(b, "- **Website / app**: `%s`\n", url)
		}
		if memo := text(rec, "credential_memo"); memo != "" {
			fmt.Fprintf(b, "- **Memo**: %s\n", memo)
		}
		if otp, ok := object(rec, "otp"); ok && formatValue(otp["secret"]) != "" {
			b.WriteString("- **[!] 2FA secret**:\n")
			fmt.Fprintf(b, "  - **Secret**: `%s`\n", formatValue(otp["secret"]))
			fmt.Fprintf(b, "  - **Account**: `%s`\n", objectText(otp, "name", notAvailable))
		}
		b.WriteString("\n---\n\n")
	}
}

func markdownIdentities(b *strings.Builder, t *core.Table) {
	markdownHeading(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "### %d. %s\n", i+1, textOr(rec, "name", "Unnamed identity"))
		if card, ok := object(rec, "id_card_detail"); ok {
			fmt.Fprintf(b, "- **ID number**: `%s`\n", objectText(card, "mIDCardNumber", notAvailable))
			fmt.Fprintf(b, "- **Name on card**: `%s`\n", objectText(card, "mUsername", notAvailable))
			fmt.Fprintf(b, "- **Date of birth**: `%s`\n", objectText(card, "mBirthDay", notAvailable))
		}
		if phones := list(rec, "telephone_number_list"); len(phones) > 0 {
			fmt.Fprintf(b, "- **Phone**: %s\n", codeList(phones))
		}
		if emails := list(rec, "email_address_list"); len(emails) > 0 {
			fmt.Fprintf(b, "- **Email**: %s\n", codeList(emails))
		}
		b.WriteString("\n---\n\n")
	}
}

func markdownAddresses(b *strings.Builder, t *core.Table) {
	markdownHeading(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "### %d. %s\n", i+1, addressName(rec, i+1))
		if addr := joinAddress(rec); addr != "" {
			fmt.Fprintf(b, "- **Address**: %s\n", addr)
		}
		if phone := text(rec, "phone_number"); phone != "" {
			fmt.Fprintf(b, "- **Phone**: `%s`\n", phone)
		}
		if email := text(rec, "email"); email != "" {
			fmt.Fprintf(b, "- **Email**: `%s`\n", email)
		}
		b.WriteString("\n---\n\n")
	}
}

func markdownNotes(b *strings.Builder, t *core.Table) {
	markdownHeading(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "### %d. %s\n", i+1, textOr(rec, "note_title", "Untitled note"))
		fmt.Fprintf(b, "```\n%s\n```\n", text(rec, "note_detail"))
		b.WriteString("\n---\n\n")
	}
}

func markdownGeneric(b *strings.Builder, t *core.Table) {
	markdownHeading(b, t)
	for i, rec := range t.Records {
		fmt.Fprintf(b, "### %d.\n", i+1)
		for _, k := range sortedKeys(rec) {
			fmt.Fprintf(b, "- **%s**: `%s`\n", k, formatValue(rec[k]))
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

// addressName is the entry title for an address; unnamed and placeholder
// entries get a numbered name.
func addressName(rec core.Record, n int) string {
	name := text(rec, "full_name")
	switch name {
	case "":
		return fmt.Sprintf("Address %d", n)
	case addressPlaceholder:
		return fmt.Sprintf("Address %d (template)", n)
	default:
		return name
	}
}

func joinAddress(rec core.Record) string {
	var parts []string
	for _, k := range []string{"street_address", "city", "state", "zipcode", "country_code"} {
		if s := text(rec, k); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
