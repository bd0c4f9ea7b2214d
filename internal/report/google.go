package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Oracipher/Unsealer/internal/gauth"
)

// WriteAccountsMarkdown renders Google Authenticator accounts as a
// Markdown table.
func WriteAccountsMarkdown(w io.Writer, accounts []gauth.Account, opts Options) error {
	var b strings.Builder

	b.WriteString("# Google Authenticator export\n\n")
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- **Generated**: %s\n", opts.GeneratedAt.Format(timeLayout))
	}
	fmt.Fprintf(&b, "- **Accounts**: %d\n\n", len(accounts))
	fmt.Fprintf(&b, "**[!] %s**\n\n", sensitiveWarning)

	b.WriteString("| # | Issuer | Name | Secret (Base32) | Type | Algorithm | Digits |\n")
	b.WriteString("| :--- | :--- | :--- | :--- | :--- | :--- | :--- |\n")
	for i, acc := range accounts {
		fmt.Fprintf(&b, "| %d | %s | %s | `%s` | %s | %s | %d |\n",
			i+1, cell(acc.Issuer), cell(acc.Name), acc.Secret, acc.Type, acc.Algorithm, acc.Digits)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
