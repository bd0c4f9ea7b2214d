package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/Oracipher/Unsealer/internal/core"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;margin-bottom:2rem;font-size:.9rem}
th,td{border:1px solid #ccc;padding:.3rem .6rem;text-align:left;vertical-align:top}
th{background:#f3f3f3}
.warn{background:#fff4e5;border:1px solid #f0b36b;padding:.6rem;margin-bottom:1.5rem}
td{white-space:pre-wrap;word-break:break-all}`

// HTML renders res as a self-contained HTML page with one table per
// decoded table. Every value is escaped.
func HTML(res *core.Result, opts Options) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		b.WriteString("<title>Unsealer report</title><style>" + pageStyle + "</style></head><body>")
		b.WriteString("<h1>Unsealer decryption report</h1>")
		b.WriteString("<p>")
		if opts.Source != "" {
			fmt.Fprintf(&b, "Source: <code>%s</code><br>", templ.EscapeString(opts.Source))
		}
		if !opts.GeneratedAt.IsZero() {
			fmt.Fprintf(&b, "Generated: %s<br>", opts.GeneratedAt.Format(timeLayout))
		}
		fmt.Fprintf(&b, "%d categories, %d records</p>", len(res.Tables), res.RecordCount())
		fmt.Fprintf(&b, "<div class=\"warn\">%s</div>", templ.EscapeString(sensitiveWarning))

		for _, t := range OrderedTables(res) {
			htmlTable(&b, t)
		}

		if len(res.Warnings) > 0 {
			b.WriteString("<h2>Skipped segments</h2><ul>")
			for _, warn := range res.Warnings {
				fmt.Fprintf(&b, "<li>%s</li>", templ.EscapeString(warn.Error()))
			}
			b.WriteString("</ul>")
		}
		b.WriteString("</body></html>\n")

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func htmlTable(b *strings.Builder, t *core.Table) {
	headers, rows := flattenTable(t)

	fmt.Fprintf(b, "<section id=\"%s\"><h2>%s (%d)</h2><table><thead><tr>",
		templ.EscapeString(t.Name), templ.EscapeString(DisplayName(t.Name)), len(t.Records))
	b.WriteString("<th>#</th>")
	for _, h := range headers {
		fmt.Fprintf(b, "<th>%s</th>", templ.EscapeString(h))
	}
	b.WriteString("</tr></thead><tbody>")

	for i, row := range rows {
		fmt.Fprintf(b, "<tr><td>%d</td>", i+1)
		for _, h := range headers {
			fmt.Fprintf(b, "<td>%s</td>", templ.EscapeString(row[h]))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></section>")
}
