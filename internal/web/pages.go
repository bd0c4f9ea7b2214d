package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/Oracipher/Unsealer/internal/core"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:40rem;margin:2rem auto;color:#222}
fieldset{margin-bottom:1.5rem;padding:1rem}label{display:block;margin:.5rem 0}
textarea{width:100%;min-height:6rem}.err{border:1px solid #d33;background:#fdeaea;padding:1rem}`

// indexPage renders the upload form for both decoders.
func indexPage(maxFileSize int64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Unsealer</title><style>%s</style></head><body>
<h1>Unsealer</h1>
<p>Everything is processed on this machine. Nothing is stored.</p>
<form method="post" action="/api/samsung?format=html" enctype="multipart/form-data">
<fieldset><legend>Samsung Pass backup (.spass)</legend>
<label>Backup file <input type="file" name="file" accept=".spass" required></label>
<label>Master password <input type="password" name="password" autocomplete="off" required></label>
<small>Maximum size %s</small><br>
<button type="submit">Decrypt</button>
</fieldset></form>
<form method="post" action="/api/google">
<fieldset><legend>Google Authenticator export</legend>
<label>otpauth-migration:// links, one per line<textarea name="uris" required></textarea></label>
<button type="submit">Decode</button>
</fieldset></form>
</body></html>
`, pageStyle, templ.EscapeString(formatBytes(maxFileSize)))
		return err
	})
}

// errorPage renders a user message as a standalone page.
func errorPage(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Unsealer: error</title><style>%s</style></head><body>
<div class="err"><strong>%s</strong><p>%s</p><small>Code: %s</small></div>
<p><a href="/">Back</a></p>
</body></html>
`, pageStyle, templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
