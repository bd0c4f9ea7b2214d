package web

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Oracipher/Unsealer/internal/gauth"
	"github.com/Oracipher/Unsealer/internal/logging"
	"github.com/Oracipher/Unsealer/internal/report"
)

// multipartOverhead is extra body room for form boundaries and the
// password field on top of the file size limit.
const multipartOverhead = 64 << 10

// maxGoogleBody bounds the form body of an authenticator request.
const maxGoogleBody = 1 << 20

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage(s.cfg.Decrypt.MaxFileSize).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleHealth reports liveness and the loaded schemas.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"schemas": s.decrypter.Registry().Names(),
		"decrypt": s.limiter.Status(),
	})
}

// handleSamsung decodes an uploaded Samsung Pass backup. The multipart form
// carries the backup as "file" and the master password as "password".
// The response is the JSON report, or the HTML report with ?format=html.
func (s *Server) handleSamsung(w http.ResponseWriter, r *http.Request) {
	content, filename, err := readUpload(w, r, s.cfg.Decrypt.MaxFileSize)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.decrypter.Decrypt(r.Context(), content, r.FormValue("password"))
	s.limiter.Release()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	opts := report.Options{GeneratedAt: time.Now(), Source: filename}
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.HTML(res, opts).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render report", "error", err)
		}
		return
	}
	writeJSON(w, r, report.NewJSONReport(res, opts))
}

// readUpload reads the "file" part of a multipart request of at most maxSize
// bytes. The form memory bound covers the whole capped body, so the upload
// is never spilled to a temp file.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) ([]byte, string, error) {
	limit := maxSize + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			err = errNoFile
		}
		return nil, "", fmt.Errorf("parse form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxSize {
		return nil, "", errFileTooLarge
	}
	return content, header.Filename, nil
}

// GoogleResponse is the JSON body returned by the authenticator endpoint.
type GoogleResponse struct {
	Count    int             `json:"count"`
	Accounts []gauth.Account `json:"accounts"`
}

// handleGoogle decodes one or more otpauth-migration links. Links come from
// repeated "uri" form fields or a "uris" field with one link per line.
// ?format=md returns the Markdown report instead of JSON.
func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGoogleBody)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	uris := collectURIs(r.PostForm["uri"], r.PostForm.Get("uris"))
	if len(uris) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: no uri provided", gauth.ErrInvalidURI))
		return
	}

	batches := make([][]gauth.Account, 0, len(uris))
	for _, uri := range uris {
		accounts, err := gauth.ParseURI(uri)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		batches = append(batches, accounts)
	}
	accounts := gauth.Merge(batches...)

	logging.FromContext(r.Context()).Info("migration links decoded", "links", len(uris), "accounts", len(accounts))

	if strings.EqualFold(r.URL.Query().Get("format"), "md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		if err := report.WriteAccountsMarkdown(w, accounts, report.Options{GeneratedAt: time.Now()}); err != nil {
			logging.FromContext(r.Context()).Error("write accounts report", "error", err)
		}
		return
	}
	writeJSON(w, r, GoogleResponse{Count: len(accounts), Accounts: accounts})
}

// collectURIs gathers non-empty links from single fields and a multi-line
// field, dropping exact repeats.
func collectURIs(fields []string, multiline string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, f := range fields {
		add(f)
	}
	sc := bufio.NewScanner(strings.NewReader(multiline))
	for sc.Scan() {
		add(sc.Text())
	}
	return out
}
