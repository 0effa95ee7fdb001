// Package templates holds the HTML views of the upload UI as templ
// components.
package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// htmlWriter writes markup and keeps the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func uploadPath(id fmt.Stringer) string {
	return "/uploads/" + id.String()
}

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` - Journal Import</title></head><body><header><a href="/">Journal Import</a></header><main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// ErrorAlert is the error fragment returned to HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><p class="alert-message">`)
		h.text(message)
		h.raw(`</p>`)
		if action != "" {
			h.raw(`<p class="alert-action">`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="alert-code">Code: `)
		h.text(code)
		h.raw(`</p></div>`)
		return h.err
	})
}

// UploadForm posts a file to the HTML upload route.
func UploadForm(accept []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<form class="upload-form" method="post" action="/uploads" enctype="multipart/form-data">`)
		h.raw(`<label>File <input type="file" name="file" required accept="`)
		for i, a := range accept {
			if i > 0 {
				h.raw(",")
			}
			h.text(a)
		}
		h.raw(`"></label>`)
		h.raw(`<label>Project <input type="text" name="project_id" placeholder="optional project id"></label>`)
		h.raw(`<button type="submit">Upload</button></form>`)
		return h.err
	})
}

// UploadTable lists uploads, newest first.
func UploadTable(uploads []journal.Upload) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if len(uploads) == 0 {
			h.raw(`<p class="empty">No uploads yet.</p>`)
			return h.err
		}
		h.raw(`<table class="uploads"><thead><tr><th>File</th><th>Type</th><th>Status</th><th>Entries</th><th>Uploaded</th></tr></thead><tbody>`)
		for _, u := range uploads {
			h.raw(`<tr><td><a href="`)
			h.text(uploadPath(u.ID))
			h.raw(`">`)
			h.text(u.OriginalFilename)
			h.raw(`</a></td><td>`)
			h.text(string(u.FileType))
			h.raw(`</td><td class="status status-`)
			h.text(string(u.Status))
			h.raw(`">`)
			h.text(string(u.Status))
			h.rawf(`</td><td>%d</td><td>`, u.ProcessedEntriesCount)
			h.text(formatTime(u.UploadedAt))
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// Dashboard is the landing page: the upload form and recent uploads.
func Dashboard(uploads []journal.Upload, accept []string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section><h1>Upload journal entries</h1>`)
		h.render(ctx, UploadForm(accept))
		h.raw(`</section><section><h2>Recent uploads</h2>`)
		h.render(ctx, UploadTable(uploads))
		h.raw(`</section>`)
		return h.err
	})
	return Layout("Uploads", body)
}

// UploadDetailParams is the data shown on an upload's page.
type UploadDetailParams struct {
	Upload journal.Upload
	Logs   []journal.LogEntry // most recent first
}

// LogList renders anomaly log entries.
func LogList(logs []journal.LogEntry) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if len(logs) == 0 {
			h.raw(`<p class="empty">No log entries.</p>`)
			return h.err
		}
		h.raw(`<ol class="logs">`)
		for _, l := range logs {
			h.raw(`<li class="log log-`)
			h.text(string(l.Level))
			h.raw(`"><time>`)
			h.text(formatTime(l.Timestamp))
			h.raw(`</time> <span class="level">`)
			h.text(string(l.Level))
			h.raw(`</span> <span class="message">`)
			h.text(l.Message)
			h.raw(`</span></li>`)
		}
		h.raw(`</ol>`)
		return h.err
	})
}

// UploadDetailPage shows one upload's status and its anomaly log.
func UploadDetailPage(p UploadDetailParams) templ.Component {
	u := p.Upload
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="upload-detail"><h1>`)
		h.text(u.OriginalFilename)
		h.raw(`</h1><dl><dt>Status</dt><dd class="status status-`)
		h.text(string(u.Status))
		h.raw(`">`)
		h.text(string(u.Status))
		h.raw(`</dd><dt>Type</dt><dd>`)
		h.text(string(u.FileType))
		h.rawf(`</dd><dt>Size</dt><dd>%d bytes</dd><dt>Entries created</dt><dd>%d</dd>`, u.FileSize, u.ProcessedEntriesCount)
		h.raw(`<dt>Uploaded</dt><dd>`)
		h.text(formatTime(u.UploadedAt))
		h.raw(`</dd>`)
		if u.ProcessedAt != nil {
			h.raw(`<dt>Processed</dt><dd>`)
			h.text(formatTime(*u.ProcessedAt))
			h.raw(`</dd>`)
		}
		if u.ErrorMessage != "" {
			h.raw(`<dt>Error</dt><dd class="error">`)
			h.text(u.ErrorMessage)
			h.raw(`</dd>`)
		}
		h.raw(`</dl>`)
		if !u.Status.Terminal() {
			h.raw(`<p class="in-progress">Still processing. <a href="">Refresh</a> for updates.</p>`)
		}
		h.raw(`</section><section><h2>Processing log</h2>`)
		h.render(ctx, LogList(p.Logs))
		h.raw(`</section>`)
		return h.err
	})
	return Layout(u.OriginalFilename, body)
}
