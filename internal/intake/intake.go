// Package intake validates submitted files before an upload record is
// created. It enforces the size limit, sniffs the content type and decides
// which extraction path the file will take.
package intake

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JonMunkholm/journalimport/internal/journal"
)

// DefaultMaxFileSize matches the upload form limit.
const DefaultMaxFileSize = 10 << 20

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
	mimeCSV  = "text/csv"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

// Result describes an accepted file.
type Result struct {
	FileType journal.FileType
	MIME     string
	Size     int64
}

// Validator checks files against the configured limits.
type Validator struct {
	MaxFileSize int64
}

// New returns a Validator; a non-positive limit selects DefaultMaxFileSize.
func New(maxFileSize int64) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Validator{MaxFileSize: maxFileSize}
}

// Check validates data and classifies it. The filename only matters for
// telling CSV apart from other plain text when sniffing is inconclusive.
func (v *Validator) Check(filename string, data []byte) (Result, error) {
	size := int64(len(data))
	if size == 0 {
		return Result{}, ErrEmptyFile
	}
	if size > v.MaxFileSize {
		return Result{}, fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, size, v.MaxFileSize)
	}

	mt := mimetype.Detect(data)
	ft, ok := classify(mt, filename)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	return Result{FileType: ft, MIME: mt.String(), Size: size}, nil
}

func classify(mt *mimetype.MIME, filename string) (journal.FileType, bool) {
	switch {
	case mt.Is(mimePDF):
		return journal.FilePDF, true
	case mt.Is(mimeXLSX), mt.Is(mimeXLS):
		return journal.FileSpreadsheet, true
	case mt.Is(mimeCSV):
		// Pipe-delimited lines with a comma in the description sniff as CSV.
		if strings.EqualFold(filepath.Ext(filename), ".txt") {
			return journal.FileText, true
		}
		return journal.FileCSV, true
	case mt.Is(mimeText):
		if strings.EqualFold(filepath.Ext(filename), ".csv") {
			return journal.FileCSV, true
		}
		return journal.FileText, true
	}
	return "", false
}

// Allowed lists the accepted MIME types, for error messages and the upload form.
func Allowed() []string {
	return []string{mimePDF, mimeText, mimeCSV, mimeXLSX, mimeXLS}
}
