// Package documents loads local files into domain documents and inspects PDF payloads.
package documents

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"doc-translator/internal/domain"
)

var (
	ErrFileTooLarge = errors.New("file exceeds size limit")
	ErrNotRegular   = errors.New("path is not a regular file")
)

// FromFile reads path into a document whose declared type comes from the file
// extension. maxSize <= 0 disables the size check.
func FromFile(path string, maxSize int64) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return domain.Document{}, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return domain.Document{}, fmt.Errorf(
			"%w: %s is %s, limit %s",
			ErrFileTooLarge,
			filepath.Base(path),
			units.HumanSize(float64(info.Size())),
			units.HumanSize(float64(maxSize)),
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	return domain.Document{
		Name:        filepath.Base(path),
		ContentType: ContentTypeFor(path),
		Data:        data,
	}, nil
}

// ContentTypeFor returns the media type registered for the file extension, without parameters.
func ContentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return domain.ContentTypePDF
	}
	mediaType, _, _ := strings.Cut(mime.TypeByExtension(ext), ";")
	return strings.TrimSpace(mediaType)
}

// PageCount parses the payload as a PDF and returns its page count.
func PageCount(doc domain.Document) (int, error) {
	if doc.IsEmpty() {
		return 0, fmt.Errorf("count pages: empty document")
	}
	count, err := api.PageCount(bytes.NewReader(doc.Data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

// HumanSize formats a byte count for display.
func HumanSize(size int) string {
	return units.HumanSize(float64(size))
}
