package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract pulls plain text out of a document by extension.
// ext is matched case-insensitively with or without a leading dot.
func Extract(data io.ReaderAt, size int64, ext string) (string, error) {
	switch normalizeExt(ext) {
	case "pdf":
		return extractPDF(data, size)
	case "docx":
		return extractZipXML(data, size, isDocxPart)
	case "pptx":
		return extractZipXML(data, size, isPptxPart)
	case "txt", "md", "csv", "json":
		return extractRaw(data, size)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// ExtractFile is the disk-backed convenience wrapper used by the upload
// pipeline and the file-content endpoint.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return Extract(f, info.Size(), ext)
}

func SupportedExtensions() []string {
	return []string{"txt", "pdf", "docx", "pptx", "md", "csv", "json"}
}

func IsSupported(ext string) bool {
	e := normalizeExt(ext)
	for _, s := range SupportedExtensions() {
		if e == s {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func extractPDF(data io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Broken pages are skipped, not fatal.
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String()), nil
}

func isDocxPart(name string) bool {
	return name == "word/document.xml"
}

func isPptxPart(name string) bool {
	return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
}

// extractZipXML handles the OOXML family (docx, pptx): both are zip
// containers whose text lives in XML parts selected by the part filter.
func extractZipXML(data io.ReaderAt, size int64, wantPart func(string) bool) (string, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	var parts []string
	for _, f := range reader.File {
		if wantPart(f.Name) {
			parts = append(parts, f.Name)
		}
	}
	// Slides arrive in zip order; sort so slide2 follows slide1.
	sort.Strings(parts)

	var buf strings.Builder
	for _, name := range parts {
		content, err := readZipPart(reader, name)
		if err != nil {
			return "", err
		}
		buf.WriteString(stripXMLTags(string(content)))
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String()), nil
}

func readZipPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("part %s not found", name)
}

func extractRaw(data io.ReaderAt, size int64) (string, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(bytes.TrimSpace(buf)), nil
}

func stripXMLTags(s string) string {
	var result strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			result.WriteRune(' ')
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
