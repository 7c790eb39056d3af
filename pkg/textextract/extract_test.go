package textextract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRawText(t *testing.T) {
	data := []byte("  hello world\n")

	text, err := Extract(bytes.NewReader(data), int64(len(data)), "txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtractUnsupportedType(t *testing.T) {
	data := []byte("binary")

	_, err := Extract(bytes.NewReader(data), int64(len(data)), "exe")
	assert.Error(t, err)
}

func TestExtractDocx(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"word/document.xml": "<w:document><w:p><w:t>Hello</w:t><w:t>from docx</w:t></w:p></w:document>",
		"word/styles.xml":   "<w:styles><w:t>ignored</w:t></w:styles>",
	})

	text, err := Extract(bytes.NewReader(archive), int64(len(archive)), "docx")
	require.NoError(t, err)
	assert.Equal(t, "Hello from docx", text)
}

func TestExtractPptxOrdersSlides(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"ppt/slides/slide2.xml":      "<p:sld><a:t>second slide</a:t></p:sld>",
		"ppt/slides/slide1.xml":      "<p:sld><a:t>first slide</a:t></p:sld>",
		"ppt/notesSlides/notes1.xml": "<p:notes><a:t>speaker notes</a:t></p:notes>",
	})

	text, err := Extract(bytes.NewReader(archive), int64(len(archive)), "pptx")
	require.NoError(t, err)
	assert.Equal(t, "first slide second slide", text)
}

func TestExtractFileDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.MD")
	require.NoError(t, os.WriteFile(path, []byte("# Heading\n\nBody text."), 0o644))

	text, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nBody text.", text)
}

func TestIsSupported(t *testing.T) {
	for _, ext := range []string{"txt", ".pdf", "DOCX", ".Pptx", "md", "csv", "json"} {
		assert.True(t, IsSupported(ext), ext)
	}
	for _, ext := range []string{"exe", "png", "", ".doc", "xls"} {
		assert.False(t, IsSupported(ext), ext)
	}
}

func TestStripXMLTags(t *testing.T) {
	assert.Equal(t, "one two three", stripXMLTags("<a><b>one</b> two<c/>three</a>"))
	assert.Equal(t, "", stripXMLTags("<empty/>"))
}

func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
