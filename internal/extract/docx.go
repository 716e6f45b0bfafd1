package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultDocxBodyPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxBodyContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// Text nodes carry the content regardless of paragraph and run attributes,
// so matching <w:t> directly survives real-world markup.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// Override elements may order their attributes either way.
var bodyPartRes = []*regexp.Regexp{
	regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxBodyContentType) + `"`),
	regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxBodyContentType) + `"[^>]+PartName="([^"]+)"`),
}

// extractDOCX extracts the text nodes of a .docx body. The body part is
// resolved through [Content_Types].xml when present. cat is not used for
// docx because its paragraph regex misses runs with attributes and yields
// empty text for most real documents.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract docx: not a zip: %w", err)
	}
	body, err := readZipFile(zr, docxBodyPath(zr))
	if err != nil {
		return "", fmt.Errorf("extract docx: %w", err)
	}
	matches := wtTag.FindAllSubmatch(body, -1)
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, strings.TrimSpace(string(m[1])))
	}
	return strings.TrimSpace(strings.Join(texts, " ")), nil
}

// docxBodyPath resolves the main body part, falling back to the conventional
// location when [Content_Types].xml is absent or unhelpful.
func docxBodyPath(zr *zip.Reader) string {
	ct, err := readZipFile(zr, contentTypesPath)
	if err != nil {
		return defaultDocxBodyPath
	}
	for _, re := range bodyPartRes {
		if m := re.FindSubmatch(ct); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return defaultDocxBodyPath
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
