package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"resume-optimizer/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeTXT  = "text/plain"
	mimeRTF  = "application/rtf"
)

// ErrUnsupportedFormat means the file type is accepted for upload but its
// text cannot be extracted. Callers ask the user to paste the text instead.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrNoText means extraction succeeded but produced no readable text, as
// with scanned PDFs.
var ErrNoText = errors.New("no extractable text")

// ExtractText pulls text from a stored object and persists a derived .extracted.txt copy.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	text, err := ExtractTextFromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	extractedKey := fileKey + ".extracted.txt"
	if _, err := store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory payload.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	normalized := normalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimeTXT:
		text, err = extractPlain(data)
	case mimeRTF:
		text = stripRTF(string(data))
	case mimeDOC:
		return "", fmt.Errorf("%w: legacy .doc", ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: mime type %s", ErrUnsupportedFormat, normalized)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// maxDocumentXML bounds the decompressed word/document.xml read from a DOCX.
const maxDocumentXML = 8 << 20

// extractPDF reads the PDF row by row so each visual line of the resume
// stays on its own line. Pages are separated by a blank line.
func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if text := strings.TrimSpace(line.String()); text != "" {
				out.WriteString(text)
				out.WriteString("\n")
			}
		}
	}
	return out.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	doc := findZipEntry(zr, "word/document.xml")
	if doc == nil {
		return "", errors.New("open docx: word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxDocumentXML+1))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	if len(raw) > maxDocumentXML {
		return "", fmt.Errorf("%w: docx body exceeds %d bytes", ErrUnsupportedFormat, maxDocumentXML)
	}
	return docxText(raw), nil
}

// docxText flattens WordprocessingML: w:t runs become text, w:tab a tab,
// and paragraph or break ends a newline. Malformed XML keeps what was read.
func docxText(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "br":
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func openZip(data []byte) (*zip.Reader, error) {
	if len(data) == 0 {
		return nil, errors.New("empty archive")
	}
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

func findZipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}

func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnsupportedFormat)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF, mimeDOCX, mimeDOC, mimeTXT, mimeRTF:
		return clean
	case "text/rtf":
		return mimeRTF
	case "application/zip":
		if mapped := mapOOXMLFromZip(data); mapped != "" {
			return mapped
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		if clean == "application/zip" && mapOOXMLFromZip(data) == "" {
			return clean
		}
		return mimeDOCX
	case ".doc":
		return mimeDOC
	case ".txt":
		return mimeTXT
	case ".rtf":
		return mimeRTF
	}
	if clean == "" || clean == "application/octet-stream" {
		if bytes.HasPrefix(data, []byte("%PDF-")) {
			return mimePDF
		}
		if bytes.HasPrefix(data, []byte(`{\rtf`)) {
			return mimeRTF
		}
	}
	return clean
}

// mapOOXMLFromZip identifies Office Open XML packages sent as plain zip.
func mapOOXMLFromZip(data []byte) string {
	zr, err := openZip(data)
	if err != nil {
		return ""
	}
	switch {
	case findZipEntry(zr, "word/document.xml") != nil:
		return mimeDOCX
	case findZipEntry(zr, "xl/workbook.xml") != nil:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case findZipEntry(zr, "ppt/presentation.xml") != nil:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	}
	return ""
}
