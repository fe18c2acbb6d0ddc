package source

import (
	"bytes"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// binarySniffLen is how much of the decoded text is checked for NUL bytes.
const binarySniffLen = 512

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".csv": {}, ".tsv": {}, ".json": {}, ".log": {},
}

// TextExtractor turns fetched bytes into plain text. PDF pages are read
// through their text layer, and DOCX and XLSX through the archive XML.
// For plain text a BOM selects UTF-8 or UTF-16; otherwise the bytes must
// be valid UTF-8 or are decoded as Shift_JIS, which is what older Japanese
// documents are saved as. Anything else comes back as ErrUnsupportedFormat.
type TextExtractor struct{}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractText implements Extractor.
func (TextExtractor) ExtractText(data []byte, filename string) (out Extraction) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extractor_panic", slog.String("file", filename), slog.Any("panic", r))
			out = Extraction{Err: amanerrors.ExtractionError(filename, fmt.Errorf("panic: %v", r))}
		}
	}()

	ext := Ext(filename)
	if len(data) == 0 {
		if _, ok := textExtensions[ext]; ok {
			return Extraction{}
		}
	}

	var document func([]byte) (string, error)
	switch ext {
	case ".pdf":
		document = extractPDF
	case ".docx":
		document = extractDOCX
	case ".xlsx":
		document = extractXLSX
	}
	if document != nil {
		text, err := document(data)
		if err != nil {
			return Extraction{Err: amanerrors.ExtractionError(filename, err).WithDetail("ext", ext)}
		}
		return Extraction{Text: text}
	}

	if _, ok := textExtensions[ext]; !ok {
		return Extraction{Err: amanerrors.ExtractionError(filename, ErrUnsupportedFormat).WithDetail("ext", ext)}
	}

	text, err := decodeText(data)
	if err != nil {
		return Extraction{Err: amanerrors.ExtractionError(filename, err)}
	}
	sniff := text
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return Extraction{Err: amanerrors.ExtractionError(filename, fmt.Errorf("binary content"))}
	}
	return Extraction{Text: string(text)}
}

func decodeText(data []byte) ([]byte, error) {
	text, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(text) {
		return text, nil
	}
	sjis, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("neither UTF-8 nor Shift_JIS: %w", err)
	}
	return sjis, nil
}
