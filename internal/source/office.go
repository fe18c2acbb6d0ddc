package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/ledongthuc/pdf"
)

// errNoText marks a document that parsed but holds no extractable text,
// such as a scanned PDF without a text layer.
var errNoText = errors.New("document has no text layer")

// maxZipEntryBytes bounds how much of one archive member is inflated.
const maxZipEntryBytes = 64 << 20

// extractPDF concatenates the text of every page.
func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return "", errNoText
	}
	return text, nil
}

// extractDOCX returns the paragraphs of word/document.xml, one per line.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	body, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	dec := xml.NewDecoder(bytes.NewReader(body))
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteByte('\t')
			case "br", "cr":
				buf.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// extractXLSX returns every worksheet as tab separated rows. Shared strings
// are resolved; numbers and formulas' cached values come out as stored.
func extractXLSX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}

	var shared []string
	if body, err := readZipEntry(zr, "xl/sharedStrings.xml"); err == nil {
		if shared, err = parseSharedStrings(body); err != nil {
			return "", err
		}
	}

	var sheets []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheets = append(sheets, f)
		}
	}
	slices.SortFunc(sheets, func(a, b *zip.File) int { return sheetNumber(a.Name) - sheetNumber(b.Name) })

	var out []string
	for _, f := range sheets {
		body, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		text, err := parseSheet(body, shared)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", f.Name, err)
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n"), nil
}

// parseSharedStrings returns the string table in index order. Phonetic
// runs (furigana) are left out.
func parseSharedStrings(body []byte) ([]string, error) {
	var out []string
	var cur strings.Builder
	inText, phonetic := false, false
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				cur.Reset()
			case "t":
				inText = true
			case "rPh":
				phonetic = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				out = append(out, cur.String())
			case "t":
				inText = false
			case "rPh":
				phonetic = false
			}
		case xml.CharData:
			if inText && !phonetic {
				cur.Write(t)
			}
		}
	}
}

func parseSheet(body []byte, shared []string) (string, error) {
	var rows []string
	var cells []string
	var cellType string
	var value strings.Builder
	capture := false

	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return strings.Join(rows, "\n"), nil
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				cells = cells[:0]
			case "c":
				cellType = ""
				value.Reset()
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v", "t":
				capture = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v", "t":
				capture = false
			case "c":
				v := value.String()
				if cellType == "s" {
					if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i >= 0 && i < len(shared) {
						v = shared[i]
					}
				}
				if v != "" {
					cells = append(cells, v)
				}
			case "row":
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, "\t"))
				}
			}
		case xml.CharData:
			if capture {
				value.Write(t)
			}
		}
	}
}

// sheetNumber parses N from xl/worksheets/sheetN.xml so sheet10 sorts
// after sheet2.
func sheetNumber(name string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "xl/worksheets/sheet"), ".xml"))
	if err != nil {
		return 1 << 30
	}
	return n
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxZipEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(data) > maxZipEntryBytes {
		return nil, fmt.Errorf("%s inflates past %d bytes", f.Name, maxZipEntryBytes)
	}
	return data, nil
}
