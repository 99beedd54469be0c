package docparse

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// docxText parses a .docx by reading word/document.xml from the ZIP archive.
// Paragraph text comes out line per paragraph; table rows come out as one line
// with cells joined by " | ", which keeps SoF event tables row-aligned.
func docxText(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var out []string
	var para strings.Builder
	var cells []string
	var inParagraph bool
	tableDepth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				inParagraph = true
				para.Reset()
			}

		case xml.CharData:
			if inParagraph {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if !inParagraph {
					continue
				}
				inParagraph = false
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					cells = append(cells, text)
				} else {
					out = append(out, text)
				}
			case "tr":
				if len(cells) > 0 {
					out = append(out, strings.Join(cells, " | "))
					cells = cells[:0]
				}
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			}
		}
	}

	return strings.Join(out, "\n"), nil
}
