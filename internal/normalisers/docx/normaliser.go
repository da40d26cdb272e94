package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docutil"
)

// MIMEType is the Office Open XML word processing content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text from word/document.xml, including
// paragraphs inside tables. The title comes from docProps/core.xml and
// the page count from docProps/app.xml when present.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err)
	}

	body, err := readPart(archive, "word/document.xml")
	if err != nil {
		return nil, err
	}
	content, err := documentText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: word/document.xml: %v", domain.ErrInvalidInput, err)
	}

	var props struct {
		Title string `xml:"title"`
		Pages int    `xml:"Pages"`
	}
	for _, name := range []string{"docProps/core.xml", "docProps/app.xml"} {
		if part, err := readPart(archive, name); err == nil {
			_ = xml.Unmarshal(part, &props)
		}
	}

	doc := docutil.NewDocument(raw, props.Title, content, "docx")
	doc.Pages = props.Pages
	return &driven.NormaliseResult{Document: doc}, nil
}

var errMissingPart = errors.New("missing part")

func readPart(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w %s", domain.ErrInvalidInput, errMissingPart, name)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxDocumentSize*4))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, name, err)
	}
	return data, nil
}

// documentText walks the WordprocessingML token stream. Each <w:p> ends a
// line; <w:tab> and <w:br> become a tab and a newline.
func documentText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
			out.WriteString(s)
		}
		line.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	flush()
	return out.String(), nil
}
