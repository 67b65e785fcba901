package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEncrypted is returned when the document carries a security handler.
var ErrEncrypted = errors.New("pdf is encrypted")

const (
	// Approximate horizontal advance of one character column, in points.
	pointsPerColumn = 6.0
	// Baseline distance of a regular text line, in points.
	lineHeight = 14.0
	// How far from the end of the file the trailer is searched for /Encrypt.
	trailerWindow = 4096
)

func init() {
	api.DisableConfigDir()
}

type ExtractedText struct {
	Content  string
	Pages    int
	Metadata map[string]string
}

// PDF is an opened document whose pages are read on demand.
type PDF struct {
	reader *pdf.Reader
	err    error
}

// OpenPDF parses the cross-reference structure of a PDF. Parser panics on
// corrupt input are returned as errors.
func OpenPDF(data io.ReaderAt, size int64) (doc *PDF, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			if trailerDeclaresEncryption(data, size) {
				err = ErrEncrypted
				return
			}
			err = fmt.Errorf("open PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(data, size)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || trailerDeclaresEncryption(data, size) {
			return nil, ErrEncrypted
		}
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	if !reader.Trailer().Key("Encrypt").IsNull() {
		return nil, ErrEncrypted
	}
	return &PDF{reader: reader}, nil
}

func (p *PDF) NumPage() (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	return p.reader.NumPage()
}

// PageText returns the text of page n (1-based) laid out row by row.
func (p *PDF) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("read page %d: %v", n, r)
		}
	}()

	page := p.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}

	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 && !hasCollidingRuns(rows) {
		if laid := layoutRows(rows); strings.TrimSpace(laid) != "" {
			return laid, nil
		}
	}

	plain, perr := page.GetPlainText(nil)
	if perr != nil {
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", n, err)
		}
		return "", fmt.Errorf("read page %d: %w", n, perr)
	}
	return plain, nil
}

// Pages yields page numbers and their text lazily, in page order. Iteration
// stops at the first page that fails to decode; Err reports that failure.
func (p *PDF) Pages() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		p.err = nil
		total := p.NumPage()
		for i := 1; i <= total; i++ {
			text, err := p.PageText(i)
			if err != nil {
				p.err = err
				return
			}
			if !yield(i, text) {
				return
			}
		}
	}
}

// Err returns the page error that ended the last Pages iteration, if any.
func (p *PDF) Err() error {
	return p.err
}

// ExtractPDF returns the text of every non-empty page joined by a blank line.
func ExtractPDF(data io.ReaderAt, size int64) (*ExtractedText, error) {
	doc, err := OpenPDF(data, size)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	for _, text := range doc.Pages() {
		text = strings.Trim(text, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
	}
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	pages := doc.NumPage()
	source := "reader"
	if n, err := CountPages(io.NewSectionReader(data, 0, size)); err == nil && n > 0 {
		pages = n
		source = "pdfcpu"
	}

	return &ExtractedText{
		Content: buf.String(),
		Pages:   pages,
		Metadata: map[string]string{
			"type":              "pdf",
			"page_count_source": source,
		},
	}, nil
}

// CountPages reads the page tree with pdfcpu in relaxed validation mode.
func CountPages(rs io.ReadSeeker) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = fmt.Errorf("count pages: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err = api.PageCount(rs, conf)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

func trailerDeclaresEncryption(data io.ReaderAt, size int64) bool {
	if size <= 0 {
		return false
	}
	window := int64(trailerWindow)
	if size < window {
		window = size
	}
	tail := make([]byte, window)
	n, err := data.ReadAt(tail, size-window)
	if err != nil && err != io.EOF {
		return false
	}
	return bytes.Contains(trailerDict(tail[:n]), []byte("/Encrypt"))
}

var xrefStreamTypes = [][]byte{[]byte("/Type /XRef"), []byte("/Type/XRef")}

// trailerDict returns the last classic trailer in tail, or the dictionary of
// the last cross-reference stream when there is none. It returns nil when
// tail holds neither.
func trailerDict(tail []byte) []byte {
	if i := bytes.LastIndex(tail, []byte("trailer")); i >= 0 {
		dict := tail[i:]
		if j := bytes.Index(dict, []byte("startxref")); j >= 0 {
			dict = dict[:j]
		}
		return dict
	}
	for _, marker := range xrefStreamTypes {
		i := bytes.LastIndex(tail, marker)
		if i < 0 {
			continue
		}
		start := bytes.LastIndex(tail[:i], []byte("obj"))
		if start < 0 {
			start = 0
		}
		end := bytes.Index(tail[i:], []byte("stream"))
		if end < 0 {
			return tail[start:]
		}
		return tail[start : i+end]
	}
	return nil
}

// layoutRows renders rows top to bottom. Column offsets become spaces and
// large vertical gaps become an empty line.
func layoutRows(rows pdf.Rows) string {
	minX := math.MaxFloat64
	for _, row := range rows {
		for _, t := range row.Content {
			if strings.TrimSpace(t.S) != "" && t.X < minX {
				minX = t.X
			}
		}
	}
	if minX == math.MaxFloat64 {
		return ""
	}

	var b strings.Builder
	var prevY int64
	first := true
	for _, row := range rows {
		line := layoutRow(row.Content, minX)
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !first {
			b.WriteByte('\n')
			if float64(prevY-row.Position) > 2*lineHeight {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		prevY = row.Position
		first = false
	}
	return b.String()
}

// hasCollidingRuns reports whether two runs of a row share a start position.
// Their relative order is lost in that case, so the caller falls back to the
// content-stream order of GetPlainText.
func hasCollidingRuns(rows pdf.Rows) bool {
	for _, row := range rows {
		for i := 1; i < len(row.Content); i++ {
			if row.Content[i].X == row.Content[i-1].X {
				return true
			}
		}
	}
	return false
}

func layoutRow(texts pdf.TextHorizontal, minX float64) string {
	var b strings.Builder
	col := 0
	for _, t := range texts {
		target := int(math.Round((t.X - minX) / pointsPerColumn))
		if target > col {
			b.WriteString(strings.Repeat(" ", target-col))
			col = target
		}
		b.WriteString(t.S)
		col += utf8.RuneCountInString(t.S)
	}
	return strings.TrimRight(b.String(), " ")
}
