package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nikhilbhutani/pdfsummarizer/pkg/textextract"
)

var errNoText = errors.New("no extractable text")

type TextExtractor interface {
	Extract(ctx context.Context, data io.ReaderAt, size int64) (*textextract.ExtractedText, error)
}

type pdfExtractor struct{}

func NewTextExtractor() TextExtractor {
	return pdfExtractor{}
}

// Extract reads the whole document from offset 0. A document without any
// text is an error.
func (pdfExtractor) Extract(ctx context.Context, data io.ReaderAt, size int64) (*textextract.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := textextract.ExtractPDF(data, size)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(result.Content) == "" {
		return nil, errNoText
	}
	return result, nil
}
