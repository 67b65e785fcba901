package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/pdfsummarizer/pkg/textextract"
)

const (
	DefaultMinFileSize = 1024
	pdfExtension       = ".pdf"
	trailerScanBytes   = 1024
)

var (
	pdfHeader = []byte("%PDF-")
	pdfEOF    = []byte("%%EOF")
)

// Rejection reasons. They are returned to clients verbatim.
const (
	ReasonExtension     = "File extension is not .pdf"
	ReasonMissingHeader = "PDF structure invalid: missing header"
	ReasonMissingEOF    = "PDF structure invalid: missing EOF marker"
	ReasonEncrypted     = "PDF is encrypted and cannot be processed"
	ReasonNoPages       = "PDF has no pages"
	ReasonBlank         = "PDF page is blank or contains no extractable text"
	reasonValid         = "PDF is valid"
)

type ValidationResult struct {
	OK     bool
	Reason string
}

func invalid(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}

// Validator rejects malformed uploads before anything is persisted. The
// extension check is case-insensitive: "report.PDF" is accepted.
type Validator struct {
	minFileSize int
}

func NewValidator(minFileSize int) *Validator {
	if minFileSize <= 0 {
		minFileSize = DefaultMinFileSize
	}
	return &Validator{minFileSize: minFileSize}
}

func (v *Validator) MinFileSize() int {
	return v.minFileSize
}

func SizeReason(min int) string {
	return fmt.Sprintf("File size is too small (less than %d bytes)", min)
}

// Validate runs the checks in order and stops at the first failure. data is
// only read.
func (v *Validator) Validate(data []byte, filename string) ValidationResult {
	if !strings.HasSuffix(strings.ToLower(filename), pdfExtension) {
		return invalid(ReasonExtension)
	}
	if len(data) < v.minFileSize {
		return invalid(SizeReason(v.minFileSize))
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return invalid(ReasonMissingHeader)
	}
	if !bytes.Contains(tail(data, trailerScanBytes), pdfEOF) {
		return invalid(ReasonMissingEOF)
	}
	return v.checkContent(data)
}

func (v *Validator) checkContent(data []byte) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = invalid(fmt.Sprintf("PDF content validation failed: %v", r))
		}
	}()

	doc, err := textextract.OpenPDF(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, textextract.ErrEncrypted) {
		return invalid(ReasonEncrypted)
	}
	if err != nil {
		return invalid(fmt.Sprintf("PDF content validation failed: %v", err))
	}
	if doc.NumPage() == 0 {
		return invalid(ReasonNoPages)
	}

	text, err := doc.PageText(1)
	if err != nil {
		return invalid(fmt.Sprintf("PDF content validation failed: %v", err))
	}
	if strings.TrimSpace(text) == "" {
		return invalid(ReasonBlank)
	}
	return ValidationResult{OK: true, Reason: reasonValid}
}

func tail(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[len(data)-n:]
}
