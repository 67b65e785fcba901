package textextract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/pdfsummarizer/internal/pdftest"
)

func extract(t *testing.T, data []byte) *ExtractedText {
	t.Helper()
	out, err := ExtractPDF(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return out
}

func TestExtractPDF_RoundTripASCII(t *testing.T) {
	out := extract(t, pdftest.Build("Quarterly revenue grew 12 percent"))

	assert.Contains(t, out.Content, "Quarterly revenue grew 12 percent")
	assert.Equal(t, 1, out.Pages)
	assert.Equal(t, "pdf", out.Metadata["type"])
}

func TestExtractPDF_KeepsLinesOfAPage(t *testing.T) {
	out := extract(t, pdftest.Build("first line\nsecond line"))

	assert.Contains(t, out.Content, "first line\nsecond line")
}

func TestExtractPDF_JoinsPagesWithBlankLineAndSkipsEmptyPages(t *testing.T) {
	out := extract(t, pdftest.Build("alpha", "", "gamma"))

	assert.Equal(t, "alpha\n\ngamma", out.Content)
	assert.Equal(t, 3, out.Pages)
}

func TestOpenPDF_CorruptInputReturnsError(t *testing.T) {
	inputs := [][]byte{
		[]byte("%PDF-1.4\nthis is not a pdf body\n%%EOF\n"),
		append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{0xff, 0x00, 0x7f}, 700)...),
		{},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, err := OpenPDF(bytes.NewReader(in), int64(len(in)))
			assert.Error(t, err)
		})
	}
}

func TestOpenPDF_Encrypted(t *testing.T) {
	data := pdftest.BuildWithOptions(pdftest.Options{MinSize: 2048, Encrypted: true}, "secret")

	_, err := OpenPDF(bytes.NewReader(data), int64(len(data)))
	require.ErrorIs(t, err, ErrEncrypted)
}

func TestPDF_PagesStopsWhenConsumerStops(t *testing.T) {
	data := pdftest.Build("one", "two", "three")
	doc, err := OpenPDF(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var seen []int
	for n, text := range doc.Pages() {
		seen = append(seen, n)
		assert.NotEmpty(t, strings.TrimSpace(text))
		if n == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, seen)
}

func TestCountPages_Garbage(t *testing.T) {
	_, err := CountPages(bytes.NewReader([]byte("definitely not a pdf")))
	assert.Error(t, err)
}

func TestLayoutRow_ColumnsBecomeSpaces(t *testing.T) {
	row := pdf.TextHorizontal{
		{X: 72, S: "Name"},
		{X: 72 + 10*pointsPerColumn, S: "Total"},
	}

	got := layoutRow(row, 72)

	assert.Equal(t, "Name"+strings.Repeat(" ", 6)+"Total", got)
}

func TestExtractPDF_CorruptPageFailsExtraction(t *testing.T) {
	data := pdftest.BuildWithOptions(pdftest.Options{MinSize: 2048, CorruptPages: []int{2}}, "alpha", "beta", "gamma")

	out, err := ExtractPDF(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "read page 2")
}

func TestPDF_PagesReportsDecodeError(t *testing.T) {
	data := pdftest.BuildWithOptions(pdftest.Options{MinSize: 2048, CorruptPages: []int{2}}, "alpha", "beta", "gamma")
	doc, err := OpenPDF(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var seen []int
	for n := range doc.Pages() {
		seen = append(seen, n)
	}
	assert.Equal(t, []int{1}, seen)
	assert.Error(t, doc.Err())

	clean := pdftest.Build("one", "two")
	doc, err = OpenPDF(bytes.NewReader(clean), int64(len(clean)))
	require.NoError(t, err)
	for range doc.Pages() {
	}
	assert.NoError(t, doc.Err())
}

func TestTrailerDeclaresEncryption(t *testing.T) {
	tests := []struct {
		name string
		tail string
		want bool
	}{
		{
			name: "classic trailer",
			tail: "xref\n0 1\ntrailer\n<< /Size 9 /Root 1 0 R /Encrypt 8 0 R >>\nstartxref\n100\n%%EOF\n",
			want: true,
		},
		{
			name: "key only in page content",
			tail: "5 0 obj\n<< /Length 20 >>\nstream\n(see /Encrypt here) Tj\nendstream\nendobj\ntrailer\n<< /Size 9 /Root 1 0 R >>\nstartxref\n100\n%%EOF\n",
			want: false,
		},
		{
			name: "xref stream dictionary",
			tail: "9 0 obj\n<< /Type /XRef /Size 10 /Root 1 0 R /Encrypt 8 0 R /W [1 2 1] >>\nstream\n\x01\x02\nendstream\nendobj\nstartxref\n100\n%%EOF\n",
			want: true,
		},
		{
			name: "no trailer at all",
			tail: "garbage /Encrypt garbage\n%%EOF\n",
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.tail)
			assert.Equal(t, tt.want, trailerDeclaresEncryption(bytes.NewReader(data), int64(len(data))))
		})
	}
}

func TestOpenPDF_BrokenFileMentioningEncryptIsNotEncrypted(t *testing.T) {
	data := pdftest.Build("see /Encrypt here")
	i := bytes.LastIndex(data, []byte("startxref\n"))
	require.Positive(t, i)
	broken := append(append([]byte{}, data[:i]...), []byte("startxref\n999999\n%%EOF\n")...)

	_, err := OpenPDF(bytes.NewReader(broken), int64(len(broken)))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEncrypted)
}
