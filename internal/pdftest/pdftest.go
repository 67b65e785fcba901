// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

type Options struct {
	// MinSize pads the file with a comment line until it is at least this long.
	MinSize int
	// Encrypted adds a standard security handler dictionary to the trailer.
	Encrypted bool
	// CorruptPages lists 1-based pages whose content stream claims
	// FlateDecode but holds bytes that are not zlib data.
	CorruptPages []int
}

// Build returns a PDF with one page per entry in pages. Each page entry is
// split on "\n" and every line is drawn on its own baseline. An empty entry
// produces a blank page.
func Build(pages ...string) []byte {
	return BuildWithOptions(Options{MinSize: 2048}, pages...)
}

func BuildWithOptions(opts Options, pages ...string) []byte {
	var objects []string

	// 1: catalog, 2: page tree, 3: font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		content, filter := contentStream(text), ""
		if slices.Contains(opts.CorruptPages, i+1) {
			content, filter = "this is not zlib data", " /Filter /FlateDecode"
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d%s >>\nstream\n%s\nendstream", len(content), filter, content),
		)
	}
	encryptRef := ""
	if opts.Encrypted {
		objects = append(objects, "<< /Filter /Standard /V 1 /R 2 /Length 40 /P -44 "+
			"/O <6E6F74617265616C6F776E657270617373776F72646E6F74617265616C6F77> "+
			"/U <6E6F74617265616C75736572706173737764617461206E6F74617265616C75> >>")
		encryptRef = fmt.Sprintf(" /Encrypt %d 0 R /ID [<0123456789ABCDEF0123456789ABCDEF> <0123456789ABCDEF0123456789ABCDEF>]", len(objects))
	}

	out := render(objects, encryptRef, 0)
	if len(out) < opts.MinSize {
		out = render(objects, encryptRef, opts.MinSize-len(out))
	}
	return out
}

// render lays out the objects and builds the xref table. A positive pad
// inserts a comment line of that many bytes ahead of the first object.
func render(objects []string, encryptRef string, pad int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	if pad > 0 {
		buf.WriteString("%")
		buf.WriteString(strings.Repeat("p", pad))
		buf.WriteString("\n")
	}

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, encryptRef, xref)
	return buf.Bytes()
}

func contentStream(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	y := 720
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(&b, "BT /F1 12 Tf 1 0 0 1 72 %d Tm (%s) Tj ET\n", y, escape(line))
		y -= 14
	}
	return strings.TrimRight(b.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
