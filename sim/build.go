package sim

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wippyai/pdf-runtime/native"
)

// Page describes one fixture page.
type Page struct {
	Text   []string
	Paths  []native.Rect
	Annots []Annot
	Width  float64
	Height float64
	Rotate int
	// Padding adds filler bytes to the page object so that streamed
	// fixtures span several chunks.
	Padding int
}

// Annot describes one fixture annotation.
type Annot struct {
	Subtype string
	Rect    native.Rect
}

// Fixture describes a document for Build.
type Fixture struct {
	Version    string
	Password   string
	Pages      []Page
	Linearized bool
	Form       bool
}

// Build renders f in the syntax the engine parses.
func Build(f Fixture) []byte {
	var b bytes.Buffer

	version := f.Version
	if version == "" {
		version = "1.7"
	}
	fmt.Fprintf(&b, "%%PDF-%s\n", version)
	if f.Linearized {
		fmt.Fprintf(&b, "1 0 obj << /Linearized 1 /N %d /O 0 >> endobj\n", len(f.Pages))
	}

	for i, p := range f.Pages {
		w, h := p.Width, p.Height
		if w == 0 {
			w = defaultWidth
		}
		if h == 0 {
			h = defaultHeight
		}
		fmt.Fprintf(&b, "%d 0 obj << /Type /Page /MediaBox [0 0 %g %g]", i+3, w, h)
		if p.Rotate != 0 {
			fmt.Fprintf(&b, " /Rotate %d", p.Rotate)
		}
		b.WriteString(" >>\nstream\n")
		for _, t := range p.Text {
			fmt.Fprintf(&b, "BT (%s) Tj ET\n", escape(t))
		}
		for _, r := range p.Paths {
			fmt.Fprintf(&b, "%g %g %g %g re f\n", r.Left, r.Bottom, r.Width(), r.Height())
		}
		b.WriteString("endstream\n")
		for _, a := range p.Annots {
			fmt.Fprintf(&b, "<< /Annot /Subtype /%s /Rect [%g %g %g %g] >>\n",
				a.Subtype, a.Rect.Left, a.Rect.Bottom, a.Rect.Right, a.Rect.Top)
		}
		if p.Padding > 0 {
			b.WriteString("% ")
			b.WriteString(strings.Repeat(".", p.Padding))
			b.WriteByte('\n')
		}
		b.WriteString("endobj\n")
	}

	b.WriteString("trailer <<")
	if f.Form {
		b.WriteString(" /AcroForm << >>")
	}
	if f.Password != "" {
		fmt.Fprintf(&b, " /Encrypt (%s)", escape(f.Password))
	}
	b.WriteString(" >>\n%%EOF\n")
	return b.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
