// Package render produces the certificate PDF: a fixed landscape page with
// the template image full-bleed, the intern's name in a script face, three
// body lines, and the two ID lines along the bottom edge.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

var (
	// ErrTemplateMissing means the background template image is absent from
	// the assets directory.
	ErrTemplateMissing = errors.New("render: certificate template not found")

	// ErrFontMissing means the script font is absent from the assets
	// directory.
	ErrFontMissing = errors.New("render: script font not found")

	// ErrInputInvalid means the input lacks a certificate number.
	ErrInputInvalid = errors.New("render: certificate number is required")
)

// ─── LAYOUT ──────────────────────────────────────────────────────────────────

// The page geometry is a compatibility contract: certificates rendered before
// and after the rewrite must line up pixel for pixel.
const (
	pageWidth  = 842.0 // A4 landscape, points
	pageHeight = 595.0

	nameCenterX = 490.0
	nameY       = 283.0 // baseline, measured from the bottom edge
	nameSize    = 65.0
	// The name is centred using a width estimate at a smaller size than it is
	// drawn at. Changing this shifts every name off its historical position.
	nameEstSize = 58.0

	bodyCenterX  = 485.0
	bodyCenterY  = 230.0
	bodySize     = 14.5
	bodyLineH    = 22.0

	idY         = 27.0
	idSize      = 10.0
	certIDX     = 150.0
	uniqueIDX   = 530.0

	// Templates wider than two page-widths in pixels are downscaled so the
	// finished PDF stays small enough for an email attachment.
	maxTemplatePx = 1684
)

// Input is the data rendered onto the certificate.
type Input struct {
	FullName          string
	StartMonth        string
	EndMonth          string
	Domain            string
	Duration          string
	UniqueID          string
	CertificateNumber string
}

// Renderer holds the two external assets, loaded once at startup. Render is
// a pure function of Input afterwards: identical input yields identical
// bytes.
type Renderer struct {
	template   []byte // PNG, normalised
	scriptFont []byte // TTF used for the name line
	orgName    string
}

// New loads the template image and script font from assetsDir. The expected
// layout mirrors the deployed public/ directory:
//
//	<assetsDir>/templates/certificate-template.png
//	<assetsDir>/fonts/Rancho-Regular.ttf
//
// Missing assets fail here so the server refuses to start rather than
// failing on the first issuance.
func New(assetsDir, orgName string) (*Renderer, error) {
	templatePath := filepath.Join(assetsDir, "templates", "certificate-template.png")
	rawTemplate, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, templatePath)
		}
		return nil, fmt.Errorf("render: read template: %w", err)
	}

	template, err := normaliseTemplate(rawTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: template %s: %w", templatePath, err)
	}

	fontPath := filepath.Join(assetsDir, "fonts", "Rancho-Regular.ttf")
	scriptFont, err := os.ReadFile(fontPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFontMissing, fontPath)
		}
		return nil, fmt.Errorf("render: read font: %w", err)
	}

	return &Renderer{
		template:   template,
		scriptFont: scriptFont,
		orgName:    orgName,
	}, nil
}

// normaliseTemplate decodes the template (any common raster format),
// downscales oversized images, and re-encodes as PNG so the embed path is
// uniform regardless of what was deployed.
func normaliseTemplate(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if img.Bounds().Dx() > maxTemplatePx {
		img = imaging.Resize(img, maxTemplatePx, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Render composes the certificate document and returns the PDF bytes.
func (r *Renderer) Render(in Input) ([]byte, error) {
	if in.CertificateNumber == "" {
		return nil, ErrInputInvalid
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	// Fixed creation date keeps the output byte-stable for identical input.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes("script", "", r.scriptFont)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("certificate-template", opts, bytes.NewReader(r.template))
	pdf.ImageOptions("certificate-template", 0, 0, pageWidth, pageHeight, false, opts, 0, "")

	pdf.SetTextColor(0, 0, 0)

	// Intern name, centred around nameCenterX.
	pdf.SetFont("script", "", nameSize)
	nameWidth := estimateWidth(in.FullName, nameEstSize)
	pdf.Text(nameCenterX-nameWidth/2, fromBottom(nameY), in.FullName)

	// Body block, vertically centred around bodyCenterY, each line centred
	// independently.
	lines := []string{
		fmt.Sprintf("Has completed the internship program from %s to %s", in.StartMonth, in.EndMonth),
		" showing exceptional dedication, professionalism, and contributions",
		fmt.Sprintf("in the %s Department at %s.  ", in.Domain, r.orgName),
	}
	pdf.SetFont("Helvetica", "", bodySize)
	startY := bodyCenterY + float64(len(lines))*bodyLineH/2 - bodyLineH
	for i, line := range lines {
		lineWidth := estimateWidth(line, bodySize)
		y := startY - float64(i)*bodyLineH
		pdf.Text(bodyCenterX-lineWidth/2, fromBottom(y), line)
	}

	// ID lines along the bottom edge.
	pdf.SetFont("Helvetica", "B", idSize)
	pdf.Text(certIDX, fromBottom(idY), "Certificate ID: "+in.CertificateNumber)
	pdf.Text(uniqueIDX, fromBottom(idY), "Unique ID: "+in.UniqueID)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: output: %w", err)
	}
	return buf.Bytes(), nil
}

// fromBottom converts a baseline measured from the bottom edge into the
// top-origin coordinates gofpdf uses.
func fromBottom(y float64) float64 {
	return pageHeight - y
}

// estimateWidth approximates text width as character count × size × 0.6. It
// is not a glyph measurement, but the centring offsets it produces are part
// of the layout contract. Characters are counted, not bytes, so accented and
// non-Latin names centre the same as ASCII ones.
func estimateWidth(text string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.6
}
