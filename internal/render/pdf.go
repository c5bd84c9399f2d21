package render

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sirdesai22/certify-service/internal/models"
)

// PDFRenderer draws a one page participation certificate whose QR code carries the
// certificate's verification code.
type PDFRenderer struct {
	QR           QREncoder
	Organization string
}

func NewPDFRenderer(qr QREncoder, organization string) *PDFRenderer {
	return &PDFRenderer{QR: qr, Organization: organization}
}

func (r *PDFRenderer) Render(ctx context.Context, p models.Participant, e models.Event, c models.Certificate) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qrPNG, err := r.QR.Encode(c.VerificationCode, 240)
	if err != nil {
		return nil, fmt.Errorf("encode verification qr: %w", err)
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	w, h := pdf.GetPageSize()

	// borders
	pdf.SetDrawColor(30, 64, 175)
	pdf.SetLineWidth(5)
	pdf.Rect(10, 10, w-20, h-20, "D")
	pdf.SetDrawColor(59, 130, 246)
	pdf.SetLineWidth(2)
	pdf.Rect(15, 15, w-30, h-30, "D")
	pdf.SetLineWidth(1)
	pdf.Line(30, 30, w-30, 30)

	pdf.SetTextColor(30, 64, 175)
	pdf.SetFont("Helvetica", "B", 42)
	centered(pdf, w, 42, 16, "CERTIFICATE")
	pdf.SetFont("Helvetica", "B", 30)
	centered(pdf, w, 58, 14, "OF PARTICIPATION")

	pdf.SetTextColor(100, 116, 139)
	pdf.SetFont("Helvetica", "", 16)
	centered(pdf, w, 86, 10, "This is to certify that")

	pdf.SetTextColor(15, 23, 42)
	pdf.SetFont("Helvetica", "B", 28)
	name := tr(p.Name)
	centered(pdf, w, 102, 14, name)
	nameW := pdf.GetStringWidth(name)
	pdf.SetDrawColor(59, 130, 246)
	pdf.Line((w-nameW)/2-5, 118, (w+nameW)/2+5, 118)

	pdf.SetTextColor(71, 85, 105)
	pdf.SetFont("Helvetica", "", 14)
	centered(pdf, w, 128, 10, "has successfully completed the")
	pdf.SetTextColor(30, 64, 175)
	pdf.SetFont("Helvetica", "B", 16)
	centered(pdf, w, 138, 10, tr(e.Title))
	if !e.Date.IsZero() {
		pdf.SetTextColor(100, 116, 139)
		pdf.SetFont("Helvetica", "", 12)
		centered(pdf, w, 148, 8, "held on "+e.Date.Format("January 2, 2006"))
	}

	const qrSize = 25.0
	qrY := h - 85
	pdf.RegisterImageOptionsReader("verification-qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("verification-qr", (w-qrSize)/2, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	issued := time.Now()
	if c.IssuedAt != nil {
		issued = *c.IssuedAt
	}
	pdf.SetTextColor(148, 163, 184)
	pdf.SetFont("Helvetica", "", 9)
	centered(pdf, w, qrY+qrSize+3, 5, "Verification: "+c.VerificationCode)
	centered(pdf, w, qrY+qrSize+8, 5, "Certificate No: "+c.CertificateNumber)
	centered(pdf, w, qrY+qrSize+13, 5, "Issued on "+issued.Format("January 02, 2006"))

	pdf.SetDrawColor(59, 130, 246)
	pdf.Line(30, h-25, w-30, h-25)
	pdf.SetTextColor(30, 64, 175)
	pdf.SetFont("Helvetica", "B", 12)
	centered(pdf, w, h-22, 6, tr(r.Organization))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func centered(pdf *fpdf.Fpdf, pageW, y, lineH float64, text string) {
	pdf.SetXY(0, y)
	pdf.CellFormat(pageW, lineH, text, "", 0, "C", false, 0, "")
}
