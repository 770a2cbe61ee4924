package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate describes a course completion certificate.
type Certificate struct {
	StudentName    string
	CourseName     string
	InstructorName string
	IssuedAt       time.Time
	Serial         string
}

// RenderCertificate draws a single landscape page certificate.
func RenderCertificate(c Certificate) ([]byte, error) {
	if c.StudentName == "" || c.CourseName == "" {
		return nil, fmt.Errorf("certificate requires student and course names")
	}
	if c.IssuedAt.IsZero() {
		c.IssuedAt = time.Now().UTC()
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate of Completion", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetY(40)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, tr(c.StudentName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "has completed the course", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 10, tr(c.CourseName), "", "C", false)

	pdf.SetY(160)
	pdf.SetFont("Helvetica", "", 11)
	if c.InstructorName != "" {
		pdf.CellFormat(0, 7, tr("Instructor: "+c.InstructorName), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 7, "Issued "+c.IssuedAt.Format("2 January 2006"), "", 1, "C", false, 0, "")
	if c.Serial != "" {
		pdf.SetFont("Courier", "", 9)
		pdf.CellFormat(0, 6, "Serial "+c.Serial, "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
