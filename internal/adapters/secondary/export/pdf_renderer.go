package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// 16:9 page, 10in x 5.625in
const (
	pdfPageWidth  = 254.0
	pdfPageHeight = 142.875
)

// PDFWriter lays each slide image full-bleed on its own 16:9 page
type PDFWriter struct{}

var _ ports.DeckWriter = (*PDFWriter)(nil)

// NewPDFWriter creates a PDF deck writer
func NewPDFWriter() *PDFWriter {
	return &PDFWriter{}
}

// Format returns the deck format
func (w *PDFWriter) Format() entities.ExportFormat {
	return entities.ExportFormatPDF
}

// MimeType returns the MIME type for PDF decks
func (w *PDFWriter) MimeType() string {
	return "application/pdf"
}

// Write emits the PDF
func (w *PDFWriter) Write(ctx context.Context, out io.Writer, meta ports.DeckMeta, images [][]byte) error {
	// Portrait with a wide custom size keeps gofpdf from swapping the axes
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pdfPageWidth, Ht: pdfPageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("slidekit", true)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Author != "" {
		pdf.SetAuthor(meta.Author, true)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := fmt.Sprintf("slide-%d", i+1)
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
		pdf.ImageOptions(name, 0, 0, pdfPageWidth, pdfPageHeight, false, opts, 0, "")
		if pdf.Err() {
			return fmt.Errorf("adding slide %d to PDF: %w", i+1, pdf.Error())
		}
	}

	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// Verify re-reads the written file and checks its page count
func (w *PDFWriter) Verify(path string, pages int) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("pdfcpu read: %w", err)
	}
	if ctx.PageCount != pages {
		return fmt.Errorf("PDF has %d pages, expected %d", ctx.PageCount, pages)
	}
	return nil
}
