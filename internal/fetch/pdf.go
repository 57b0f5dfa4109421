package fetch

import (
	"bytes"
	"io"

	"github.com/dslipak/pdf"

	"github.com/riptide-engine/riptide/internal/models"
)

// ExtractPDFText pulls plain text out of a PDF body, the handoff target
// named in spec §4.1 step 4 ("On PDF content-type, hand off to the PDF
// extractor and skip gate"). It never attempts layout reconstruction or
// markdown conversion — PDFs get a text-only ExtractedDocument with a
// confidence pinned to 1.0 since there's no competing strategy to compare
// against.
func ExtractPDFText(body []byte, sourceURL string) (models.ExtractedDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return models.ExtractedDocument{}, models.Wrapf(models.KindExtraction, err, "pdf: opening %s", sourceURL)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return models.ExtractedDocument{}, models.Wrapf(models.KindExtraction, err, "pdf: extracting text from %s", sourceURL)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return models.ExtractedDocument{}, models.Wrapf(models.KindExtraction, err, "pdf: reading text stream from %s", sourceURL)
	}

	return models.ExtractedDocument{
		URL:        sourceURL,
		Text:       string(text),
		Confidence: 1.0,
		Strategy:   "pdf",
	}, nil
}
