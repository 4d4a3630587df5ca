package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"scanbrief/pkg/domain"
)

// extractContent turns an upload into plain text. Images go through the OCR
// collaborator, PDFs are parsed locally, everything else is rejected.
func (a *App) extractContent(ctx context.Context, artifact domain.Artifact, ocrLanguage string) (string, error) {
	mediaType := resolveMediaType(artifact)
	switch {
	case mediaType == "application/pdf":
		return pdfText(artifact.Data)
	case strings.HasPrefix(mediaType, "image/"):
		text, err := a.extractor.ExtractText(ctx, artifact.Filename, artifact.Data, ocrLanguage)
		if err != nil {
			return "", fmt.Errorf("ocr %s: %w", artifact.Filename, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}
}

func isUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

// resolveMediaType prefers the declared content type and falls back to the
// file extension. Parameters like charset are stripped.
func resolveMediaType(artifact domain.Artifact) string {
	declared := strings.TrimSpace(artifact.MediaType)
	if declared == "" || declared == "application/octet-stream" {
		declared = mime.TypeByExtension(filepath.Ext(artifact.Filename))
	}
	if declared == "" {
		return "unknown"
	}
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		return mediaType
	}
	return declared
}

// pdfText extracts the plain text of every page. The parser panics on some
// malformed files, so the panic is converted into an extraction error.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return string(raw), nil
}
