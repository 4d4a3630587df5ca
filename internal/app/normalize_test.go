package app

import (
	"context"
	"errors"
	"testing"

	"scanbrief/pkg/domain"
)

func TestResolveMediaType(t *testing.T) {
	tests := []struct {
		name     string
		artifact domain.Artifact
		want     string
	}{
		{
			name:     "declared type wins",
			artifact: domain.Artifact{Filename: "scan.bin", MediaType: "image/png"},
			want:     "image/png",
		},
		{
			name:     "parameters are stripped",
			artifact: domain.Artifact{Filename: "doc.pdf", MediaType: "application/pdf; charset=binary"},
			want:     "application/pdf",
		},
		{
			name:     "falls back to extension",
			artifact: domain.Artifact{Filename: "report.pdf"},
			want:     "application/pdf",
		},
		{
			name:     "octet-stream falls back to extension",
			artifact: domain.Artifact{Filename: "photo.jpg", MediaType: "application/octet-stream"},
			want:     "image/jpeg",
		},
		{
			name:     "unknown stays unknown",
			artifact: domain.Artifact{Filename: "mystery"},
			want:     "unknown",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveMediaType(tc.artifact); got != tc.want {
				t.Fatalf("resolveMediaType = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractContentRejectsUnsupportedFormat(t *testing.T) {
	a := newTestApp(t, Config{})
	artifact := domain.Artifact{Filename: "notes.docx", MediaType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
	_, err := a.extractContent(context.Background(), artifact, domain.OCRLanguageAuto)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractContentRoutesImagesToOCR(t *testing.T) {
	extractor := &fakeExtractor{texts: map[string]string{"scan.png": "recognized"}}
	a := newTestApp(t, Config{Extractor: extractor})
	text, err := a.extractContent(context.Background(), imageArtifact("scan.png"), domain.OCRLanguageAuto)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "recognized" {
		t.Fatalf("text = %q, want %q", text, "recognized")
	}
	if extractor.calls != 1 {
		t.Fatalf("extractor calls = %d, want 1", extractor.calls)
	}
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	if _, err := pdfText([]byte("not a pdf at all")); err == nil {
		t.Fatal("expected error for non-pdf bytes")
	}
}
