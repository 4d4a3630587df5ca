package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractTextSendsMultipartRequest(t *testing.T) {
	var gotFields map[string]string
	var gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotFields = map[string]string{}
		for key := range r.MultipartForm.Value {
			gotFields[key] = r.FormValue(key)
		}
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFilename = files[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ParsedResults": [
				{"ParsedText": "page one"},
				{"ParsedText": "page two"}
			],
			"IsErroredOnProcessing": false
		}`))
	}))
	defer srv.Close()

	client := NewSpaceClient(srv.URL, "test-key")
	text, err := client.ExtractText(context.Background(), "scan.png", []byte{0x89, 0x50}, "German")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "page one\npage two" {
		t.Fatalf("text = %q", text)
	}
	if gotFilename != "scan.png" {
		t.Fatalf("filename = %q, want scan.png", gotFilename)
	}
	if gotFields["apikey"] != "test-key" {
		t.Fatalf("apikey = %q", gotFields["apikey"])
	}
	if gotFields["language"] != "ger" {
		t.Fatalf("language = %q, want ger", gotFields["language"])
	}
	if gotFields["OCREngine"] != "2" {
		t.Fatalf("OCREngine = %q, want 2", gotFields["OCREngine"])
	}
	if gotFields["detectOrientation"] != "true" || gotFields["scale"] != "true" {
		t.Fatalf("fields = %v", gotFields)
	}
}

func TestExtractTextAPIProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"IsErroredOnProcessing": true,
			"ErrorMessage": ["Unable to recognize the file type", "E216"]
		}`))
	}))
	defer srv.Close()

	client := NewSpaceClient(srv.URL, "test-key")
	_, err := client.ExtractText(context.Background(), "scan.png", nil, "auto")
	if err == nil || !strings.Contains(err.Error(), "Unable to recognize") {
		t.Fatalf("err = %v, want processing error message", err)
	}
}

func TestExtractTextStringErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"IsErroredOnProcessing": true, "ErrorMessage": "quota exceeded"}`))
	}))
	defer srv.Close()

	client := NewSpaceClient(srv.URL, "test-key")
	_, err := client.ExtractText(context.Background(), "scan.png", nil, "auto")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v, want quota error message", err)
	}
}

func TestExtractTextHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewSpaceClient(srv.URL, "bad-key")
	_, err := client.ExtractText(context.Background(), "scan.png", nil, "auto")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("err = %v, want APIError 403", err)
	}
}

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"auto", "eng"},
		{"German", "ger"},
		{"Chinese (Simplified)", "chs"},
		{"fre", "fre"},
		{"Klingon", "eng"},
		{"", "eng"},
	}
	for _, tc := range tests {
		if got := LanguageCode(tc.in); got != tc.want {
			t.Fatalf("LanguageCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

