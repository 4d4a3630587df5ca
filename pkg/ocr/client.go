package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Extractor converts image bytes into plain text. Implemented by the cloud
// OCR client; tests substitute fakes.
type Extractor interface {
	ExtractText(ctx context.Context, filename string, image []byte, language string) (string, error)
}

const defaultEndpoint = "https://api.ocr.space/parse/image"

// SpaceClient calls an OCR.space-compatible parse endpoint.
type SpaceClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewSpaceClient builds the OCR client. endpoint may be empty to use the
// public API host.
func NewSpaceClient(endpoint, apiKey string) *SpaceClient {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &SpaceClient{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type parseResponse struct {
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
	ParsedResults         []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// ExtractText uploads the image and returns the concatenated parsed text.
// language accepts a display name or code; unknown values fall back to
// English, matching the service's free-tier behavior.
func (c *SpaceClient) ExtractText(ctx context.Context, filename string, image []byte, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"apikey":            c.apiKey,
		"language":          LanguageCode(language),
		"isOverlayRequired": "false",
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         "2",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("build ocr request: %w", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ocr decode: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr api error: %s", decodeErrorMessage(parsed.ErrorMessage))
	}

	var text strings.Builder
	for _, result := range parsed.ParsedResults {
		if result.ParsedText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(result.ParsedText)
	}
	return strings.TrimSpace(text.String()), nil
}

// APIError reports a non-2xx OCR response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ocr api error: %s", e.Message)
}

// The API returns ErrorMessage as either a string or a list of strings.
func decodeErrorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return "unknown error"
}
