package domain

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SummaryLength selects how detailed the generated summary should be.
type SummaryLength string

const (
	LengthShort    SummaryLength = "short"
	LengthMedium   SummaryLength = "medium"
	LengthDetailed SummaryLength = "detailed"
)

// Mode selects the LLM task applied to extracted text.
type Mode string

const (
	ModeSummarize   Mode = "summarize"
	ModeAnalyzeCode Mode = "analyze_code"
)

// OCRLanguageAuto asks the OCR collaborator to pick the language itself.
const OCRLanguageAuto = "auto"

// Artifact is one uploaded file submitted for processing.
type Artifact struct {
	Filename  string
	MediaType string
	Data      []byte
}

// ProcessOptions configures one batch invocation. Zero values are filled with
// defaults by Validate.
type ProcessOptions struct {
	SummaryLength   SummaryLength `json:"summaryLength"`
	SummaryLanguage string        `json:"summaryLanguage"`
	OCRLanguage     string        `json:"ocrLanguage"`
	Mode            Mode          `json:"mode"`
	NotifyEmail     string        `json:"notifyEmail,omitempty"`
}

// Validate normalizes defaults and rejects malformed options. A validation
// failure aborts the whole batch before any item is touched.
func (o *ProcessOptions) Validate() error {
	if o.SummaryLength == "" {
		o.SummaryLength = LengthMedium
	}
	switch o.SummaryLength {
	case LengthShort, LengthMedium, LengthDetailed:
	default:
		return fmt.Errorf("invalid summary length %q", o.SummaryLength)
	}
	if o.Mode == "" {
		o.Mode = ModeSummarize
	}
	switch o.Mode {
	case ModeSummarize, ModeAnalyzeCode:
	default:
		return fmt.Errorf("invalid mode %q", o.Mode)
	}
	if strings.TrimSpace(o.SummaryLanguage) == "" {
		o.SummaryLanguage = "English"
	}
	if strings.TrimSpace(o.OCRLanguage) == "" {
		o.OCRLanguage = OCRLanguageAuto
	}
	o.NotifyEmail = strings.TrimSpace(o.NotifyEmail)
	if o.NotifyEmail != "" {
		if _, err := mail.ParseAddress(o.NotifyEmail); err != nil {
			return fmt.Errorf("invalid notify email %q", o.NotifyEmail)
		}
	}
	return nil
}

// LanguageSettings records the options one item was processed with.
type LanguageSettings struct {
	SummaryLength    SummaryLength `json:"summaryLength"`
	SummaryLanguage  string        `json:"summaryLanguage"`
	OCRLanguage      string        `json:"ocrLanguage"`
	Mode             Mode          `json:"mode"`
	DetectedLanguage string        `json:"detectedLanguage,omitempty"`
}

// ProcessedItem is one durable history record. Immutable after creation
// except for deletion.
type ProcessedItem struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	SourceFilename     string           `json:"sourceFilename"`
	ExtractedText      string           `json:"extractedText"`
	Summary            string           `json:"summary"`
	Settings           LanguageSettings `json:"settings"`
	TokenUsage         int              `json:"tokenUsage"`
	ProcessingDuration time.Duration    `json:"-"`
	StorageKey         string           `json:"-"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// MarshalJSON reports the processing duration in milliseconds rather than
// Duration's native nanoseconds.
func (p ProcessedItem) MarshalJSON() ([]byte, error) {
	type alias ProcessedItem
	return json.Marshal(struct {
		alias
		ProcessingDurationMs int64 `json:"processingDurationMs"`
	}{alias(p), p.ProcessingDuration.Milliseconds()})
}

type ItemStatus string

const (
	StatusSucceeded ItemStatus = "succeeded"
	StatusFailed    ItemStatus = "failed"
)

// FailureReason classifies why one item failed. Reasons map onto the stages
// of the pipeline so a caller can tell "bad input" from "saved nothing".
type FailureReason string

const (
	ReasonUnsupportedFormat FailureReason = "unsupported_format"
	ReasonExtractionFailed  FailureReason = "extraction_failed"
	ReasonEmptyContent      FailureReason = "empty_content"
	ReasonLLMError          FailureReason = "llm_error"
	ReasonPersistenceError  FailureReason = "persistence_error"
)

// ItemResult is the per-artifact outcome of one batch invocation. Results are
// always returned in input order, one per submitted artifact.
//
// Item is populated on success and also on PersistenceError: processing
// succeeded, the durable write did not, and the caller still gets the payload
// to display or download.
type ItemResult struct {
	Index               int            `json:"index"`
	Filename            string         `json:"filename"`
	Status              ItemStatus     `json:"status"`
	Reason              FailureReason  `json:"reason,omitempty"`
	Error               string         `json:"error,omitempty"`
	Item                *ProcessedItem `json:"item,omitempty"`
	NotificationWarning string         `json:"notificationWarning,omitempty"`
}

// AnalyticsSummary is derived from a user's processed items on each read.
// A user with no items gets a zeroed summary rather than an error.
type AnalyticsSummary struct {
	TotalItems        int              `json:"totalItems"`
	TotalTokens       int64            `json:"totalTokens"`
	AvgProcessingMs   float64          `json:"avgProcessingMs"`
	ActiveDays        int              `json:"activeDays"`
	LanguageBreakdown map[string]int64 `json:"languageBreakdown"`
}

// AdminOverview aggregates across all users.
type AdminOverview struct {
	TotalUsers  int   `json:"totalUsers"`
	TotalItems  int   `json:"totalItems"`
	TotalTokens int64 `json:"totalTokens"`
	ItemsToday  int   `json:"itemsToday"`
}
