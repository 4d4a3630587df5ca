package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"scanbrief/internal/util"
	"scanbrief/pkg/ai"
	"scanbrief/pkg/domain"
	"scanbrief/pkg/mail"
)

// Process runs the pipeline over a batch of uploads. Every artifact yields
// exactly one result, in input order. A failed item never aborts its
// siblings; only invalid options or an empty batch fail the call itself.
func (a *App) Process(ctx context.Context, user domain.User, artifacts []domain.Artifact, opts domain.ProcessOptions) ([]domain.ItemResult, error) {
	if len(artifacts) == 0 {
		return nil, ErrNoArtifacts
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	results := make([]domain.ItemResult, len(artifacts))
	// A plain Group, not WithContext: one item's failure must not cancel
	// the others.
	g := new(errgroup.Group)
	g.SetLimit(a.workers)
	for i, artifact := range artifacts {
		i, artifact := i, artifact
		g.Go(func() error {
			results[i] = a.processOne(ctx, user, i, artifact, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (a *App) processOne(ctx context.Context, user domain.User, index int, artifact domain.Artifact, opts domain.ProcessOptions) domain.ItemResult {
	logger := util.LoggerFromContext(ctx).With("filename", artifact.Filename, "index", index)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	fail := func(reason domain.FailureReason, err error) domain.ItemResult {
		logger.Warn("item failed", "reason", string(reason), "error", err)
		return domain.ItemResult{
			Index:    index,
			Filename: artifact.Filename,
			Status:   domain.StatusFailed,
			Reason:   reason,
			Error:    err.Error(),
		}
	}

	text, err := a.extractContent(ctx, artifact, opts.OCRLanguage)
	if err != nil {
		if isUnsupportedFormat(err) {
			return fail(domain.ReasonUnsupportedFormat, err)
		}
		return fail(domain.ReasonExtractionFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fail(domain.ReasonEmptyContent, ErrEmptyContent)
	}

	settings := domain.LanguageSettings{
		SummaryLength:   opts.SummaryLength,
		SummaryLanguage: opts.SummaryLanguage,
		OCRLanguage:     opts.OCRLanguage,
		Mode:            opts.Mode,
	}
	if opts.Mode == domain.ModeAnalyzeCode {
		if detected, err := a.completer.DetectLanguage(ctx, text); err == nil {
			settings.DetectedLanguage = detected
		} else {
			logger.Warn("language detection failed", "error", err)
		}
	}

	completion, err := a.complete(ctx, ai.CompletionRequest{
		Text:           text,
		Mode:           opts.Mode,
		SummaryLength:  opts.SummaryLength,
		OutputLanguage: opts.SummaryLanguage,
	})
	if err != nil {
		return fail(domain.ReasonLLMError, err)
	}

	var storageKey string
	if a.objects != nil {
		storageKey, err = a.objects.PutUpload(ctx, artifact.Filename, artifact.Data, artifact.MediaType)
		if err != nil {
			logger.Warn("upload archive failed", "error", err)
			storageKey = ""
		}
	}

	item := domain.ProcessedItem{
		ID:                 util.NewID(),
		UserID:             user.ID,
		SourceFilename:     artifact.Filename,
		ExtractedText:      text,
		Summary:            completion.Content,
		Settings:           settings,
		TokenUsage:         completion.TokensUsed,
		ProcessingDuration: time.Since(start),
		StorageKey:         storageKey,
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := a.store.AppendItem(ctx, item); err != nil {
		// Processing itself succeeded, so the caller still gets the
		// payload, flagged as not durably saved.
		logger.Error("persist item failed", "error", err)
		return domain.ItemResult{
			Index:    index,
			Filename: artifact.Filename,
			Status:   domain.StatusFailed,
			Reason:   domain.ReasonPersistenceError,
			Error:    err.Error(),
			Item:     &item,
		}
	}

	result := domain.ItemResult{
		Index:    index,
		Filename: artifact.Filename,
		Status:   domain.StatusSucceeded,
		Item:     &item,
	}
	if opts.NotifyEmail != "" {
		result.NotificationWarning = a.notify(ctx, user, opts.NotifyEmail, item)
	}
	logger.Info("item processed",
		"tokens", item.TokenUsage,
		"duration_ms", item.ProcessingDuration.Milliseconds(),
	)
	return result
}

// complete calls the LLM with a single retry on transient failures.
func (a *App) complete(ctx context.Context, req ai.CompletionRequest) (ai.Completion, error) {
	var completion ai.Completion
	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		completion, err = a.completer.Complete(ctx, req)
		if err != nil && ai.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return completion, err
}

// notify sends the completion email. Failures never fail the item; the
// returned warning is surfaced on the result instead.
func (a *App) notify(ctx context.Context, user domain.User, to string, item domain.ProcessedItem) string {
	if a.mailer == nil {
		return "email notifications are not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	body := mail.ProcessingCompleteBody(user.Username, item.SourceFilename, item.Summary)
	if err := a.mailer.Send(ctx, to, mail.ProcessingCompleteSubject, body); err != nil {
		util.LoggerFromContext(ctx).Warn("notification email failed", "to", to, "error", err)
		return fmt.Sprintf("failed to send notification email: %v", err)
	}
	return ""
}
