// Package llm drives the vision-capable extraction backend and parses its
// fixed-arity comma-separated responses into scorecard fields.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/verifyhq/scorecard-verifier/internal/common"
)

// Extractor implements ScorecardExtractor on top of a Completer.
type Extractor struct {
	client      Completer
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger
}

func NewExtractor(client Completer, maxAttempts int, retryDelay time.Duration, logger *slog.Logger) *Extractor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:      client,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		log:         logger,
	}
}

// ExtractScorecard requests all seven fields in one shot. A response that
// does not parse into exactly ExpectedFieldCount values is retried up to
// maxAttempts total, with a short delay between attempts. Transport, API and
// file errors are never retried.
func (x *Extractor) ExtractScorecard(ctx context.Context, imagePath string) (ScorecardFields, error) {
	start := time.Now()
	var lastRaw string
	var lastGot int

	for attempt := 1; attempt <= x.maxAttempts; attempt++ {
		x.log.Info("llm.extract.attempt",
			"file", filepath.Base(imagePath),
			"attempt", attempt,
			"max_attempts", x.maxAttempts,
		)

		raw, err := x.client.Complete(ctx, scorecardPrompt, imagePath)
		if err != nil {
			x.log.Error("llm.extract.transport_error",
				"file", filepath.Base(imagePath),
				"attempt", attempt,
				"error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return ScorecardFields{}, fmt.Errorf("%w: %v", common.ErrExtractionTransport, err)
		}

		values := parseLine(cleanResponse(raw))
		if len(values) == ExpectedFieldCount {
			x.log.Info("llm.extract.ok",
				"file", filepath.Base(imagePath),
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return fieldsFromValues(values), nil
		}

		lastRaw, lastGot = raw, len(values)
		x.log.Warn("llm.extract.parse_mismatch",
			"file", filepath.Base(imagePath),
			"attempt", attempt,
			"expected", ExpectedFieldCount,
			"got", lastGot,
		)
		if attempt < x.maxAttempts && x.retryDelay > 0 {
			select {
			case <-time.After(x.retryDelay):
			case <-ctx.Done():
				return ScorecardFields{}, fmt.Errorf("%w: %v", common.ErrExtractionTransport, ctx.Err())
			}
		}
	}

	x.log.Error("llm.extract.exhausted",
		"file", filepath.Base(imagePath),
		"attempts", x.maxAttempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ScorecardFields{}, fmt.Errorf(
		"%w: after %d attempts, expected %d fields, got %d, last raw response %q",
		common.ErrExtractionParse, x.maxAttempts, ExpectedFieldCount, lastGot, snippet(lastRaw, 120),
	)
}

// ExtractSingleField issues one narrowly scoped request for a single field.
// There is no retry loop on this path; any error is returned as-is for the
// caller to treat as "keep the original value".
func (x *Extractor) ExtractSingleField(ctx context.Context, imagePath, fieldName, contextHint string) (string, error) {
	x.log.Info("llm.extract_single.start",
		"file", filepath.Base(imagePath),
		"field", fieldName,
	)

	raw, err := x.client.Complete(ctx, singleFieldPrompt(fieldName, contextHint), imagePath)
	if err != nil {
		x.log.Warn("llm.extract_single.failed", "field", fieldName, "error", err)
		return "", fmt.Errorf("%w: %v", common.ErrExtractionTransport, err)
	}

	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, fieldName+":", ""))
	cleaned = cleanResponse(cleaned)
	x.log.Info("llm.extract_single.ok", "field", fieldName, "value", cleaned)
	return cleaned, nil
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
