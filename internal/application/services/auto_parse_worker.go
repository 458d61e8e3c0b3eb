package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// DefaultParseFunction formats raw intake notes into structured sections
const DefaultParseFunction = "format-intake-ai"

// ParseRunResult summarises one worker pass
type ParseRunResult struct {
	Claimed int `json:"claimed"`
	Parsed  int `json:"parsed"`
	Failed  int `json:"failed"`
}

type parseRequest struct {
	AppointmentID string `json:"appointment_id"`
	ProjectName   string `json:"project_name"`
	Notes         string `json:"notes"`
}

// AutoParseWorker claims unparsed appointments and sends their notes to the
// formatting function. A claimed row is attempted once; it is only offered
// again after an explicit reparse.
type AutoParseWorker struct {
	repo     repositories.AppointmentRepository
	invoker  providers.FunctionInvoker
	events   providers.EventBus
	metrics  *observability.Metrics
	function string
	batch    int
	interval time.Duration
	logger   zerolog.Logger
}

// NewAutoParseWorker creates a worker
func NewAutoParseWorker(
	repo repositories.AppointmentRepository,
	invoker providers.FunctionInvoker,
	events providers.EventBus,
	metrics *observability.Metrics,
	function string,
	batch int,
	interval time.Duration,
) *AutoParseWorker {
	if function == "" {
		function = DefaultParseFunction
	}
	if batch <= 0 {
		batch = 20
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoParseWorker{
		repo:     repo,
		invoker:  invoker,
		events:   events,
		metrics:  metrics,
		function: function,
		batch:    batch,
		interval: interval,
		logger:   observability.Component("autoparse"),
	}
}

// Run polls until ctx is cancelled. The first pass starts immediately.
func (w *AutoParseWorker) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Int("batch", w.batch).Msg("auto-parse worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error().Err(err).Msg("auto-parse pass failed")
		}
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("auto-parse worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch and processes it
func (w *AutoParseWorker) RunOnce(ctx context.Context) (*ParseRunResult, error) {
	if w.invoker == nil {
		return nil, apperrors.NewExternalError("function invoker not configured", nil)
	}
	claims, err := w.repo.ClaimUnparsed(ctx, w.batch)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	result := &ParseRunResult{Claimed: len(claims)}
	if len(claims) == 0 {
		return result, nil
	}

	parsedByProject := map[string][]string{}
	for _, claim := range claims {
		if ctx.Err() != nil {
			// Unprocessed claims stay started and wait for a manual reparse.
			break
		}
		if err := w.process(ctx, claim); err != nil {
			result.Failed++
			w.logger.Warn().Err(err).Str("appointment_id", claim.ID).Msg("intake parse failed")
			continue
		}
		result.Parsed++
		parsedByProject[claim.ProjectName] = append(parsedByProject[claim.ProjectName], claim.ID)
	}

	for project, ids := range parsedByProject {
		publish(ctx, w.events, providers.EventChannelAppointmentUpdates,
			entities.NewChangeEvent(project, entities.ChangeEventParsed, ids...))
	}
	if w.metrics != nil {
		observability.RecordOutcome(ctx, w.metrics.ParseOutcomes, "parsed", int64(result.Parsed))
		observability.RecordOutcome(ctx, w.metrics.ParseOutcomes, "failed", int64(result.Failed))
	}
	w.logger.Info().Int("claimed", result.Claimed).Int("parsed", result.Parsed).Int("failed", result.Failed).Msg("auto-parse pass done")
	return result, nil
}

func (w *AutoParseWorker) process(ctx context.Context, claim repositories.ParseClaim) error {
	var out entities.ParseResult
	err := w.invoker.Invoke(ctx, w.function, parseRequest{
		AppointmentID: claim.ID,
		ProjectName:   claim.ProjectName,
		Notes:         claim.Notes,
	}, &out)
	if err == nil {
		err = out.Validate()
	}
	if err != nil {
		w.recordFailure(claim.ID, err)
		return err
	}

	if err := w.repo.CompleteParse(ctx, claim.ID, &out); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			return fmt.Errorf("already completed: %w", err)
		}
		w.recordFailure(claim.ID, err)
		return err
	}
	return nil
}

// recordFailure uses its own context so a shutdown still stores the reason
func (w *AutoParseWorker) recordFailure(id string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.repo.FailParse(ctx, id, cause.Error()); err != nil {
		w.logger.Error().Err(err).Str("appointment_id", id).Msg("failed to record parse error")
	}
}
