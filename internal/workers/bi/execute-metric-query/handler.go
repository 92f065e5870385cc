// internal/workers/bi/execute-metric-query/handler.go
package executemetricquery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	stderrors "github.com/JourneytoNewland/chatBI-sub000/internal/common/errors"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/engine"
	"github.com/JourneytoNewland/chatBI-sub000/internal/sqlgen"
)

const (
	TaskType = "execute-metric-query"
)

var (
	ErrMissingQuery = errors.New("MISSING_CANONICAL_QUERY")
)

type Handler struct {
	config *Config
	engine *engine.Engine
	logger logger.Logger
	errors *stderrors.ErrorHandler
}

func NewHandler(config *Config, eng *engine.Engine, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		engine: eng,
		logger: scoped,
		errors: stderrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, &stderrors.StandardError{
			Code:      "PARSE_ERROR",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, h.classify(ctx, &input, err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) classify(ctx context.Context, input *Input, err error) *stderrors.StandardError {
	metric := ""
	if input.Canonical != nil {
		metric = input.Canonical.Metric
	}

	var unresolved *sqlgen.UnresolvedSubjectError
	switch {
	case errors.As(err, &unresolved):
		return stderrors.NewSubjectNotFoundError(unresolved.Subject)
	case errors.Is(err, ErrMissingQuery):
		return stderrors.NewInvalidQueryIntentError(err.Error())
	case ctx.Err() != nil:
		return stderrors.NewQueryTimeoutError(metric)
	default:
		return stderrors.NewQueryExecutionFailedError(metric, err)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Canonical == nil {
		return nil, ErrMissingQuery
	}

	rs, err := h.engine.Execute(ctx, input.Canonical)
	if err != nil {
		return nil, err
	}

	rows := rs.Rows
	if h.config.MaxRows > 0 && len(rows) > h.config.MaxRows {
		rows = rows[:h.config.MaxRows]
	}

	h.logger.Info("metric query executed", map[string]interface{}{
		"rows":        rs.RowCount,
		"duration_ms": rs.Duration.Milliseconds(),
		"trend":       rs.Analysis.Trend,
	})

	return &Output{
		SQL:        rs.SQL,
		Rows:       rows,
		RowCount:   rs.RowCount,
		Analysis:   rs.Analysis,
		DurationMs: rs.Duration.Milliseconds(),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
