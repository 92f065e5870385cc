// internal/workers/bi/recognize-query-intent/handler.go
package recognizequeryintent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	stderrors "github.com/JourneytoNewland/chatBI-sub000/internal/common/errors"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/common/metrics"
	"github.com/JourneytoNewland/chatBI-sub000/internal/conversation"
	"github.com/JourneytoNewland/chatBI-sub000/internal/recognition"
)

const (
	TaskType = "recognize-query-intent"
)

var (
	ErrEmptyQuery = errors.New("EMPTY_QUERY")
)

type Handler struct {
	config       *Config
	orchestrator *recognition.Orchestrator
	store        conversation.Store
	logger       logger.Logger
}

func NewHandler(config *Config, orchestrator *recognition.Orchestrator, store conversation.Store, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		orchestrator: orchestrator,
		store:        store,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "PARSE_ERROR").Inc()
		h.failJob(client, job, &stderrors.StandardError{
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
		stdErr := h.classify(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.failJob(client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) classify(err error) *stderrors.StandardError {
	if errors.Is(err, ErrEmptyQuery) {
		return stderrors.NewInvalidQueryIntentError("query is empty")
	}
	return stderrors.NewRecognitionFailedError(err)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	resolved := query
	var convCtx *conversation.Context
	if h.store != nil && input.SessionID != "" {
		c, err := h.store.Get(ctx, input.SessionID)
		if err != nil {
			// Degrade to a contextless recognition rather than failing
			// the whole job over a session lookup.
			h.logger.Warn("conversation context unavailable", map[string]interface{}{
				"sessionId": input.SessionID,
				"error":     err.Error(),
			})
		} else {
			convCtx = c
			if r, ok := c.ResolveReference(query); ok {
				resolved = r
				h.logger.Info("resolved pronoun reference", map[string]interface{}{
					"sessionId": input.SessionID,
					"resolved":  resolved,
				})
			}
		}
	}

	result := h.orchestrator.Recognize(ctx, resolved)

	if convCtx != nil {
		convCtx.AddTurn(query, result.Intent, time.Now().UTC())
		if err := h.store.Save(ctx, convCtx); err != nil {
			h.logger.Warn("conversation context save failed", map[string]interface{}{
				"sessionId": input.SessionID,
				"error":     err.Error(),
			})
		}
	}

	queryID := uuid.NewString()

	h.logger.Info("intent recognized", map[string]interface{}{
		"queryId":    queryID,
		"source":     string(result.Source),
		"confidence": result.Confidence,
		"subject":    result.Intent.CoreSubject,
	})

	return &Output{
		QueryID:       queryID,
		Intent:        result.Intent,
		ResolvedQuery: resolved,
		Source:        string(result.Source),
		Confidence:    result.Confidence,
		Layers:        result.Layers,
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *stderrors.StandardError) {
	bpmnErr := stderrors.ConvertToBPMNError(stdErr)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"retryable":    bpmnErr.Retryable,
		"retries":      bpmnErr.Retries,
	})

	if bpmnErr.Retries > 0 {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(int32(bpmnErr.Retries)).
			ErrorMessage(bpmnErr.Message).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
