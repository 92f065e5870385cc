// internal/workers/bi/compile-metric-sql/handler.go
package compilemetricsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"github.com/JourneytoNewland/chatBI-sub000/internal/common/logger"
	"github.com/JourneytoNewland/chatBI-sub000/internal/mql"
	"github.com/JourneytoNewland/chatBI-sub000/internal/sqlgen"
)

const (
	TaskType = "compile-metric-sql"
)

var (
	ErrMissingIntent = errors.New("MISSING_INTENT")
)

type Handler struct {
	config   *Config
	compiler *sqlgen.Compiler
	logger   logger.Logger
}

func NewHandler(config *Config, compiler *sqlgen.Compiler, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		compiler: compiler,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		var unresolved *sqlgen.UnresolvedSubjectError
		if errors.As(err, &unresolved) {
			// Business error: the catalog does not know this metric, so
			// retrying cannot help. The process handles it via a BPMN
			// error boundary.
			h.failJob(client, job, "SUBJECT_NOT_FOUND", unresolved.Error())
			return
		}
		if errors.Is(err, ErrMissingIntent) {
			h.failJob(client, job, "INVALID_QUERY_INTENT", err.Error())
			return
		}
		h.failJob(client, job, "QUERY_COMPILATION_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.Intent == nil {
		return nil, ErrMissingIntent
	}

	canonical := mql.FromIntent(input.Intent)
	stmt, err := h.compiler.Compile(canonical)
	if err != nil {
		return nil, err
	}

	h.logger.Info("query compiled", map[string]interface{}{
		"subject":    stmt.Subject.Name,
		"paramCount": len(stmt.Params),
	})

	return &Output{
		SQL:       stmt.SQL,
		Params:    stmt.Params,
		Subject:   stmt.Subject.Name,
		Canonical: canonical,
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
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
