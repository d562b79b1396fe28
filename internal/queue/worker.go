package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"fulfillment-workers/internal/common/config"
	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/metrics"
	"fulfillment-workers/internal/common/observability"
	"fulfillment-workers/internal/fulfillment"
)

// Runner is satisfied by *fulfillment.Coordinator.
type Runner interface {
	RunFulfillment(ctx context.Context, applicationID int64) (*fulfillment.RunReport, error)
}

// Processor handles fulfillment tasks. Only errors the engine would redeliver
// are retried; everything else is archived with asynq.SkipRetry.
type Processor struct {
	runner Runner
	obs    *observability.Observability
	logger logger.Logger
}

func NewProcessor(runner Runner, obs *observability.Observability, log logger.Logger) *Processor {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Processor{runner: runner, obs: obs, logger: log}
}

func (p *Processor) HandleFulfillment(ctx context.Context, task *asynq.Task) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskFulfillment).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskFulfillment).Dec()

	payload, err := ParseFulfillmentPayload(task)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskFulfillment, string(errors.ErrCodeInputParsingFailed)).Inc()
		return fmt.Errorf("%w: %v", asynq.SkipRetry, errors.NewInputParsingFailedError(err))
	}

	log := p.logger.WithFields(map[string]interface{}{
		"applicationId": payload.ApplicationID,
		"task":          TaskFulfillment,
	})
	if id, ok := asynq.GetTaskID(ctx); ok {
		log = log.WithFields(map[string]interface{}{"taskId": id})
	}

	report, err := p.runner.RunFulfillment(ctx, payload.ApplicationID)
	status := metrics.ResultLabel(err)
	p.obs.RecordJobProcessed(ctx, "asynq", status)
	p.obs.RecordJobDuration(ctx, time.Since(start), "asynq", status)

	if err != nil {
		code := errors.CodeOf(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskFulfillment, string(code)).Inc()
		if errors.IsRetryableErrorCode(code) {
			log.Warn("fulfillment task will be retried", map[string]interface{}{"error": err, "errorCode": string(code)})
			return err
		}
		log.Error("fulfillment task failed", map[string]interface{}{"error": err, "errorCode": string(code)})
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskFulfillment).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskFulfillment).Observe(time.Since(start).Seconds())
	log.Info("fulfillment task completed", map[string]interface{}{
		"runId":   report.RunID,
		"outcome": report.Summary(),
	})
	return nil
}

// Server consumes fulfillment tasks from Redis.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger logger.Logger
}

func NewServer(redisCfg config.RedisConfig, queueCfg config.QueueConfig, processor *Processor, log logger.Logger) *Server {
	concurrency := queueCfg.Concurrency
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(redisClientOpt(redisCfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(queueCfg): 1,
		},
		RetryDelayFunc: retryDelay,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskFulfillment, processor.HandleFulfillment)

	return &Server{server: server, mux: mux, logger: log}
}

// Start begins processing in the background.
func (s *Server) Start() error {
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("start fulfillment queue: %w", err)
	}
	s.logger.Info("fulfillment queue consumer started", nil)
	return nil
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
	s.logger.Info("fulfillment queue consumer stopped", nil)
}

// retryDelay backs off 10s, 20s, 40s... capped at five minutes.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := 10 * time.Second << n
	if n > 5 || delay > 5*time.Minute {
		return 5 * time.Minute
	}
	return delay
}
