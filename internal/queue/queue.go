package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// Handler processes one dispatch job. A returned error hands the job back to
// the queue's retry policy.
type Handler func(ctx context.Context, job *models.DispatchJob) error

// JobQueue is the at-least-once dispatch queue
type JobQueue interface {
	Publish(ctx context.Context, job *models.DispatchJob) error
	// Consume runs handler on up to concurrency jobs at a time until ctx is
	// done, then waits for in-flight jobs before returning.
	Consume(ctx context.Context, concurrency int, handler Handler) error
}

var (
	_ JobQueue = (*Queue)(nil)
	_ JobQueue = (*MemoryQueue)(nil)
)

// Queue is the RabbitMQ-backed JobQueue. Failed jobs are retried through a
// delay queue and end up on a dead letter queue after maxRetries.
type Queue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	maxRetries int
	retryDelay time.Duration
	logger     *logging.Logger
}

// New dials the broker and declares the dispatch topology
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		Password: cfg.Password,
		Vhost:    cfg.Vhost,
	}

	conn, err := amqp.Dial(uri.String())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return &Queue{
		conn:       conn,
		channel:    channel,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logging.OrNop(logger),
	}, nil
}

// Close closes the channel and the connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Health reports whether the broker connection is still open
func (q *Queue) Health(context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Publish enqueues a first delivery of job
func (q *Queue) Publish(ctx context.Context, job *models.DispatchJob) error {
	return q.send(ctx, ExchangeName, DispatchQueueName, job, amqp.Publishing{
		Headers: amqp.Table{retryHeader: int32(0)},
	})
}

// send publishes job as a persistent JSON message. msg supplies headers and
// expiration; the body and bookkeeping fields are filled in here.
func (q *Queue) send(ctx context.Context, exchange, key string, job *models.DispatchJob, msg amqp.Publishing) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	msg.DeliveryMode = amqp.Persistent
	msg.ContentType = "application/json"
	msg.Body = body
	msg.Timestamp = time.Now()
	msg.MessageId = job.VideoID

	if err := q.channel.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", key, err)
	}
	return nil
}

// Consume starts consuming jobs from the queue on a bounded pool
func (q *Queue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}

	// Prefetch matches the pool so the broker never hands out more than we run
	err := q.channel.Qos(
		concurrency, // prefetch count
		0,           // prefetch size
		false,       // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		DispatchQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	p := pool.New().WithMaxGoroutines(concurrency)
	defer p.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			p.Go(func() {
				q.handleDelivery(ctx, msg, handler)
			})
		}
	}
}

func (q *Queue) handleDelivery(ctx context.Context, msg amqp.Delivery, handler Handler) {
	var job models.DispatchJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		q.logger.ErrorWithErr("Dropping undecodable dispatch job", err)
		msg.Nack(false, false)
		return
	}

	retryCount := retryCountFrom(msg.Headers)
	job.Attempt = retryCount
	logger := q.logger.WithVideoID(job.VideoID).WithJobID(msg.MessageId)

	err := runHandler(ctx, handler, &job)
	if err == nil {
		msg.Ack(false)
		return
	}

	logger.WarnWithErr("Dispatch job failed", err)

	// Settle on a fresh context; the consumer may be shutting down
	pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := q.retry(pubCtx, &job, retryCount, err.Error()); err != nil {
		logger.ErrorWithErr("Failed to schedule retry, requeueing", err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// runHandler converts a handler panic into an error so the job is retried
func runHandler(ctx context.Context, handler Handler, job *models.DispatchJob) (err error) {
	var pc panics.Catcher
	pc.Try(func() {
		err = handler(ctx, job)
	})
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}

// GetQueueDepth returns the number of jobs waiting on the dispatch queue
func (q *Queue) GetQueueDepth() (int, error) {
	return q.depth(DispatchQueueName)
}

func (q *Queue) depth(name string) (int, error) {
	info, err := q.channel.QueueInspect(name)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect %s: %w", name, err)
	}
	return info.Messages, nil
}
