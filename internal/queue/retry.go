package queue

import (
	"context"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = time.Minute
	maxRetryDelay     = time.Hour

	retryHeader = "x-retry-count"
)

// retry parks job on the retry queue with an exponential delay, or sends it
// to the dead letter queue once retryCount reaches the limit
func (q *Queue) retry(ctx context.Context, job *models.DispatchJob, retryCount int, reason string) error {
	if retryCount >= q.maxRetries {
		return q.deadLetter(ctx, job, "max retries exceeded: "+reason)
	}

	delay := backoff(q.retryDelay, retryCount)
	err := q.send(ctx, "", RetryQueueName, job, amqp.Publishing{
		Headers:    amqp.Table{retryHeader: int32(retryCount + 1)},
		Expiration: strconv.FormatInt(delay.Milliseconds(), 10),
	})
	if err != nil {
		return err
	}

	q.logger.WithVideoID(job.VideoID).Infof("Job queued for retry #%d in %v", retryCount+1, delay)
	return nil
}

func (q *Queue) deadLetter(ctx context.Context, job *models.DispatchJob, reason string) error {
	err := q.send(ctx, DeadLetterExchangeName, DeadLetterQueueName, job, amqp.Publishing{
		Headers: amqp.Table{
			"x-failure-reason": reason,
			"x-failed-at":      time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}

	q.logger.WithVideoID(job.VideoID).Warnf("Job moved to dead letter queue: %s", reason)
	return nil
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	return q.depth(DeadLetterQueueName)
}

// backoff doubles base per attempt, capped at one hour
func backoff(base time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		base = DefaultRetryDelay
	}
	delay := base
	for i := 0; i < retryCount && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// retryCountFrom reads the retry header; integer widths vary by publisher
func retryCountFrom(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int16:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
