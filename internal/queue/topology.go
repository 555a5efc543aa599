package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName           = "multiuploader"
	DispatchQueueName      = "dispatch_jobs"
	DeadLetterExchangeName = "multiuploader_dlq"
	DeadLetterQueueName    = "dispatch_jobs_dlq"
	RetryQueueName         = "dispatch_jobs_retry"
)

// queueSpec is one durable queue and the exchange it is bound to, if any
type queueSpec struct {
	name     string
	exchange string
	args     amqp.Table
}

// topology lists everything the dispatch pipeline needs on the broker.
// The retry queue has no consumer: messages sit there until their
// per-message expiration, then dead-letter back onto the dispatch queue.
var topology = struct {
	exchanges []string
	queues    []queueSpec
}{
	exchanges: []string{ExchangeName, DeadLetterExchangeName},
	queues: []queueSpec{
		{name: DispatchQueueName, exchange: ExchangeName},
		{name: DeadLetterQueueName, exchange: DeadLetterExchangeName},
		{name: RetryQueueName, args: amqp.Table{
			"x-dead-letter-exchange":    ExchangeName,
			"x-dead-letter-routing-key": DispatchQueueName,
		}},
	},
}

// declareTopology is idempotent; RabbitMQ accepts redeclaration with
// identical arguments
func declareTopology(ch *amqp.Channel) error {
	for _, name := range topology.exchanges {
		if err := ch.ExchangeDeclare(name, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}

	for _, q := range topology.queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
		if q.exchange == "" {
			continue
		}
		// Routing key equals the queue name
		if err := ch.QueueBind(q.name, q.name, q.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q.name, err)
		}
	}
	return nil
}
