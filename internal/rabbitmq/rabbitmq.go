package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/vatsal3003/snapnorm/internal/logger"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

const publishTimeout = 5 * time.Second

type RabbitMQClient struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queueName   string
	resultQueue string
	publishMu   sync.Mutex
	log         logger.Logger
}

// NewRabbitMQClient dials url and declares the durable job queue, plus the
// result queue when resultQueue is not empty.
func NewRabbitMQClient(url, queueName, resultQueue string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	for _, name := range []string{queueName, resultQueue} {
		if name == "" {
			continue
		}
		_, err = ch.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	return &RabbitMQClient{
		conn:        conn,
		channel:     ch,
		queueName:   queueName,
		resultQueue: resultQueue,
		log:         logger.GetDefault().With("queue", queueName),
	}, nil
}

func (c *RabbitMQClient) Close() {
	if c.channel != nil {
		c.channel.Close()
	}

	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *RabbitMQClient) PublishJob(job models.NormalizeJob) error {
	body, err := EncodeJob(job)
	if err != nil {
		return err
	}
	return c.publish(c.queueName, job.JobID, body)
}

// PublishResult sends a processed job's outcome to the result queue. It is a
// no-op when no result queue is configured.
func (c *RabbitMQClient) PublishResult(result models.JobResult) error {
	if c.resultQueue == "" {
		return nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return c.publish(c.resultQueue, result.JobID, body)
}

func (c *RabbitMQClient) publish(queue, messageID string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	err := c.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// ConsumeJobs runs workers goroutines over the job queue until stopChan is
// closed or the delivery channel closes. Prefetch equals workers so the
// broker never hands this consumer more jobs than it can run at once.
func (c *RabbitMQClient) ConsumeJobs(processFunc func(models.NormalizeJob) error, workers int, stopChan <-chan struct{}) error {
	if workers < 1 {
		workers = 1
	}

	err := c.channel.Qos(
		workers, // prefetch count
		0,       // prefetch size
		false,   // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.log.Info("worker started", "workers", workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			c.consume(id, msgs, processFunc, stopChan)
			return nil
		})
	}

	return g.Wait()
}

func (c *RabbitMQClient) consume(id int, msgs <-chan amqp.Delivery, processFunc func(models.NormalizeJob) error, stopChan <-chan struct{}) {
	log := c.log.With("worker", id)

	for {
		select {
		case <-stopChan:
			log.Debug("worker shutting down")
			return
		case d, ok := <-msgs:
			if !ok {
				log.Debug("delivery channel closed")
				return
			}
			c.handle(log, d, processFunc)
		}
	}
}

// handle acks every job that could be decoded: normalization failures are
// permanent and already reported through the result queue. Undecodable
// messages are rejected without requeue.
func (c *RabbitMQClient) handle(log logger.Logger, d amqp.Delivery, processFunc func(models.NormalizeJob) error) {
	job, err := DecodeJob(d.Body)
	if err != nil {
		log.Error("failed to decode job", "error", err)
		if rerr := d.Reject(false); rerr != nil {
			log.Warn("failed to reject message", "error", rerr)
		}
		return
	}

	log.Debug("received job", "job_id", job.JobID, "source", job.SourcePath)

	if err := processFunc(job); err != nil {
		log.Error("failed to process job", "job_id", job.JobID, "error", err)
	} else {
		log.Debug("successfully processed job", "job_id", job.JobID)
	}

	if err := d.Ack(false); err != nil {
		log.Warn("failed to ack message", "job_id", job.JobID, "error", err)
	}
}

func EncodeJob(job models.NormalizeJob) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return body, nil
}

// DecodeJob parses a job message and checks the fields a worker needs.
func DecodeJob(body []byte) (models.NormalizeJob, error) {
	var job models.NormalizeJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.SourcePath == "" {
		return job, fmt.Errorf("job %s has no source_path", job.JobID)
	}
	if job.ArtifactID == "" {
		return job, fmt.Errorf("job %s has no artifact_id", job.JobID)
	}
	return job, nil
}
