package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

const handleTimeout = 10 * time.Second

// Enqueuer is the part of the wait queue the consumer needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, req services.EnqueueRequest) (*services.EnqueueResult, error)
}

// IntakeMessage is one party joining through the broker.
type IntakeMessage struct {
	Name      string `json:"name"`
	PartySize int    `json:"party_size"`
	Contact   string `json:"contact"`
}

type IntakeConsumer struct {
	queue Enqueuer
	wg    sync.WaitGroup
}

func NewIntakeConsumer(queue Enqueuer) *IntakeConsumer {
	return &IntakeConsumer{queue: queue}
}

// Start handles deliveries until msgs is closed.
func (ic *IntakeConsumer) Start(msgs <-chan amqp.Delivery) {
	ic.wg.Add(1)
	go func() {
		defer ic.wg.Done()
		for msg := range msgs {
			ic.handleMessage(msg)
		}
		utils.InfoLogger.Info("[IntakeConsumer] channel closed, stopping consumer")
	}()
}

// Wait blocks until the delivery channel has been drained.
func (ic *IntakeConsumer) Wait() {
	ic.wg.Wait()
}

func (ic *IntakeConsumer) handleMessage(msg amqp.Delivery) {
	var in IntakeMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		utils.ErrorLogger.Errorf("[IntakeConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	result, err := ic.queue.Enqueue(ctx, services.EnqueueRequest{
		Name:      in.Name,
		PartySize: in.PartySize,
		Contact:   in.Contact,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		utils.ErrorLogger.Warnf("[IntakeConsumer] rejected party: %v", err)
		msg.Nack(false, false)
		return
	default:
		utils.ErrorLogger.Errorf("[IntakeConsumer] failed to queue party: %v", err)
		msg.Nack(false, true)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"party_id":       result.Party.ID,
		"already_queued": result.AlreadyQueued,
	}).Info("[IntakeConsumer] party received")
	msg.Ack(false)
}
