package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"crowdfund-api/internal/app"
	"crowdfund-api/internal/model"
	"crowdfund-api/internal/platform/rabbitmq"
)

// retryDelay paces redelivery while storage is failing.
const retryDelay = time.Second

var errUndecodable = errors.New("decode donation failed")

type DonationPersister interface {
	Persist(ctx context.Context, donation *model.Donation) error
}

// DonationPersistWorker drains the pledge queue into the donations table.
type DonationPersistWorker struct {
	conn      *amqp.Connection
	persister DonationPersister
	queueName string
	log       logrus.FieldLogger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

func NewDonationPersistWorker(conn *amqp.Connection, persister DonationPersister, queueName string, log logrus.FieldLogger) *DonationPersistWorker {
	return &DonationPersistWorker{
		conn:      conn,
		persister: persister,
		queueName: queueName,
		log:       log.WithField("worker", "donation_persist"),
	}
}

func (w *DonationPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.running.Store(true)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.running.Store(false)
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("delivery channel closed")
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					requeue := !dropDelivery(err)
					w.log.WithError(err).WithField("requeue", requeue).Error("persist donation failed")
					if requeue {
						select {
						case <-time.After(retryDelay):
						case <-workerCtx.Done():
						}
					}
					_ = d.Nack(false, requeue)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.WithField("queue", w.queueName).Info("donation worker started")
	return nil
}

// Handle decodes one pledge and stores it. Errors for which dropDelivery
// reports true are final; anything else is worth another attempt.
func (w *DonationPersistWorker) Handle(ctx context.Context, body []byte) error {
	var donation model.Donation
	if err := json.Unmarshal(body, &donation); err != nil {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}

	if err := w.persister.Persist(ctx, &donation); err != nil {
		if errors.Is(err, app.ErrAccountGone) || errors.Is(err, app.ErrCampaignNotFound) {
			w.log.WithFields(logrus.Fields{
				"user_id":     donation.UserID,
				"campaign_id": donation.CampaignID,
			}).Warn("dropping orphaned donation")
		}
		return err
	}

	w.log.WithFields(logrus.Fields{
		"donation_id": donation.ID,
		"campaign_id": donation.CampaignID,
		"amount":      donation.Amount.StringFixed(2),
	}).Info("donation persisted")
	return nil
}

// dropDelivery reports whether a failed pledge can never succeed: the body
// is garbage or the user or campaign is gone.
func dropDelivery(err error) bool {
	return errors.Is(err, errUndecodable) ||
		errors.Is(err, app.ErrAccountGone) ||
		errors.Is(err, app.ErrCampaignNotFound)
}

// Running reports whether the consumer loop is alive. It turns false when
// the broker closes the delivery channel.
func (w *DonationPersistWorker) Running() bool {
	return w != nil && w.running.Load()
}

func (w *DonationPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
