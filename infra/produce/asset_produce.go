package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AssetExchange        = "asset.exchange"
	AssetSweepQueue      = "asset.sweep"
	AssetSweepRoutingKey = "asset.sweep"
)

// SweepRequestMessage asks the sweep worker to run one cleanup pass over
// expired unused images.
type SweepRequestMessage struct {
	Reason    string `json:"reason"` // what triggered the request, e.g. "create"
	Timestamp int64  `json:"timestamp"`
}

// AssetService publishes asset lifecycle messages.
type AssetService struct {
	channel *amqp.Channel
}

func InitAssetService(channel *amqp.Channel) *AssetService {
	service := &AssetService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		AssetExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Asset exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		AssetSweepQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Asset sweep queue: " + err.Error())
	}

	err = channel.QueueBind(
		AssetSweepQueue,
		AssetSweepRoutingKey,
		AssetExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Asset sweep queue: " + err.Error())
	}

	return service
}

func (s *AssetService) PublishSweepRequest(ctx context.Context, reason string) error {
	msg := SweepRequestMessage{
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		AssetExchange,
		AssetSweepRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
