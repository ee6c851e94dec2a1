package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/chainboard/asset-service/infra"
	"github.com/chainboard/asset-service/infra/produce"
	"github.com/chainboard/asset-service/service"
)

type SweepConsumer struct {
	channel *amqp.Channel
	infra   *infra.Infra
	images  *service.ImageService
	limit   int
}

func NewSweepConsumer(channel *amqp.Channel, infra *infra.Infra, images *service.ImageService, limit int) *SweepConsumer {
	return &SweepConsumer{
		channel: channel,
		infra:   infra,
		images:  images,
		limit:   limit,
	}
}

func (c *SweepConsumer) Start(ctx context.Context) error {
	if err := c.startSweepRequestConsumer(ctx); err != nil {
		return fmt.Errorf("failed to start sweep request consumer: %w", err)
	}

	return nil
}

func (c *SweepConsumer) startSweepRequestConsumer(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.AssetSweepQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register sweep request consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Sweep Consumer] Started listening for sweep requests on queue: %s", produce.AssetSweepQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Sweep Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Sweep Consumer] Channel closed")
					return
				}
				c.handleSweepRequest(ctx, msg)
			}
		}
	}()

	return nil
}

// StartScheduledSweeps runs a periodic sweep independent of queued requests,
// so expired images are reclaimed even if no upload traffic triggers them.
func (c *SweepConsumer) StartScheduledSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Sweep Consumer - Scheduler] Shutting down...")
				return
			case <-ticker.C:
				c.runSweep(ctx, "scheduled")
			}
		}
	}()
}

func (c *SweepConsumer) handleSweepRequest(ctx context.Context, msg amqp.Delivery) {
	c.infra.Logger.InfoWithContextf(ctx, "[Sweep Consumer] Received message: %s", string(msg.Body))

	var payload produce.SweepRequestMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Sweep Consumer] Failed to unmarshal message: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	c.runSweep(ctx, payload.Reason)

	// A sweep pass that hit failures still made forward progress on the
	// images it did reclaim; the next request retries the rest.
	_ = msg.Ack(false)
}

func (c *SweepConsumer) runSweep(ctx context.Context, reason string) {
	swept, err := c.images.SweepExpired(ctx, c.limit)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Sweep Consumer] Sweep (%s) reclaimed %d images with errors: %v", reason, swept, err)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Sweep Consumer] Sweep (%s) reclaimed %d expired images", reason, swept)
}
