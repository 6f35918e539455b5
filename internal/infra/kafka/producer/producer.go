package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/config"
	"github.com/aliskhannn/jpg-converter/internal/model"
)

const (
	EventItemStatus = "item_status"
	EventProgress   = "progress"

	progressKey = "progress"
)

// Event is the JSON payload published for every pipeline notification.
type Event struct {
	Type     string       `json:"type"`
	ItemID   string       `json:"item_id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Status   model.Status `json:"status,omitempty"`
	Progress int          `json:"progress"`
	Time     time.Time    `json:"time"`
}

// sender defines the interface for delivering a keyed message with retries.
type sender interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
}

// Producer publishes item status and progress events to Kafka.
// It satisfies the pipeline observer contract; delivery failures are
// logged and never reach the run.
type Producer struct {
	Client   *wbfkafka.Producer
	sender   sender
	strategy retry.Strategy
	now      func() time.Time
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	client := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   client,
		sender:   client,
		strategy: s,
		now:      time.Now,
	}
}

// ItemStatusChanged publishes a status event keyed by the item ID so that
// events of one item keep their order within a partition.
func (p *Producer) ItemStatusChanged(ctx context.Context, item model.QueueItem, status model.Status) {
	p.publish(ctx, item.ID.String(), Event{
		Type:   EventItemStatus,
		ItemID: item.ID.String(),
		Name:   item.DisplayName,
		Status: status,
	})
}

// ProgressChanged publishes a progress event.
func (p *Producer) ProgressChanged(ctx context.Context, percent int) {
	p.publish(ctx, progressKey, Event{
		Type:     EventProgress,
		Progress: percent,
	})
}

// Produce serializes the event to JSON and sends it to Kafka.
func (p *Producer) Produce(ctx context.Context, key string, ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = p.now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = p.sender.SendWithRetry(ctx, p.strategy, []byte(key), data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// Close releases the underlying Kafka writer.
func (p *Producer) Close() error {
	if p.Client == nil {
		return nil
	}
	return p.Client.Close()
}

func (p *Producer) publish(ctx context.Context, key string, ev Event) {
	if err := p.Produce(ctx, key, ev); err != nil {
		zlog.Logger.Err(err).
			Str("type", ev.Type).
			Str("key", key).
			Msg("failed to publish conversion event")
	}
}
