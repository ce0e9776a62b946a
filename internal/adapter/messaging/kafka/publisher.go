package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/domain"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// eventTypeHeader tells consumers which schema the value follows.
const eventTypeHeader = "event_type"

// LedgerEvent is the message value published for every committed entry.
type LedgerEvent struct {
	TransactionID   string  `json:"transaction_id"`
	WalletID        string  `json:"wallet_id"`
	UserID          string  `json:"user_id"`
	Type            string  `json:"transaction_type"`
	Amount          string  `json:"amount"`
	BalanceSnapshot string  `json:"balance_snapshot"`
	WalletVersion   int64   `json:"wallet_version"`
	MerchantID      *string `json:"merchant_id,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	OriginalAmount  *string `json:"original_amount,omitempty"`
	IdempotencyKey  *string `json:"idempotency_key,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// NewLedgerEvent flattens a ledger entry into its wire form.
func NewLedgerEvent(t *domain.Transaction) LedgerEvent {
	ev := LedgerEvent{
		TransactionID:   t.ID.String(),
		WalletID:        t.WalletID.String(),
		UserID:          t.UserID.String(),
		Type:            string(t.TransactionType),
		Amount:          t.Amount.String(),
		BalanceSnapshot: t.BalanceSnapshot.String(),
		WalletVersion:   t.WalletVersion,
		Currency:        t.Currency,
		IdempotencyKey:  t.IdempotencyKey,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.MerchantID != nil {
		id := t.MerchantID.String()
		ev.MerchantID = &id
	}
	if t.OriginalAmount != nil {
		amt := t.OriginalAmount.String()
		ev.OriginalAmount = &amt
	}
	return ev
}

// Publisher implements ports.LedgerPublisher on a sarama SyncProducer.
// Messages are keyed by wallet id so one wallet's entries stay ordered
// within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

// NewPublisher wraps an existing producer.
func NewPublisher(producer sarama.SyncProducer, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, log: log}
}

// ProducerConfig builds the sarama config for the ledger stream.
func ProducerConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Retry.Max = 5
	sc.Producer.Return.Successes = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

// Dial connects a SyncProducer to the configured brokers.
func Dial(cfg config.KafkaConfig, log zerolog.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Kafka producer connected")
	return NewPublisher(producer, cfg.Topic, log), nil
}

// Publish sends one committed entry. ctx is accepted for the port; the
// SyncProducer call itself is bounded by the producer's own timeouts.
func (p *Publisher) Publish(ctx context.Context, entry *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(NewLedgerEvent(entry))
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.WalletID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(eventTypeHeader), Value: []byte(entry.TransactionType)},
		},
		Timestamp: entry.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send ledger event: %w", err)
	}

	p.log.Debug().
		Str("tx_id", entry.ID.String()).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("ledger event published")
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
