// Package events publishes commission lifecycle events for dashboards and
// notification workers. Publishing is best effort: the commission state is
// already committed when an event is sent.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Type string

const (
	CommissionCreated  Type = "commission.created"
	CommissionApproved Type = "commission.approved"
	CommissionRejected Type = "commission.rejected"
	CommissionPaid     Type = "commission.paid"
	CommissionAdjusted Type = "commission.adjusted"
	CommissionGap      Type = "commission.gap" // kural bulunamadı
)

type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	CommissionID uint      `json:"commission_id,omitempty"`
	SaleID       uint      `json:"sale_id"`
	UserID       uint      `json:"user_id"`
	ActorID      uint      `json:"actor_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	FinalAmount  string    `json:"final_amount,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func New(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("olay kodlanamadı: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("olay yayınlanamadı (%s): %w", e.Type, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Connect: REDIS_URL boşsa ya da sunucuya ulaşılamıyorsa Nop döner,
// uygulama olaysız çalışmaya devam eder.
func Connect(redisURL, channel string) Publisher {
	if redisURL == "" {
		return Nop{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Warning: REDIS_URL çözümlenemedi: %v", err)
		return Nop{}
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis bağlantısı kurulamadı: %v", err)
		log.Println("Komisyon olayları yayınlanmayacak")
		client.Close()
		return Nop{}
	}

	log.Println("Connected to Redis, olay kanalı:", channel)
	return NewRedisPublisher(client, channel)
}
