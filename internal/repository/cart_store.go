package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/models"
)

const DefaultCartTTL = 24 * time.Hour

func cartKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}

// RedisCartStore keeps each session cart as a JSON document with a sliding TTL.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &RedisCartStore{client: client, ttl: ttl}
}

func (s *RedisCartStore) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewCart(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart %s: %w", cartID, err)
	}

	cart := models.NewCart()
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", cartID, err)
	}
	return cart, nil
}

// Save stores the cart and restarts its TTL. An empty cart is deleted instead.
func (s *RedisCartStore) Save(ctx context.Context, cartID string, cart *models.Cart) error {
	if cart.IsEmpty() {
		return s.Delete(ctx, cartID)
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cartID, err)
	}
	if err := s.client.Set(ctx, cartKey(cartID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", cartID, err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, cartKey(cartID)).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", cartID, err)
	}
	return nil
}

type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string][]byte)}
}

func (s *MemoryCartStore) Get(_ context.Context, cartID string) (*models.Cart, error) {
	s.mu.Lock()
	data, ok := s.carts[cartID]
	s.mu.Unlock()

	cart := models.NewCart()
	if !ok {
		return cart, nil
	}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", cartID, err)
	}
	return cart, nil
}

func (s *MemoryCartStore) Save(ctx context.Context, cartID string, cart *models.Cart) error {
	if cart.IsEmpty() {
		return s.Delete(ctx, cartID)
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cartID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cartID] = data
	return nil
}

func (s *MemoryCartStore) Delete(_ context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, cartID)
	return nil
}
