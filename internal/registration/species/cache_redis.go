package species

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
)

const redisKeyPrefix = "vetdesk:species:"

// RedisCache shares species lists between vetdesk instances.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type redisSpecies struct {
	ID           string `json:"id"`
	AnimalKindID string `json:"animal_kind_id"`
	Name         string `json:"name"`
}

func redisKey(kindID id.AnimalKindID) string {
	return redisKeyPrefix + kindID.String()
}

func (c *RedisCache) Get(ctx context.Context, kindID id.AnimalKindID) ([]models.Species, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(kindID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get species: %w", err)
	}

	var stored []redisSpecies
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("decode cached species: %w", err)
	}
	list := make([]models.Species, 0, len(stored))
	for _, s := range stored {
		speciesID, err := id.ParseSpeciesID(s.ID)
		if err != nil {
			return nil, false, fmt.Errorf("decode cached species id: %w", err)
		}
		list = append(list, models.Species{ID: speciesID, AnimalKindID: kindID, Name: s.Name})
	}
	return list, true, nil
}

func (c *RedisCache) Set(ctx context.Context, kindID id.AnimalKindID, list []models.Species) error {
	stored := make([]redisSpecies, 0, len(list))
	for _, s := range list {
		stored = append(stored, redisSpecies{ID: s.ID.String(), AnimalKindID: kindID.String(), Name: s.Name})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode species: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(kindID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set species: %w", err)
	}
	return nil
}
