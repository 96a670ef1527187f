//go:build integration

package species_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/species"
	id "vetdesk/pkg/domain"
	"vetdesk/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *species.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = species.NewRedisCache(s.redis.Client, 5*time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	kindID := id.AnimalKindID(uuid.New())
	list := []models.Species{
		{ID: id.SpeciesID(uuid.New()), AnimalKindID: kindID, Name: "Van"},
		{ID: id.SpeciesID(uuid.New()), AnimalKindID: kindID, Name: "Tekir"},
	}

	s.Require().NoError(s.cache.Set(ctx, kindID, list))
	found, ok, err := s.cache.Get(ctx, kindID)

	s.Require().NoError(err)
	s.True(ok)
	s.Equal(list, found)
}

func (s *RedisCacheSuite) TestMiss() {
	_, ok, err := s.cache.Get(context.Background(), id.AnimalKindID(uuid.New()))
	s.Require().NoError(err)
	s.False(ok)
}
