/*
Copyright 2024 RoutePay Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package payrouter

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/database"
	"github.com/routepay/payrouter/internal/cache"
	redis_db "github.com/routepay/payrouter/internal/redis-db"
)

// Clock abstracts time so the health state machine's cooldown timers can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// PayRouter is the payout routing engine. It owns the payout, batch and
// refund state machines; the persistence store is its durable mirror.
type PayRouter struct {
	registry *Registry
	store    database.IStore
	backend  SettlementBackend
	queue    *Queue
	cache    cache.Cache
	redis    redis.UniversalClient
	clock    Clock
}

// NewPayRouter initializes the engine from the loaded configuration with the
// provided store and settlement backend. The route registry is built fresh
// from the configured route set.
func NewPayRouter(store database.IStore, backend SettlementBackend) (*PayRouter, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns})
	if err != nil {
		return nil, err
	}

	clock := realClock{}
	registry := NewRegistry(configuration.Routes, configuration.Health, clock)
	newQueue := NewQueue(configuration)

	return &PayRouter{
		registry: registry,
		store:    store,
		backend:  backend,
		queue:    newQueue,
		cache:    cache.NewCache(redisClient.Client()),
		redis:    redisClient.Client(),
		clock:    clock,
	}, nil
}

// Registry exposes the route registry for the API layer's health and
// analytics endpoints.
func (l *PayRouter) Registry() *Registry {
	return l.registry
}
