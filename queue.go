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
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/routepay/payrouter/config"
	redis_db "github.com/routepay/payrouter/internal/redis-db"
)

// Queue holds the asynq client used to hand webhook deliveries off to the
// worker process.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes the queue from the loaded configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// queueWebhook enqueues a webhook notification for asynchronous delivery.
// Delivery failures never propagate back into the payout state machine.
func (q *Queue) queueWebhook(ctx context.Context, webhook NewWebhook) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	if cfg.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := json.Marshal(webhook)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{asynq.Queue(cfg.Queue.WebhookQueue), asynq.MaxRetry(5)}
	task := asynq.NewTask(cfg.Queue.WebhookQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	return nil
}
