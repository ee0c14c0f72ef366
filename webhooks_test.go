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
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routepay/payrouter/config"
	"github.com/routepay/payrouter/model"
)

func webhookTestConfig(redisAddr, webhookURL string) *config.Configuration {
	cnf := &config.Configuration{
		Redis: config.RedisConfig{Dns: redisAddr},
	}
	cnf.Notification.Webhook.Url = webhookURL
	return cnf
}

func TestQueueWebhookEnqueuesTask(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(webhookTestConfig(mr.Addr(), "http://localhost:5001/webhook"))
	conf, err := config.Fetch()
	require.NoError(t, err)

	queue := NewQueue(conf)
	err = queue.queueWebhook(context.Background(), NewWebhook{
		Event:   EventPayoutCreated,
		Payload: map[string]string{"payout_id": "po_test"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, mr.Keys())
}

func TestQueueWebhookSkippedWithoutConsumer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(webhookTestConfig(mr.Addr(), ""))
	conf, err := config.Fetch()
	require.NoError(t, err)

	queue := NewQueue(conf)
	err = queue.queueWebhook(context.Background(), NewWebhook{Event: EventPayoutCreated})
	require.NoError(t, err)

	assert.Empty(t, mr.Keys())
}

func TestProcessWebhookDeliversPayload(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(webhookTestConfig(mr.Addr(), "http://localhost:5001/webhook"))

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var received NewWebhook
	httpmock.RegisterResponder("POST", "http://localhost:5001/webhook",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, "bad payload"), nil
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"status": "ok"})
		})

	payload, err := json.Marshal(NewWebhook{
		Event:   EventPayoutCompleted,
		Payload: map[string]string{"payout_id": "po_test", "status": model.StatusCompleted},
	})
	require.NoError(t, err)

	conf, err := config.Fetch()
	require.NoError(t, err)
	task := asynq.NewTask(conf.Queue.WebhookQueue, payload)
	require.NoError(t, ProcessWebhook(context.Background(), task))

	assert.Equal(t, EventPayoutCompleted, received.Event)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}
