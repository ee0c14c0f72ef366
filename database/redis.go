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

package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payrouter"

// RedisStore implements IStore over Redis: each record is a JSON document
// under a kind-scoped key, with a per-kind set index to support Query.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, id)
}

func indexKey(kind string) string {
	return fmt.Sprintf("%s:%s:index", keyPrefix, kind)
}

func (s *RedisStore) Put(ctx context.Context, kind, id string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s %s", kind, id)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(kind, id), payload, 0)
	pipe.SAdd(ctx, indexKey(kind), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "writing %s %s", kind, id)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, kind, id string, out interface{}) error {
	payload, err := s.client.Get(ctx, recordKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", kind, id)
	}
	return json.Unmarshal(payload, out)
}

func (s *RedisStore) Query(ctx context.Context, kind string, filter Filter) ([]json.RawMessage, error) {
	ids, err := s.client.SMembers(ctx, indexKey(kind)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", kind)
	}

	var records []json.RawMessage
	for _, id := range ids {
		payload, err := s.client.Get(ctx, recordKey(kind, id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s %s", kind, id)
		}
		if filter.Field != "" && !matches(payload, filter) {
			continue
		}
		records = append(records, payload)
	}
	return records, nil
}

// matches checks a top-level string field of the raw document against the
// filter value.
func matches(payload []byte, filter Filter) bool {
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return false
	}
	v, ok := doc[filter.Field].(string)
	return ok && v == filter.Value
}
