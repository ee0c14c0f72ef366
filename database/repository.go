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
	"errors"
)

// Record kinds persisted by the engine.
const (
	KindPayouts = "payouts"
	KindBatches = "batches"
	KindRefunds = "refunds"
)

// ErrNotFound is returned when a record does not exist for the given kind
// and identifier.
var ErrNotFound = errors.New("record not found")

// Filter narrows a Query to records whose top-level Field equals Value.
// The zero Filter matches everything.
type Filter struct {
	Field string
	Value string
}

// IStore is the engine's durable mirror: a document store with
// create/read/update semantics keyed by kind and identifier. Every lifecycle
// transition writes through here before it is considered committed.
type IStore interface {
	Put(ctx context.Context, kind, id string, record interface{}) error
	Get(ctx context.Context, kind, id string, out interface{}) error
	Query(ctx context.Context, kind string, filter Filter) ([]json.RawMessage, error)
}
