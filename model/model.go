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

package model

import (
	"fmt"

	"github.com/google/uuid"
)

// MinorUnitsPerUnit is the scale of all monetary amounts handled by the engine.
// Amounts are carried as integer micro-units end to end; conversion to and from
// display decimals happens only at the API boundary.
const MinorUnitsPerUnit int64 = 1_000_000

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// ToMinorUnits converts a whole-unit amount to micro-units.
func ToMinorUnits(units float64) int64 {
	return int64(units * float64(MinorUnitsPerUnit))
}

// FromMinorUnits converts micro-units back to whole units for display.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / float64(MinorUnitsPerUnit)
}
