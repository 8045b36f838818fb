// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"fmt"
)

// Kind names a record collection. Each kind is stored and replaced
// as a single unit.
type Kind string

// The four collections Upkeep persists. Tenants, contractors, and
// knowledge articles are read-only reference data seeded at install;
// work orders are the only mutable kind.
const (
	KindTenants     Kind = "tenants"
	KindContractors Kind = "contractors"
	KindKnowledge   Kind = "knowledge_articles"
	KindWorkOrders  Kind = "work_orders"
)

// Store is the record store contract. Records are raw JSON so the
// store stays ignorant of the domain model; callers decode through
// [ReadAllAs] and encode through [ReplaceAllFrom].
type Store interface {
	// ReadAll returns every record of the kind, in stored order.
	// An absent collection returns (nil, nil) — absence is an empty
	// collection, never an error.
	ReadAll(kind Kind) ([]json.RawMessage, error)

	// ReplaceAll atomically replaces the kind's entire collection.
	ReplaceAll(kind Kind, records []json.RawMessage) error

	// Update runs modify under the kind's lock, passing the current
	// records and replacing the collection with the returned slice.
	// Returning an error from modify aborts without writing. This is
	// the only safe way to do read-modify-write: composing ReadAll
	// and ReplaceAll yourself reintroduces the lost-update race.
	Update(kind Kind, modify func(records []json.RawMessage) ([]json.RawMessage, error)) error
}

// ReadAllAs reads and decodes every record of a kind into T.
func ReadAllAs[T any](s Store, kind Kind) ([]T, error) {
	raws, err := s.ReadAll(kind)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raws))
	for i, raw := range raws {
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("store: decoding %s record %d: %w", kind, i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ReplaceAllFrom encodes records and atomically replaces the kind's
// collection with them.
func ReplaceAllFrom[T any](s Store, kind Kind, records []T) error {
	raws, err := encodeRecords(kind, records)
	if err != nil {
		return err
	}
	return s.ReplaceAll(kind, raws)
}

func encodeRecords[T any](kind Kind, records []T) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(records))
	for i, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("store: encoding %s record %d: %w", kind, i, err)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}
