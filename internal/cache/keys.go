package cache

import (
	"fmt"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/mitchellh/hashstructure/v2"
)

// keyPrefix is bumped whenever the encoded value shape changes so old
// entries are simply never read again.
const keyPrefix = "framebudget:v1"

// Key identifies one cached series. Field order is part of the hash.
type Key struct {
	Kind            domain.NodeKind
	ID              string
	Year            int
	FrameView       bool
	CoordinatorView bool
}

type bulkKey struct {
	Scope     string
	StartYear int
	FrameView bool
}

// DeriveKey returns the store key for k. Identical inputs always produce the
// identical key.
func DeriveKey(k Key) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, k.Kind, k.ID, hashOf(k))
}

// DeriveBulkKey returns the store key of the frame context table for a
// window starting at startYear.
func DeriveBulkKey(startYear int, frameView bool) string {
	k := bulkKey{Scope: "frame-context", StartYear: startYear, FrameView: frameView}
	return fmt.Sprintf("%s:bulk:%d:%s", keyPrefix, startYear, hashOf(k))
}

// indexKey names the set that tracks every key written for one entity.
func indexKey(kind domain.NodeKind, id string) string {
	return fmt.Sprintf("%s:idx:%s:%s", keyPrefix, kind, id)
}

func hashOf(v any) string {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		// Only reachable for unsupported field types, which Key never has.
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%016x", h)
}
