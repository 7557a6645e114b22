// Package id generates identifiers for configured objects.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs
type IDGenerator interface {
	Generate() string
}

// NewSequentialIDGenerator returns a generator that produces "1", "2", ...
// Two configurations built with fresh sequential generators get the same IDs.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewUniqueIDGenerator returns a generator whose IDs are globally unique, for
// plans that are recorded side by side.
func NewUniqueIDGenerator() IDGenerator {
	return uniqueIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)

	return id
}

type uniqueIDGenerator struct {
}

func (g uniqueIDGenerator) Generate() string {
	return xid.New().String()
}
