package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Pool identifies a stock location
type Pool string

const (
	PoolFactory Pool = "factory"
	PoolGodown  Pool = "godown"
)

// IsValid returns true if the pool is known
func (p Pool) IsValid() bool {
	switch p {
	case PoolFactory, PoolGodown:
		return true
	}
	return false
}

// String returns the string representation of the pool
func (p Pool) String() string {
	return string(p)
}

// ParsePool parses a pool name; an empty name means the factory pool
func ParsePool(s string) (Pool, error) {
	if s == "" {
		return PoolFactory, nil
	}
	p := Pool(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Unknown stock pool %q", s))
	}
	return p, nil
}

// AllPools returns every pool in display order
func AllPools() []Pool {
	return []Pool{PoolFactory, PoolGodown}
}

// StockEntry is the on-hand quantity of one product in one pool
type StockEntry struct {
	ProductID   uuid.UUID
	ProductName string
	Pool        Pool
	Quantity    int64
}

// Snapshot maps product ids to on-hand quantity. It is advisory: the stock
// can change between reading it and writing a sale.
type Snapshot map[uuid.UUID]int64

// Available returns the quantity on hand for a product, zero if unknown
func (s Snapshot) Available(productID uuid.UUID) int64 {
	return s[productID]
}

// Total returns the sum of all quantities
func (s Snapshot) Total() int64 {
	var total int64
	for _, q := range s {
		total += q
	}
	return total
}

// Demand maps product ids to requested quantity
type Demand map[uuid.UUID]int64

// Add accumulates quantity for a product
func (d Demand) Add(productID uuid.UUID, quantity int64) {
	d[productID] += quantity
}

// ProductIDs returns the requested product ids
func (d Demand) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Check compares demand against the snapshot and reports every short product.
// It returns nil when all demand can be met.
func (s Snapshot) Check(pool Pool, demand Demand) error {
	var shortages []Shortage
	for _, id := range demand.ProductIDs() {
		requested := demand[id]
		if available := s.Available(id); available < requested {
			shortages = append(shortages, Shortage{
				ProductID: id,
				Requested: requested,
				Available: available,
			})
		}
	}
	if len(shortages) == 0 {
		return nil
	}
	return &InsufficientStockError{Pool: pool, Shortages: shortages}
}
