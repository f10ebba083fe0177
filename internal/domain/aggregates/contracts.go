package aggregates

import (
	"fmt"
	"strings"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means write methods open and commit their own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

type ReadPolicy string

const (
	// ReadPolicyInvariantScoped allows only the reads needed for invariant decisions.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
)

// ConcurrencyScope names the key a write lease is held on.
type ConcurrencyScope string

const (
	ScopeUserQuest ConcurrencyScope = "user_quest"
)

// Contract is the declared write policy of an aggregate. Stages lists every log stage the
// aggregate may append; anything else is a bug.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	LeaseScope       ConcurrencyScope
	Ordering         string
	Stages           []ritual.Stage
	Notes            string
}

// Aggregate is implemented by every aggregate so callers can inspect its policy.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Writes reports whether the aggregate may append stage.
func (c Contract) Writes(stage ritual.Stage) bool {
	for _, s := range c.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

func (c Contract) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if c.WriteTxOwnership == "" {
		missing = append(missing, "write tx ownership")
	}
	if c.LeaseScope == "" {
		missing = append(missing, "lease scope")
	}
	if len(c.Stages) == 0 {
		missing = append(missing, "stages")
	}
	if len(missing) > 0 {
		return fmt.Errorf("aggregate contract %q: missing %s", c.Name, strings.Join(missing, ", "))
	}
	for _, s := range c.Stages {
		if !s.Valid() {
			return fmt.Errorf("aggregate contract %q: unknown stage %q", c.Name, s)
		}
	}
	return nil
}
