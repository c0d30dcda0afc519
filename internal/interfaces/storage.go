package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"trade-mirror/internal/types"
)

// Storage persists the audit trail of executed operations and derived
// holdings. Implementations must provide upsert semantics: inserting a row
// that already exists updates it (or is a no-op for immutable operations)
// rather than erroring or duplicating.
type Storage interface {
	UpsertOperation(ctx context.Context, rec types.OperationRecord) error
	UpsertHolding(ctx context.Context, rec types.HoldingRecord) error
	UpdateAccountBalance(ctx context.Context, accountID string, assets decimal.Decimal) error
}

// CommandStore durably records which transaction ids have already been turned
// into orders, so a restart does not replay them.
type CommandStore interface {
	LoadCommands(ctx context.Context, strategyID string) ([]int64, error)
	MarkCommand(ctx context.Context, strategyID string, txID int64) error
}
