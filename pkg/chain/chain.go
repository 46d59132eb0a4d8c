package chain

import (
	"context"
	"errors"
	"math/big"
)

// ErrOutcomeUnknown reports that a submitted mint or burn could not be
// confirmed in time. The action may still land on-chain, so the caller must
// not resolve its record as failed without re-verification.
var ErrOutcomeUnknown = errors.New("chain: transaction outcome unknown")

// Client is the chain capability the settlement core consumes. Amounts are
// token minor units (6 decimals).
type Client interface {
	// Mint issues amount to the given address, tagged with memo for audit.
	Mint(ctx context.Context, toAddress string, amount *big.Int, memo string) (txHash string, err error)
	// Burn destroys amount held by the treasury, tagged with memo.
	Burn(ctx context.Context, amount *big.Int, memo string) (txHash string, err error)
	// VerifyTransferToTreasury checks that txHash succeeded and carries a
	// token transfer of at least expected to the treasury address.
	VerifyTransferToTreasury(ctx context.Context, txHash string, expected *big.Int) (bool, error)
	// TreasuryBalance returns the treasury's token balance.
	TreasuryBalance(ctx context.Context) (*big.Int, error)
	// TreasuryAddress is where off-ramp users send their tokens.
	TreasuryAddress() string
}
