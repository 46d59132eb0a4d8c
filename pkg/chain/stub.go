package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// StubClient is an in-memory chain for development. Transfers registered via
// AddTransfer verify successfully; mints and burns always succeed.
type StubClient struct {
	mu        sync.Mutex
	treasury  string
	balance   *big.Int
	transfers map[string]*big.Int
}

func NewStubClient(treasuryAddress string) *StubClient {
	return &StubClient{
		treasury:  treasuryAddress,
		balance:   big.NewInt(0),
		transfers: make(map[string]*big.Int),
	}
}

// AddTransfer registers an inbound transfer so a later verification passes.
func (s *StubClient) AddTransfer(txHash string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[txHash] = new(big.Int).Set(amount)
	s.balance.Add(s.balance, amount)
}

func (s *StubClient) Mint(ctx context.Context, toAddress string, amount *big.Int, memo string) (string, error) {
	return fmt.Sprintf("0xstubmint%d", time.Now().UnixNano()), nil
}

func (s *StubClient) Burn(ctx context.Context, amount *big.Int, memo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance.Cmp(amount) < 0 {
		return "", fmt.Errorf("chain: treasury balance below burn amount")
	}
	s.balance.Sub(s.balance, amount)
	return fmt.Sprintf("0xstubburn%d", time.Now().UnixNano()), nil
}

func (s *StubClient) VerifyTransferToTreasury(ctx context.Context, txHash string, expected *big.Int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.transfers[txHash]
	return ok && amount.Cmp(expected) >= 0, nil
}

func (s *StubClient) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.balance), nil
}

func (s *StubClient) TreasuryAddress() string {
	return s.treasury
}
