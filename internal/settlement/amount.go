package settlement

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"acmeramp/internal/domain"
)

var centsToMinor = big.NewInt(domain.CentsToMinorUnits)

// CentsToToken converts USD cents to token minor units (6 decimals, 1:1
// value). All amount math stays in integers; floats never touch it.
func CentsToToken(cents int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(cents), centsToMinor)
}

// TokenToCents converts token minor units to USD cents, truncating any
// sub-cent remainder.
func TokenToCents(amount *big.Int) int64 {
	return new(big.Int).Div(amount, centsToMinor).Int64()
}

// ParseTokenAmount parses a non-negative integer string of minor units.
func ParseTokenAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid token amount %q", s)
	}
	return n, nil
}

// FormatUsd renders cents as a 2-decimal dollar string for the presentation
// boundary.
func FormatUsd(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// NormalizeAddress lower-cases a chain address for storage and comparison.
// Returns an empty string for anything that is not a hex address.
func NormalizeAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return ""
	}
	return strings.ToLower(common.HexToAddress(addr).Hex())
}
