// Package normalize converts between human-decimal amounts and smallest-unit
// integers, and shapes provider results into the SDK's canonical receipt and
// position types. All conversions floor: an on-chain amount must never exceed
// what the caller typed, and a displayed balance must never claim more than
// the wallet holds.
package normalize

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a human-decimal string ("12.345") into an integer amount
// in the asset's smallest unit, flooring any excess fractional digits.
// Negative amounts are rejected; on-chain amounts are always non-negative.
func ParseUnits(human string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(human)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount %q", human)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return nil, fmt.Errorf("malformed amount %q", human)
	}

	// Floor: fractional digits beyond the asset's precision are dropped.
	if len(fracPart) > int(decimals) {
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", int(decimals)-len(fracPart))

	amount, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", human)
	}
	return amount, nil
}

// FormatUnits renders a smallest-unit integer as a human-decimal string with
// exactly displayDecimals fractional digits, floored (never rounded up).
func FormatUnits(amount *big.Int, decimals uint8, displayDecimals uint8) string {
	if amount == nil {
		amount = new(big.Int)
	}
	if amount.Sign() < 0 {
		return "-" + FormatUnits(new(big.Int).Neg(amount), decimals, displayDecimals)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(amount, scale, new(big.Int))

	if displayDecimals == 0 {
		return whole.String()
	}

	fracStr := fmt.Sprintf("%0*s", decimals, frac.String())
	if int(displayDecimals) <= len(fracStr) {
		fracStr = fracStr[:displayDecimals]
	} else {
		fracStr += strings.Repeat("0", int(displayDecimals)-len(fracStr))
	}
	return whole.String() + "." + fracStr
}

// DisplayDecimals is the presentation precision for an asset symbol: 2 for
// stable-like assets, 4 for volatile ones. This is display policy only and
// never feeds back into on-chain amounts.
func DisplayDecimals(symbol string) uint8 {
	sym := strings.ToUpper(symbol)
	if strings.Contains(sym, "USD") || sym == "DAI" || sym == "FRAX" || sym == "GHO" {
		return 2
	}
	return 4
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
