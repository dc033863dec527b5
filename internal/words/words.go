// Package words spells monetary amounts in English words using the Indian
// numbering system (crore, lakh, thousand).
package words

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	crore    = 10_000_000
	lakh     = 100_000
	thousand = 1_000
)

var (
	ones  = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
	teens = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
		"Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens  = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}

	hundredPaise = decimal.NewFromInt(100)
	bigCrore     = big.NewInt(crore)
	bigThousand  = big.NewInt(thousand)
)

// AmountToWords returns amount in words, e.g. 1500.50 becomes
// "One Thousand Five Hundred Rupees and Fifty Paise".
//
// The paise part is rounded to two digits; a value that rounds up to 100
// carries into the rupees. Crore counts of a thousand or more are spelled
// with the same grouping. amount must not be negative.
func AmountToWords(amount decimal.Decimal) string {
	if amount.IsNegative() {
		panic("words: negative amount " + amount.String())
	}
	if amount.IsZero() {
		return "Zero Rupees"
	}

	rupees := amount.Floor()
	paise := amount.Sub(rupees).Mul(hundredPaise).Round(0).IntPart()
	if paise == 100 {
		rupees = rupees.Add(decimal.NewFromInt(1))
		paise = 0
	}

	var sb strings.Builder
	if rupees.IsZero() {
		sb.WriteString("Zero")
	} else {
		sb.WriteString(strings.TrimSpace(indian(rupees.BigInt())))
	}
	sb.WriteString(" Rupees")

	if paise > 0 {
		sb.WriteString(" and ")
		sb.WriteString(strings.TrimSpace(belowHundred(int(paise))))
		sb.WriteString(" Paise")
	}
	return sb.String()
}

// indian spells n with crore/lakh/thousand grouping. Crore counts of a
// thousand or more recurse, so n has no upper bound. The result keeps a
// trailing space.
func indian(n *big.Int) string {
	var sb strings.Builder

	c, rest := new(big.Int).QuoRem(n, bigCrore, new(big.Int))
	if c.Sign() > 0 {
		if c.Cmp(bigThousand) >= 0 {
			sb.WriteString(indian(c))
		} else {
			sb.WriteString(belowThousand(int(c.Int64())))
		}
		sb.WriteString("Crore ")
	}
	sb.WriteString(belowCrore(rest.Uint64()))
	return sb.String()
}

// belowCrore spells n < 1 crore.
func belowCrore(n uint64) string {
	var sb strings.Builder
	if l := n / lakh; l > 0 {
		sb.WriteString(belowThousand(int(l)))
		sb.WriteString("Lakh ")
		n %= lakh
	}
	if th := n / thousand; th > 0 {
		sb.WriteString(belowThousand(int(th)))
		sb.WriteString("Thousand ")
		n %= thousand
	}
	if n > 0 {
		sb.WriteString(belowThousand(int(n)))
	}
	return sb.String()
}

func belowThousand(n int) string {
	var sb strings.Builder
	if h := n / 100; h > 0 {
		sb.WriteString(ones[h])
		sb.WriteString(" Hundred ")
	}
	sb.WriteString(belowHundred(n % 100))
	return sb.String()
}

func belowHundred(n int) string {
	switch {
	case n >= 20:
		s := tens[n/10] + " "
		if d := n % 10; d > 0 {
			s += ones[d] + " "
		}
		return s
	case n >= 10:
		return teens[n-10] + " "
	case n > 0:
		return ones[n] + " "
	default:
		return ""
	}
}
