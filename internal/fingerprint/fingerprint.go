package fingerprint

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// A Fingerprint makes one funding request's transfer distinguishable from
// every other pending request sharing the same destination wallet address.
// ExactAmount is what the user is told to send; the fractional part never
// reaches a spendable balance.
type Fingerprint struct {
	ExactAmount decimal.Decimal
	DecimalCode string
	UniqueCode  string
}

const (
	decimalCodeMin = 100
	decimalCodeMax = 999
)

var thousand = decimal.NewFromInt(1000)

// Generator mints amount fingerprints. The display-code prefix (e.g. "DEP")
// is fixed at construction so deposit and top-up codes stay tellable apart.
type Generator struct {
	prefix string
}

// NewGenerator returns a generator producing codes like PREFIX-1234-5678-9012.
func NewGenerator(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// Generate derives the exact transfer amount for a requested amount by adding
// a uniformly random three-digit thousandths fraction, rounded to 3 decimal
// places. The requested amount must already be validated as positive.
func (g *Generator) Generate(requested decimal.Decimal) (Fingerprint, error) {
	code, err := randomInt(decimalCodeMin, decimalCodeMax)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("draw decimal code: %w", err)
	}

	fraction := decimal.NewFromInt(code).Div(thousand)
	unique, err := g.uniqueCode()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("draw unique code: %w", err)
	}

	return Fingerprint{
		ExactAmount: requested.Add(fraction).Round(3),
		DecimalCode: fmt.Sprintf("%03d", code),
		UniqueCode:  unique,
	}, nil
}

// uniqueCode builds the human-memorable display token. It carries no
// cryptographic guarantee and is never used for matching.
func (g *Generator) uniqueCode() (string, error) {
	groups := make([]string, 0, 4)
	groups = append(groups, g.prefix)
	for i := 0; i < 3; i++ {
		n, err := randomInt(0, 9999)
		if err != nil {
			return "", err
		}
		groups = append(groups, fmt.Sprintf("%04d", n))
	}
	return strings.Join(groups, "-"), nil
}

func randomInt(min, max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}
