package fingerprint

import (
	"regexp"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGenerateExactAmount(t *testing.T) {
	gen := NewGenerator("DEP")
	requested := decimal.RequireFromString("100")

	for i := 0; i < 200; i++ {
		fp, err := gen.Generate(requested)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		code, err := strconv.Atoi(fp.DecimalCode)
		if err != nil {
			t.Fatalf("decimal code not numeric: %q", fp.DecimalCode)
		}
		if code < 100 || code > 999 {
			t.Fatalf("decimal code out of range: %d", code)
		}
		if len(fp.DecimalCode) != 3 {
			t.Fatalf("decimal code not 3 digits: %q", fp.DecimalCode)
		}

		want := requested.Add(decimal.NewFromInt(int64(code)).Div(decimal.NewFromInt(1000))).Round(3)
		if !fp.ExactAmount.Equal(want) {
			t.Fatalf("exact amount %s, want %s", fp.ExactAmount, want)
		}
		if fp.ExactAmount.Exponent() < -3 {
			t.Fatalf("exact amount has more than 3 fractional digits: %s", fp.ExactAmount)
		}
	}
}

func TestGenerateUniqueCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^DEP-\d{4}-\d{4}-\d{4}$`)
	gen := NewGenerator("DEP")

	fp, err := gen.Generate(decimal.RequireFromString("25.5"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !pattern.MatchString(fp.UniqueCode) {
		t.Fatalf("unexpected unique code format: %q", fp.UniqueCode)
	}
}

func TestGeneratePrefix(t *testing.T) {
	gen := NewGenerator("TOP")
	fp, err := gen.Generate(decimal.RequireFromString("10"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if fp.UniqueCode[:4] != "TOP-" {
		t.Fatalf("expected TOP- prefix, got %q", fp.UniqueCode)
	}
}

func TestScenarioAExactAmount(t *testing.T) {
	// amount 100 with code 042 must yield 100.042
	requested := decimal.RequireFromString("100")
	fraction := decimal.NewFromInt(42).Div(decimal.NewFromInt(1000))
	exact := requested.Add(fraction).Round(3)
	if exact.String() != "100.042" {
		t.Fatalf("expected 100.042, got %s", exact)
	}
}
