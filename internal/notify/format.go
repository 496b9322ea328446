package notify

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"pairwatch/internal/model"
)

// Placeholder is rendered for any value that could not be resolved.
const Placeholder = "N/A"

// DefaultNativeSymbol is the ticker of the chain's native currency.
const DefaultNativeSymbol = "BROCK"

// Formatter renders pair discoveries as plain-text messages. Format has no
// side effects and returns identical output for identical records.
type Formatter struct {
	NativeSymbol string
	Placeholder  string
}

// Format renders rec. Identifying fields are always present; missing metrics
// and symbols are rendered as the placeholder.
func (f Formatter) Format(rec model.PairRecord) string {
	placeholder := f.Placeholder
	if placeholder == "" {
		placeholder = Placeholder
	}
	native := f.NativeSymbol
	if native == "" {
		native = DefaultNativeSymbol
	}
	source := rec.Event.Source
	if source == "" {
		source = placeholder
	}

	var b strings.Builder
	b.WriteString("✨ New Pair Detected on ")
	b.WriteString(source)
	b.WriteString("\n")
	writeToken(&b, "Token 1", rec.Symbol0, rec.Event.Token0, placeholder)
	writeToken(&b, "Token 2", rec.Symbol1, rec.Event.Token1, placeholder)
	b.WriteString("Pair Address: ")
	b.WriteString(rec.Event.PairAddress.Hex())
	b.WriteString("\n\n")
	writeMetric(&b, "💵 Price (USD)", rec.Market.PriceUSD, placeholder)
	writeMetric(&b, "📈 Price in "+native, rec.Market.PriceNative, placeholder)
	writeMetric(&b, "🛍️ FDV (USD)", rec.Market.FDVUSD, placeholder)

	return strings.TrimRight(b.String(), "\n")
}

func writeToken(b *strings.Builder, label string, symbol string, addr common.Address, placeholder string) {
	if symbol == "" {
		symbol = placeholder
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(symbol)
	b.WriteString(" (")
	b.WriteString(addr.Hex())
	b.WriteString(")\n")
}

func writeMetric(b *strings.Builder, label string, value *decimal.Decimal, placeholder string) {
	b.WriteString(label)
	b.WriteString(": ")
	if value == nil {
		b.WriteString(placeholder)
	} else {
		b.WriteString(value.String())
	}
	b.WriteString("\n")
}
