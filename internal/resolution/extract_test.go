package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolverd/resolverd/internal/domain"
)

func TestExtractSymbol_Found(t *testing.T) {
	sym, err := ExtractSymbol("Will WIF reach $2.50 in the next 24H?")
	require.NoError(t, err)
	assert.Equal(t, "WIF", sym)
}

func TestExtractSymbol_CaseInsensitive(t *testing.T) {
	sym, err := ExtractSymbol("will btc hit $100,000 this year?")
	require.NoError(t, err)
	assert.Equal(t, "BTC", sym)
}

func TestExtractSymbol_NoMatch(t *testing.T) {
	_, err := ExtractSymbol("Will it rain tomorrow?")
	assert.ErrorIs(t, err, domain.ErrNoSymbol)
}

func TestExtractSymbol_WordBoundary(t *testing.T) {
	// "DROP" contains "OP" but must not match the OP ticker.
	_, err := ExtractSymbol("Will the stock market drop?")
	assert.ErrorIs(t, err, domain.ErrNoSymbol)

	sym, err := ExtractSymbol("Will OP break $3?")
	require.NoError(t, err)
	assert.Equal(t, "OP", sym)
}

func TestExtractDollarTarget(t *testing.T) {
	v, err := ExtractDollarTarget("Will WIF reach $2.50?")
	require.NoError(t, err)
	assert.Equal(t, 2.50, v)
}

func TestExtractDollarTarget_ThousandsSeparators(t *testing.T) {
	v, err := ExtractDollarTarget("Will BTC reach $100,000 by December?")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, v)
}

func TestExtractDollarTarget_Missing(t *testing.T) {
	_, err := ExtractDollarTarget("Will it go up?")
	assert.ErrorIs(t, err, domain.ErrNoTarget)
}

func TestExtractPercentTarget(t *testing.T) {
	v, err := ExtractPercentTarget("Will SOL volatility exceed 5.5% this week?")
	require.NoError(t, err)
	assert.Equal(t, 5.5, v)
}

func TestExtractMoneyTarget_Suffixes(t *testing.T) {
	cases := []struct {
		question string
		want     float64
	}{
		{"Will daily volume exceed $900K?", 900e3},
		{"Will daily volume exceed $50M?", 50e6},
		{"Will market cap pass $1.2B?", 1.2e9},
	}
	for _, tc := range cases {
		v, err := ExtractMoneyTarget(tc.question)
		require.NoError(t, err, tc.question)
		assert.Equal(t, tc.want, v, tc.question)
	}
}

func TestExtractMoneyTarget_PlainDollarFallback(t *testing.T) {
	v, err := ExtractMoneyTarget("Will volume exceed $5000000?")
	require.NoError(t, err)
	assert.Equal(t, 5000000.0, v)
}

func TestExtractDirection(t *testing.T) {
	assert.Equal(t, DirectionAbove, ExtractDirection("Will BTC reach $100,000?"))
	assert.Equal(t, DirectionAbove, ExtractDirection("Will ETH exceed $4000?"))
	assert.Equal(t, DirectionBelow, ExtractDirection("Will SOL drop below $100?"))
	assert.Equal(t, DirectionBelow, ExtractDirection("Will DOGE fall under $0.10?"))
}

func TestExtractTrendDirection(t *testing.T) {
	assert.Equal(t, TrendUp, ExtractTrendDirection("Will BTC trend up this week?"))
	assert.Equal(t, TrendDown, ExtractTrendDirection("Will ETH trend down this week?"))
}

func TestExtractTrendDirection_Ambiguous(t *testing.T) {
	// Both directions present.
	assert.Equal(t, TrendUnknown, ExtractTrendDirection("Will BTC go up or down?"))
	// Neither direction present.
	assert.Equal(t, TrendUnknown, ExtractTrendDirection("Will BTC move this week?"))
}

func TestExtractLevelKind(t *testing.T) {
	assert.Equal(t, LevelSupport, ExtractLevelKind("Will BTC hold the $60,000 support level?", ""))
	assert.Equal(t, LevelResistance, ExtractLevelKind("Will BTC break the $70,000 resistance?", ""))
	assert.Equal(t, LevelResistance, ExtractLevelKind("Will BTC break above $70,000?", "Resolves yes if price closes above the resistance level."))
}

func TestExtractLevelKind_Ambiguous(t *testing.T) {
	// "break above" is used for both framings; without an explicit tag the
	// kind is unmappable.
	assert.Equal(t, LevelUnknown, ExtractLevelKind("Will BTC break above $70,000?", ""))
	assert.Equal(t, LevelUnknown, ExtractLevelKind("Will BTC hold support at resistance?", ""))
}
