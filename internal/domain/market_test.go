package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarket_DueForResolution(t *testing.T) {
	closing := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	m := Market{Status: MarketStatusActive, ClosingDate: closing}

	assert.False(t, m.DueForResolution(closing.Add(-time.Second)))
	// Inclusive at the closing instant.
	assert.True(t, m.DueForResolution(closing))
	assert.True(t, m.DueForResolution(closing.Add(time.Hour)))
}

func TestMarket_DueForResolution_TerminalStatesNeverDue(t *testing.T) {
	closing := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	after := closing.Add(time.Hour)

	for _, status := range []MarketStatus{MarketStatusPending, MarketStatusClosed} {
		m := Market{Status: status, ClosingDate: closing}
		assert.False(t, m.DueForResolution(after), string(status))
	}
}
