package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCost(t *testing.T) {
	exact := LookupCost("gemini-2.0-flash")
	require.NotNil(t, exact)
	assert.InDelta(t, 0.1, exact.InputPerMTok, 1e-9)

	versioned := LookupCost("gemini-2.0-flash-001")
	require.NotNil(t, versioned)
	assert.Equal(t, *exact, *versioned)

	routed := LookupCost("openai/gpt-4o-mini")
	require.NotNil(t, routed)
	assert.InDelta(t, 0.6, routed.OutputPerMTok, 1e-9)

	assert.Nil(t, LookupCost("mock"))
	assert.Nil(t, LookupCost(""))
}

func TestModelCost(t *testing.T) {
	c := ModelCost{InputPerMTok: 0.1, OutputPerMTok: 0.4}
	assert.InDelta(t, 0.00014, c.Cost(1000, 100), 1e-12)
}
