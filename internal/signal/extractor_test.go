package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name     string
		evm      bool
		solana   bool
		text     string
		expected []Signal
	}{
		{
			name:     "Single ticker",
			evm:      true,
			text:     "aping into $SOL today",
			expected: []Signal{{Ticker: "$SOL"}},
		},
		{
			name: "EVM address and ticker",
			evm:  true,
			text: "check 0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 aka $USDC",
			expected: []Signal{
				{ContractAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"},
				{Ticker: "$USDC"},
			},
		},
		{
			name: "Duplicate tickers are preserved",
			evm:  true,
			text: "$PEPE $PEPE $PEPE",
			expected: []Signal{
				{Ticker: "$PEPE"},
				{Ticker: "$PEPE"},
				{Ticker: "$PEPE"},
			},
		},
		{
			name:   "Solana address accepted when enabled",
			solana: true,
			text:   "wSOL mint is So11111111111111111111111111111111111111112",
			expected: []Signal{
				{ContractAddress: "So11111111111111111111111111111111111111112"},
			},
		},
		{
			name:     "Solana address ignored when disabled",
			evm:      true,
			text:     "wSOL mint is So11111111111111111111111111111111111111112",
			expected: nil,
		},
		{
			name:     "Base58-alphabet word that is not a key",
			solana:   true,
			text:     "abcdefghijkmnopqrstuvwxyz1234567",
			expected: nil,
		},
		{
			name:     "Lowercase ticker is not a signal",
			evm:      true,
			text:     "$sol looks good",
			expected: nil,
		},
		{
			name:     "Ticker too short",
			evm:      true,
			text:     "$S",
			expected: nil,
		},
		{
			name:     "No signals",
			evm:      true,
			solana:   true,
			text:     "gm everyone",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExtractor(tc.evm, tc.solana)
			assert.Equal(t, tc.expected, e.Extract(tc.text))
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := NewExtractor(true, false)
	text := "$BTC then 0x1234567890abcdef1234567890abcdef12345678 then $ETH"

	first := e.Extract(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Extract(text))
	}
}
