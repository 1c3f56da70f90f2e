package signal

import (
	"regexp"

	"github.com/mr-tron/base58"
)

var (
	evmAddressRe    = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	solanaAddressRe = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)
	tickerRe        = regexp.MustCompile(`\$[A-Z]{2,10}`)
)

// Signal is one extracted candidate: either a ticker mention or a
// contract address, never both.
type Signal struct {
	Ticker          string
	ContractAddress string
}

// Extractor pulls address-like and ticker-like candidates out of raw
// message text. It is pure: no network, no persistence, deterministic.
type Extractor struct {
	evm    bool
	solana bool
}

// NewExtractor creates an extractor for the configured chain families.
func NewExtractor(evm, solana bool) *Extractor {
	return &Extractor{evm: evm, solana: solana}
}

// Extract returns every candidate found in text, in order of
// appearance: contract addresses first, then tickers. Duplicates are
// preserved because each occurrence is recorded as a separate scan.
func (e *Extractor) Extract(text string) []Signal {
	var signals []Signal

	if e.evm {
		for _, ca := range evmAddressRe.FindAllString(text, -1) {
			signals = append(signals, Signal{ContractAddress: ca})
		}
	}

	if e.solana {
		for _, candidate := range solanaAddressRe.FindAllString(text, -1) {
			// The base58 alphabet is broad enough to match ordinary
			// words, so only candidates that decode to a 32-byte key
			// count as addresses.
			raw, err := base58.Decode(candidate)
			if err != nil || len(raw) != 32 {
				continue
			}
			signals = append(signals, Signal{ContractAddress: candidate})
		}
	}

	for _, ticker := range tickerRe.FindAllString(text, -1) {
		signals = append(signals, Signal{Ticker: ticker})
	}

	return signals
}
