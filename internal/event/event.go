// Package event defines the tagged-union record produced by the decoders
// and consumed by the batching writer.
package event

// Kind identifies which payload variant an Event carries.
type Kind uint8

const (
	// KindUnknown marks a zero-value Event and should never reach the queue.
	KindUnknown Kind = iota
	KindPumpfunTrade
	KindRaydiumSwap
)

func (k Kind) String() string {
	switch k {
	case KindPumpfunTrade:
		return "pumpfun_trade"
	case KindRaydiumSwap:
		return "raydium_swap"
	default:
		return "unknown"
	}
}

// PumpfunTrade is the decoded record for Pump.fun's fixed-layout trade
// event.
type PumpfunTrade struct {
	Mint                  [32]byte
	Trader                [32]byte
	Creator               [32]byte
	SolAmount             uint64
	TokenAmount           uint64
	IsBuy                 bool
	VirtualSolReserves    uint64
	VirtualTokenReserves  uint64
	RealSolReserves       uint64
	RealTokenReserves     uint64
	FeeBasisPoints        uint64
	FeeLamports           uint64
	CreatorFeeBasisPoints uint64
	CreatorFeeLamports    uint64
	Slot                  uint64
	Timestamp             int64
}

// RaydiumSwap is the decoded record for Raydium's positional swap event.
type RaydiumSwap struct {
	Amm             [32]byte
	UserSourceOwner [32]byte
	AmountIn        uint64
	AmountOut       uint64
	Slot            uint64
}

// Event is the tagged union queued by the subscription worker and drained by
// the writer. Exactly one of Pumpfun/Raydium is populated, selected by Kind.
type Event struct {
	Kind      Kind
	Signature string // base58, <=88 chars, possibly empty
	Pumpfun   PumpfunTrade
	Raydium   RaydiumSwap
}

// NewPumpfunTrade builds a Kind-tagged Event around a decoded PumpfunTrade.
func NewPumpfunTrade(t PumpfunTrade, signature string) Event {
	return Event{Kind: KindPumpfunTrade, Pumpfun: t, Signature: signature}
}

// NewRaydiumSwap builds a Kind-tagged Event around a decoded RaydiumSwap.
func NewRaydiumSwap(s RaydiumSwap, signature string) Event {
	return Event{Kind: KindRaydiumSwap, Raydium: s, Signature: signature}
}
