// Package decode lifts raw event payload bytes into typed event.Event
// records: a fixed-layout reader for Pump.fun trades and a positional
// stream reader for Raydium swaps. Both layouts are packed little-endian
// with no alignment padding.
package decode

import (
	"encoding/binary"

	"github.com/yurei-io/geyser-ingestor/internal/event"
)

// PumpfunTradeLayoutSize is the fixed, packed, little-endian length of a
// Pump.fun trade record.
const PumpfunTradeLayoutSize = 250

// ParsePumpfunTrade decodes a Pump.fun trade record of at least 250 bytes;
// trailing bytes are ignored to tolerate upstream field additions. Slot is
// not part of the wire payload; it is populated by the caller from the
// carrier transaction update.
func ParsePumpfunTrade(data []byte) (event.PumpfunTrade, bool) {
	var out event.PumpfunTrade
	if len(data) < PumpfunTradeLayoutSize {
		return out, false
	}

	copy(out.Mint[:], data[0:32])
	out.SolAmount = binary.LittleEndian.Uint64(data[32:40])
	out.TokenAmount = binary.LittleEndian.Uint64(data[40:48])
	out.IsBuy = data[48] != 0
	copy(out.Trader[:], data[49:81]) // wire field name is "user"
	out.Timestamp = int64(binary.LittleEndian.Uint64(data[81:89]))
	out.VirtualSolReserves = binary.LittleEndian.Uint64(data[89:97])
	out.VirtualTokenReserves = binary.LittleEndian.Uint64(data[97:105])
	out.RealSolReserves = binary.LittleEndian.Uint64(data[105:113])
	out.RealTokenReserves = binary.LittleEndian.Uint64(data[113:121])
	// data[121:153] is fee_recipient, ignored.
	out.FeeBasisPoints = binary.LittleEndian.Uint64(data[153:161])
	out.FeeLamports = binary.LittleEndian.Uint64(data[161:169])
	copy(out.Creator[:], data[169:201])
	out.CreatorFeeBasisPoints = binary.LittleEndian.Uint64(data[201:209])
	out.CreatorFeeLamports = binary.LittleEndian.Uint64(data[209:217])
	// data[217:250] (track_volume, total_unclaimed/claimed_tokens,
	// current_sol_volume, last_update_timestamp) is ignored.

	return out, true
}
