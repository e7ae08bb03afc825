package decode

import (
	"encoding/binary"

	"github.com/yurei-io/geyser-ingestor/internal/event"
)

// reader walks a byte slice left to right: every read advances an offset
// and fails closed (returns ok=false) the instant it would run past the
// end of the buffer, instead of panicking on a short slice.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u64() (uint64, bool) {
	if r.off+8 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, true
}

func (r *reader) u8() (byte, bool) {
	if r.off+1 > len(r.buf) {
		return 0, false
	}
	v := r.buf[r.off]
	r.off++
	return v, true
}

func (r *reader) pubkey() ([32]byte, bool) {
	var out [32]byte
	if r.off+32 > len(r.buf) {
		return out, false
	}
	copy(out[:], r.buf[r.off:r.off+32])
	r.off += 32
	return out, true
}

func (r *reader) skipPubkey() bool {
	_, ok := r.pubkey()
	return ok
}

// ParseRaydiumSwap decodes a Raydium swap positional stream. Field order:
// amount_in, minimum_amount_out (discarded), max_amount_in (discarded),
// amount_out, token_program (discarded), amm (captured), amm_authority
// (discarded), amm_open_orders (discarded), an optional target_orders
// pubkey gated by a has_target byte, 12 further discarded pubkeys, and
// finally user_owner (captured as UserSourceOwner). Any short read fails
// the whole decode.
func ParseRaydiumSwap(data []byte) (event.RaydiumSwap, bool) {
	var out event.RaydiumSwap
	r := &reader{buf: data}

	amountIn, ok := r.u64()
	if !ok {
		return out, false
	}
	if _, ok := r.u64(); !ok { // minimum_amount_out
		return out, false
	}
	if _, ok := r.u64(); !ok { // max_amount_in
		return out, false
	}
	amountOut, ok := r.u64()
	if !ok {
		return out, false
	}

	if !r.skipPubkey() { // token_program
		return out, false
	}
	amm, ok := r.pubkey()
	if !ok {
		return out, false
	}
	if !r.skipPubkey() { // amm_authority
		return out, false
	}
	if !r.skipPubkey() { // amm_open_orders
		return out, false
	}

	hasTarget, ok := r.u8()
	if !ok {
		return out, false
	}
	if hasTarget != 0 {
		if !r.skipPubkey() { // target_orders
			return out, false
		}
	}

	// pool_coin, pool_pc, serum_program, serum_market, serum_bids,
	// serum_asks, serum_event_queue, serum_coin_vault, serum_pc_vault,
	// serum_signer, user_source, user_destination
	for i := 0; i < 12; i++ {
		if !r.skipPubkey() {
			return out, false
		}
	}

	userOwner, ok := r.pubkey()
	if !ok {
		return out, false
	}

	out.AmountIn = amountIn
	out.AmountOut = amountOut
	out.Amm = amm
	out.UserSourceOwner = userOwner
	return out, true
}
