package decode

import (
	"strings"

	"github.com/yurei-io/geyser-ingestor/internal/codec"
	"github.com/yurei-io/geyser-ingestor/internal/event"
	"github.com/yurei-io/geyser-ingestor/internal/protocol"
)

// programDataPreamble is the fixed prefix Geyser transaction log lines use
// to carry a base64-encoded event payload.
const programDataPreamble = "Program data: "

// decodeProgramDataLine extracts and base64-decodes the payload carried by
// one log line, if it has the preamble at all.
func decodeProgramDataLine(line string) ([]byte, bool) {
	idx := strings.Index(line, programDataPreamble)
	if idx < 0 {
		return nil, false
	}
	raw, err := codec.DecodeBase64(strings.TrimSpace(line[idx+len(programDataPreamble):]))
	if err != nil {
		return nil, false
	}
	return raw, true
}

// FindProgramData locates the first "Program data: " line among a
// transaction's log messages and returns its base64-decoded payload. The
// second return value is false if no such line is present or none
// base64-decodes.
func FindProgramData(logMessages []string) ([]byte, bool) {
	for _, line := range logMessages {
		if raw, ok := decodeProgramDataLine(line); ok {
			return raw, true
		}
	}
	return nil, false
}

// FromLogLine scans logMessages for the first line that both carries a
// base64 program-data payload and decodes as proto's event, tagging the
// result with slot and signature. A line that base64-decodes but fails the
// protocol decode does not end the scan; later lines still get their turn.
// proto must be protocol.Pumpfun or protocol.Raydium; any other value yields
// ok=false.
func FromLogLine(proto protocol.Protocol, logMessages []string, slot uint64, signature string) (event.Event, bool) {
	if proto != protocol.Pumpfun && proto != protocol.Raydium {
		return event.Event{}, false
	}

	for _, line := range logMessages {
		raw, ok := decodeProgramDataLine(line)
		if !ok {
			continue
		}
		if proto == protocol.Pumpfun {
			trade, ok := ParsePumpfunTrade(raw)
			if !ok {
				continue
			}
			trade.Slot = slot
			return event.NewPumpfunTrade(trade, signature), true
		}
		swap, ok := ParseRaydiumSwap(raw)
		if !ok {
			continue
		}
		swap.Slot = slot
		return event.NewRaydiumSwap(swap, signature), true
	}
	return event.Event{}, false
}
