package decode

import (
	"encoding/base64"
	"testing"

	"github.com/yurei-io/geyser-ingestor/internal/protocol"
)

func TestFindProgramDataLocatesPreamble(t *testing.T) {
	payload := buildPumpfunRecord()
	encoded := base64.StdEncoding.EncodeToString(payload)
	logs := []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program log: Instruction: Buy",
		"Program data: " + encoded,
		"Program 11111111111111111111111111111111 success",
	}

	got, ok := FindProgramData(logs)
	if !ok {
		t.Fatal("expected to find program data line")
	}
	if string(got) != string(payload) {
		t.Fatal("decoded payload mismatch")
	}
}

func TestFindProgramDataMissing(t *testing.T) {
	if _, ok := FindProgramData([]string{"Program log: nothing here"}); ok {
		t.Fatal("expected no program data line to be found")
	}
}

func TestFromLogLineDispatchesByProtocol(t *testing.T) {
	rec := buildPumpfunRecord()
	logs := []string{"Program data: " + base64.StdEncoding.EncodeToString(rec)}

	got, ok := FromLogLine(protocol.Pumpfun, logs, 123, "sig-abc")
	if !ok {
		t.Fatal("expected successful pumpfun decode")
	}
	if got.Pumpfun.Slot != 123 || got.Signature != "sig-abc" {
		t.Fatalf("slot/signature not tagged: %+v", got)
	}

	if _, ok := FromLogLine(protocol.None, logs, 1, "x"); ok {
		t.Fatal("protocol.None must never decode")
	}
}

func TestFromLogLineSkipsPayloadsThatFailProtocolDecode(t *testing.T) {
	rec := buildPumpfunRecord()
	logs := []string{
		"Program data: " + base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), // valid base64, too short for a pumpfun trade
		"Program data: " + base64.StdEncoding.EncodeToString(rec),
	}

	got, ok := FromLogLine(protocol.Pumpfun, logs, 99, "sig")
	if !ok {
		t.Fatal("expected the second program-data line to decode")
	}
	if got.Pumpfun.Slot != 99 {
		t.Fatalf("Slot = %d, want 99", got.Pumpfun.Slot)
	}
}

func TestFromLogLineFailsOnMalformedPayload(t *testing.T) {
	logs := []string{"Program data: " + base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}
	if _, ok := FromLogLine(protocol.Pumpfun, logs, 1, "sig"); ok {
		t.Fatal("expected failure decoding a too-short pumpfun payload")
	}
}
