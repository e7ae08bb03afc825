package protocol

import "testing"

func mkID(b byte) [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = b
	}
	return id
}

func TestClassifyMatchesEnabledProtocolOnly(t *testing.T) {
	pumpID := mkID(0x01)
	rayID := mkID(0x02)
	d := NewDetector(Pattern{ProgramID: pumpID, Enabled: true}, Pattern{ProgramID: rayID, Enabled: false})

	otherID := mkID(0xFF)
	accounts := [][]byte{otherID[:], rayID[:], pumpID[:]}
	if got := d.Classify(accounts); got != Pumpfun {
		t.Fatalf("Classify = %v, want Pumpfun", got)
	}

	accounts2 := [][]byte{rayID[:]}
	if got := d.Classify(accounts2); got != None {
		t.Fatalf("Classify with Raydium disabled = %v, want None", got)
	}
}

func TestClassifyFirstMatchWinsPumpfunBeforeRaydium(t *testing.T) {
	id := mkID(0x07)
	d := NewDetector(Pattern{ProgramID: id, Enabled: true}, Pattern{ProgramID: id, Enabled: true})
	if got := d.Classify([][]byte{id[:]}); got != Pumpfun {
		t.Fatalf("Classify = %v, want Pumpfun when both patterns match the same key", got)
	}
}

func TestClassifySkipsWrongLengthKeys(t *testing.T) {
	pumpID := mkID(0x09)
	d := NewDetector(Pattern{ProgramID: pumpID, Enabled: true}, Pattern{})
	short := []byte{0x09, 0x09}
	if got := d.Classify([][]byte{short, pumpID[:]}); got != Pumpfun {
		t.Fatalf("Classify = %v, want Pumpfun (short key should be skipped, not matched)", got)
	}
}

func TestClassifyEmptyListIsNone(t *testing.T) {
	d := NewDetector(Pattern{Enabled: true}, Pattern{Enabled: true})
	if got := d.Classify(nil); got != None {
		t.Fatalf("Classify(nil) = %v, want None", got)
	}
}

func TestMatchProgramInBytes(t *testing.T) {
	id := mkID(0xAA)
	pat := Pattern{ProgramID: id, Enabled: true}

	buf := append(append([]byte("prefix-junk"), id[:]...), []byte("suffix")...)
	if !MatchProgramInBytes(pat, buf) {
		t.Fatal("expected substring match")
	}

	if MatchProgramInBytes(pat, []byte("too short")) {
		t.Fatal("expected no match in a buffer shorter than 32 bytes")
	}

	disabled := Pattern{ProgramID: id, Enabled: false}
	if MatchProgramInBytes(disabled, buf) {
		t.Fatal("disabled pattern must never match")
	}
}
