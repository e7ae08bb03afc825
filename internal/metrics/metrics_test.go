package metrics

import "testing"

func TestCountersMonotonicAndSnapshotConsistent(t *testing.T) {
	m := New()

	m.IncEventsPumpfun()
	m.IncEventsPumpfun()
	m.IncEventsRaydium()
	for i := 0; i < 3; i++ {
		m.IncEventsTotal()
	}
	m.IncEventsDropped()
	m.IncQueuePush(1)
	m.IncQueuePush(2)
	m.IncQueuePop(1)
	m.AddDBInsertsSuccess(5)
	m.IncDBBatches()
	m.IncDBReconnects()
	m.AddDBLatencyUs(1000)

	s := m.Snapshot()
	if s.EventsTotal != 3 {
		t.Fatalf("EventsTotal = %d, want 3", s.EventsTotal)
	}
	if s.EventsPumpfun != 2 || s.EventsRaydium != 1 {
		t.Fatalf("per-protocol split wrong: pumpfun=%d raydium=%d", s.EventsPumpfun, s.EventsRaydium)
	}
	if s.EventsDropped != 1 {
		t.Fatalf("EventsDropped = %d, want 1", s.EventsDropped)
	}
	if s.QueuePushes != 2 || s.QueuePops != 1 {
		t.Fatalf("queue counters wrong: pushes=%d pops=%d", s.QueuePushes, s.QueuePops)
	}
	if s.QueueHighWater != 2 {
		t.Fatalf("QueueHighWater = %d, want 2", s.QueueHighWater)
	}
	if s.DBInsertsSuccess != 5 || s.DBBatches != 1 {
		t.Fatalf("db counters wrong: success=%d batches=%d", s.DBInsertsSuccess, s.DBBatches)
	}
	if s.AvgDBLatencyUs != 1000 {
		t.Fatalf("AvgDBLatencyUs = %v, want 1000", s.AvgDBLatencyUs)
	}

	// Monotonicity: a second snapshot never decreases any counter.
	s2 := m.Snapshot()
	if s2.EventsTotal < s.EventsTotal || s2.DBBatches < s.DBBatches {
		t.Fatal("counters decreased between snapshots")
	}
}

func TestHighWaterMarkTracksMaximumNotLatest(t *testing.T) {
	m := New()
	m.IncQueuePush(5)
	m.IncQueuePush(3) // smaller: high water must stay at 5
	m.IncQueuePush(9) // larger: high water must become 9
	m.IncQueuePush(1)

	if hw := m.Snapshot().QueueHighWater; hw != 9 {
		t.Fatalf("QueueHighWater = %d, want 9", hw)
	}
}

func TestSnapshotDivideByZeroGuards(t *testing.T) {
	m := New()
	s := m.Snapshot()
	if s.EventsPerSecond != 0 || s.AvgEventLatencyUs != 0 || s.AvgDBLatencyUs != 0 {
		t.Fatalf("expected zero derived rates on a fresh instance, got %+v", s)
	}
	if s.LogSummary() == "" {
		t.Fatal("LogSummary produced empty string")
	}
}
