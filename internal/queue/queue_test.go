package queue

import (
	"sync"
	"testing"
	"time"
)

func TestFIFOOrderSingleProducer(t *testing.T) {
	q := New[int](16, nil, nil)
	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}
	for i := 0; i < 10; i++ {
		v, res := q.Pop(false)
		if res != PopOK {
			t.Fatalf("pop %d: got %v", i, res)
		}
		if v != i {
			t.Fatalf("pop order broken: want %d got %d", i, v)
		}
	}
}

func TestCapacityInvariant(t *testing.T) {
	q := New[int](4, nil, nil)
	if q.Capacity() != 4 {
		t.Fatalf("capacity = %d, want 4", q.Capacity())
	}
	for i := 0; i < 4; i++ {
		q.Push(i)
	}
	if size := q.Size(); size != 4 {
		t.Fatalf("size = %d, want 4", size)
	}

	done := make(chan struct{})
	go func() {
		q.Push(99) // blocks until a slot opens
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("push on a full queue returned before a pop made room")
	case <-time.After(20 * time.Millisecond):
	}

	q.Pop(false)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked push never unblocked after a pop")
	}
}

func TestPopEmptyNonBlocking(t *testing.T) {
	q := New[int](4, nil, nil)
	if _, res := q.Pop(false); res != PopEmpty {
		t.Fatalf("pop on empty queue = %v, want PopEmpty", res)
	}
}

func TestCloseWakesWaitersAndDrains(t *testing.T) {
	q := New[int](2, nil, nil)
	q.Push(1)
	q.Push(2)

	var wg sync.WaitGroup
	blocked := make(chan bool, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		blocked <- q.Push(3) // blocks: queue full
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()
	wg.Wait()

	if ok := <-blocked; ok {
		t.Fatal("push succeeded after Close, want false")
	}

	// Drain remaining items before reporting closed.
	if v, res := q.Pop(true); res != PopOK || v != 1 {
		t.Fatalf("drain 1st = (%v, %v)", v, res)
	}
	if v, res := q.Pop(true); res != PopOK || v != 2 {
		t.Fatalf("drain 2nd = (%v, %v)", v, res)
	}
	if _, res := q.Pop(true); res != PopClosed {
		t.Fatalf("pop after drain = %v, want PopClosed", res)
	}

	if q.Push(4) {
		t.Fatal("push after close succeeded")
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := New[int](2, nil, nil)
	q.Close()
	q.Close() // must not panic or deadlock
	if _, res := q.Pop(true); res != PopClosed {
		t.Fatalf("pop on closed+empty = %v, want PopClosed", res)
	}
}

func TestSizeNeverExceedsCapacityUnderConcurrency(t *testing.T) {
	q := New[int](8, nil, nil)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			q.Push(i)
		}
	}()

	for i := 0; i < 2000; i++ {
		if size := q.Size(); size < 0 || size > q.Capacity() {
			close(stop)
			wg.Wait()
			t.Fatalf("size %d out of bounds [0, %d]", size, q.Capacity())
		}
		q.Pop(true)
	}
	close(stop)
	wg.Wait()
}
