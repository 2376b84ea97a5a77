package buffer

import (
	"bytes"
	"sync"
	"testing"
)

func TestRoundUpPow2(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 1}, {0, 1}, {1, 1}, {2, 2}, {3, 4}, {1000, 1024},
		{1024, 1024}, {1025, 2048}, {2 << 20, 2 << 20},
	}
	for _, tt := range tests {
		if got := RoundUpPow2(tt.in); got != tt.want {
			t.Errorf("RoundUpPow2(%d)=%d, want %d", tt.in, got, tt.want)
		}
		if got := NewSPSC(tt.in).Cap(); got != tt.want {
			t.Errorf("NewSPSC(%d).Cap()=%d, want %d", tt.in, got, tt.want)
		}
	}
}

// collect returns a sink that appends everything it is offered.
func collect(out *[]byte) func([]byte) int {
	return func(p []byte) int {
		*out = append(*out, p...)
		return len(p)
	}
}

func TestSPSCProduceConsume(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		r := NewSPSC(1024)
		in := bytes.Repeat([]byte{0xab}, 1000)
		if n := r.Produce(in); n != 1000 {
			t.Fatalf("produce=%d", n)
		}
		if r.Len() != 1000 || r.Free() != 24 {
			t.Errorf("len=%d free=%d", r.Len(), r.Free())
		}

		var got []byte
		n, stalled := r.ConsumeInto(4096, collect(&got))
		if n != 1000 || stalled {
			t.Errorf("consume=%d stalled=%v", n, stalled)
		}
		if !bytes.Equal(got, in) {
			t.Error("bytes differ")
		}
		if r.Len() != 0 {
			t.Errorf("len=%d", r.Len())
		}
	})

	t.Run("wraparound", func(t *testing.T) {
		r := NewSPSC(8)
		r.Produce([]byte{0, 1, 2, 3, 4, 5})
		var sink []byte
		r.ConsumeInto(5, collect(&sink))

		in := []byte{10, 11, 12, 13, 14, 15, 16}
		if n := r.Produce(in); n != 7 {
			t.Fatalf("produce=%d", n)
		}

		var spans [][]byte
		var got []byte
		n, stalled := r.ConsumeInto(100, func(p []byte) int {
			spans = append(spans, bytes.Clone(p))
			got = append(got, p...)
			return len(p)
		})
		if n != 8 || stalled {
			t.Errorf("consume=%d stalled=%v", n, stalled)
		}
		if !bytes.Equal(got, append([]byte{5}, in...)) {
			t.Errorf("got=%v", got)
		}
		if len(spans) != 2 {
			t.Errorf("spans=%d, want 2 split at the physical end", len(spans))
		}
	})

	t.Run("overflow returns short count", func(t *testing.T) {
		r := NewSPSC(4)
		if n := r.Produce([]byte{1, 2, 3}); n != 3 {
			t.Fatalf("produce=%d", n)
		}
		if n := r.Produce([]byte{4, 5, 6}); n != 1 {
			t.Errorf("produce=%d, want 1", n)
		}
		if n := r.Produce([]byte{7}); n != 0 {
			t.Errorf("produce into full ring=%d", n)
		}
		var got []byte
		r.ConsumeInto(16, collect(&got))
		if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
			t.Errorf("got=%v", got)
		}
	})

	t.Run("underrun", func(t *testing.T) {
		r := NewSPSC(16)
		called := false
		n, stalled := r.ConsumeInto(8, func(p []byte) int {
			called = true
			return len(p)
		})
		if n != 0 || !stalled || called {
			t.Errorf("n=%d stalled=%v called=%v", n, stalled, called)
		}
	})

	t.Run("zero limit", func(t *testing.T) {
		r := NewSPSC(16)
		r.Produce([]byte{1})
		if n, stalled := r.ConsumeInto(0, collect(new([]byte))); n != 0 || stalled {
			t.Errorf("n=%d stalled=%v", n, stalled)
		}
		if r.Len() != 1 {
			t.Errorf("len=%d", r.Len())
		}
	})

	t.Run("limit", func(t *testing.T) {
		r := NewSPSC(16)
		r.Produce([]byte{1, 2, 3, 4, 5})
		var got []byte
		n, _ := r.ConsumeInto(3, collect(&got))
		if n != 3 || !bytes.Equal(got, []byte{1, 2, 3}) {
			t.Errorf("n=%d got=%v", n, got)
		}
	})
}

func TestSPSCPartialSink(t *testing.T) {
	r := NewSPSC(1 << 16)
	in := make([]byte, 960)
	for i := range in {
		in[i] = byte(i)
	}
	r.Produce(in)

	// Accept half of the first offer, then nothing.
	calls := 0
	n, stalled := r.ConsumeInto(len(in), func(p []byte) int {
		calls++
		if calls == 1 {
			return len(p) / 2
		}
		return 0
	})
	if n != 480 || !stalled {
		t.Fatalf("n=%d stalled=%v", n, stalled)
	}

	var got []byte
	n, stalled = r.ConsumeInto(len(in), collect(&got))
	if n != 480 || stalled {
		t.Fatalf("resume n=%d stalled=%v", n, stalled)
	}
	if !bytes.Equal(got, in[480:]) {
		t.Error("resumed drain did not start at byte 480")
	}
}

func TestSPSCSinkOverclaimClamped(t *testing.T) {
	r := NewSPSC(8)
	r.Produce([]byte{1, 2, 3})
	n, _ := r.ConsumeInto(8, func(p []byte) int { return len(p) + 100 })
	if n != 3 || r.Len() != 0 {
		t.Errorf("n=%d len=%d", n, r.Len())
	}
}

func TestSPSCReset(t *testing.T) {
	r := NewSPSC(8)
	r.Produce([]byte{1, 2, 3})
	r.Reset()
	if r.Len() != 0 || r.Free() != 8 {
		t.Errorf("len=%d free=%d", r.Len(), r.Free())
	}
}

func TestSPSCConcurrent(t *testing.T) {
	const total = 1 << 20
	r := NewSPSC(4096)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := make([]byte, 333)
		next := 0
		for next < total {
			m := min(len(chunk), total-next)
			for i := range m {
				chunk[i] = byte(next + i)
			}
			off := 0
			for off < m {
				off += r.Produce(chunk[off:m])
			}
			next += m
		}
	}()

	got := 0
	bad := -1
	for got < total {
		r.ConsumeInto(1000, func(p []byte) int {
			// Accept odd-sized pieces to exercise partial acceptance.
			take := min(len(p), 77)
			for i := range take {
				if p[i] != byte(got+i) && bad < 0 {
					bad = got + i
				}
			}
			got += take
			return take
		})
	}
	wg.Wait()

	if bad >= 0 {
		t.Fatalf("byte %d out of order", bad)
	}
	if r.Len() != 0 {
		t.Errorf("len=%d", r.Len())
	}
}
