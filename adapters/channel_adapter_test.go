package adapters_test

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/clink/adapters"
	"github.com/momentics/clink/api"
	"github.com/momentics/clink/core/buffer"
	"github.com/momentics/clink/fake"
	"github.com/momentics/clink/pool"
)

type recorder struct {
	mu        sync.Mutex
	started   int
	completed []string
}

func (r *recorder) OnStarted(*buffer.IoArgs) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
}

func (r *recorder) OnCompleted(args *buffer.IoArgs) {
	r.mu.Lock()
	r.completed = append(r.completed, args.String())
	r.mu.Unlock()
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, len(r.completed)
}

func newAdapter(t *testing.T) (*adapters.SocketChannelAdapter, *fake.Channel, *fake.Provider, *atomic.Int32) {
	t.Helper()
	ch := fake.NewChannel()
	prov := fake.NewProvider()
	var notified atomic.Int32
	a, err := adapters.NewSocketChannelAdapter(ch, prov, api.ChannelStatusFunc(func(api.Channel) {
		notified.Add(1)
	}), pool.NewBytePool(64))
	if err != nil {
		t.Fatal(err)
	}
	return a, ch, prov, &notified
}

func TestAdapterForcesNonblocking(t *testing.T) {
	_, ch, _, _ := newAdapter(t)
	if !ch.Nonblocking() {
		t.Error("channel was not switched to non-blocking")
	}
}

func TestAdapterRejectsNil(t *testing.T) {
	if _, err := adapters.NewSocketChannelAdapter(nil, fake.NewProvider(), nil, nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("nil channel err = %v", err)
	}
	a, _, _, _ := newAdapter(t)
	if _, err := a.ReceiveAsync(nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("nil listener err = %v", err)
	}
	if _, err := a.SendAsync(nil, &recorder{}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("nil args err = %v", err)
	}
}

func TestAdapterReceive(t *testing.T) {
	a, ch, prov, notified := newAdapter(t)
	ch.ScriptRead([]byte("hello"), nil)

	rec := &recorder{}
	ok, err := a.ReceiveAsync(rec)
	if !ok || err != nil {
		t.Fatalf("ReceiveAsync = %v, %v", ok, err)
	}
	if !prov.Armed(api.DirectionInput, ch) {
		t.Fatal("read interest not registered")
	}
	prov.FireInput(ch)

	if s, c := rec.counts(); s != 1 || c != 1 || rec.completed[0] != "hello" {
		t.Fatalf("started=%d completed=%v", s, rec.completed)
	}
	if prov.Armed(api.DirectionInput, ch) {
		t.Fatal("interest restored without a new ReceiveAsync")
	}
	if a.BytesIn() != 5 || notified.Load() != 0 {
		t.Fatalf("bytesIn=%d notified=%d", a.BytesIn(), notified.Load())
	}
}

func TestAdapterReceiveZeroBytesCloses(t *testing.T) {
	a, ch, prov, notified := newAdapter(t)
	rec := &recorder{}
	a.ReceiveAsync(rec)
	prov.FireInput(ch)

	if _, c := rec.counts(); c != 0 {
		t.Fatal("OnCompleted called for an empty read")
	}
	if !a.IsClosed() || ch.IsOpen() {
		t.Fatal("adapter not closed after zero-byte read")
	}
	if notified.Load() != 1 {
		t.Fatalf("notified %d times", notified.Load())
	}
}

func TestAdapterReceiveEOFCloses(t *testing.T) {
	a, ch, prov, notified := newAdapter(t)
	ch.EOF()
	a.ReceiveAsync(&recorder{})
	prov.FireInput(ch)
	if !a.IsClosed() || notified.Load() != 1 {
		t.Fatalf("closed=%v notified=%d", a.IsClosed(), notified.Load())
	}
}

func TestAdapterConcurrentZeroReadsNotifyOnce(t *testing.T) {
	for round := 0; round < 20; round++ {
		ch := fake.NewChannel()
		var cb api.HandleFunc
		spy := &spyProvider{Provider: fake.NewProvider(), input: &cb}
		var notified atomic.Int32
		a, err := adapters.NewSocketChannelAdapter(ch, spy, api.ChannelStatusFunc(func(api.Channel) {
			notified.Add(1)
		}), nil)
		if err != nil {
			t.Fatal(err)
		}
		a.ReceiveAsync(&recorder{})

		// several workers observing the same hangup
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				cb()
			}()
		}
		close(start)
		wg.Wait()

		if notified.Load() != 1 {
			t.Fatalf("round %d: notified %d times", round, notified.Load())
		}
		if ch.CloseCalls() != 1 {
			t.Fatalf("round %d: channel closed %d times", round, ch.CloseCalls())
		}
	}
}

func TestAdapterSendSingleEvent(t *testing.T) {
	a, ch, prov, _ := newAdapter(t)
	rec := &recorder{}
	ok, err := a.SendAsync(buffer.NewIoArgsWith([]byte("payload")), rec)
	if !ok || err != nil {
		t.Fatalf("SendAsync = %v, %v", ok, err)
	}
	prov.FireOutput(ch)

	if s, c := rec.counts(); s != 1 || c != 1 {
		t.Fatalf("started=%d completed=%d", s, c)
	}
	if string(ch.Written()) != "payload" || a.BytesOut() != 7 {
		t.Fatalf("written %q bytesOut=%d", ch.Written(), a.BytesOut())
	}
}

func TestAdapterSendDrainsAcrossEvents(t *testing.T) {
	a, ch, prov, _ := newAdapter(t)
	ch.ScriptWrites(3, 0, 2, 4)

	rec := &recorder{}
	a.SendAsync(buffer.NewIoArgsWith([]byte("abcdefghi")), rec)

	events := 0
	for prov.FireOutput(ch) {
		events++
		s, c := rec.counts()
		if s != 1 {
			t.Fatalf("event %d: OnStarted called %d times", events, s)
		}
		if events < 4 && c != 0 {
			t.Fatalf("event %d: completed before drain", events)
		}
	}
	if events != 4 {
		t.Fatalf("drained in %d events, want 4", events)
	}
	if _, c := rec.counts(); c != 1 {
		t.Fatalf("OnCompleted called %d times", c)
	}
	if string(ch.Written()) != "abcdefghi" {
		t.Fatalf("written %q", ch.Written())
	}
}

func TestAdapterSendReRegisterRefusedCloses(t *testing.T) {
	a, ch, prov, notified := newAdapter(t)
	ch.ScriptWrites(1)
	a.SendAsync(buffer.NewIoArgsWith([]byte("ab")), &recorder{})
	prov.Refuse(true)
	prov.FireOutput(ch)
	if !a.IsClosed() || notified.Load() != 1 {
		t.Fatalf("closed=%v notified=%d", a.IsClosed(), notified.Load())
	}
}

func TestAdapterSendErrorCloses(t *testing.T) {
	a, ch, prov, notified := newAdapter(t)
	ch.FailWrites(io.ErrClosedPipe)
	rec := &recorder{}
	a.SendAsync(buffer.NewIoArgsWith([]byte("x")), rec)
	prov.FireOutput(ch)

	if _, c := rec.counts(); c != 0 {
		t.Fatal("OnCompleted after a failed write")
	}
	if !a.IsClosed() || notified.Load() != 1 {
		t.Fatalf("closed=%v notified=%d", a.IsClosed(), notified.Load())
	}
}

func TestAdapterClosed(t *testing.T) {
	a, ch, prov, notified := newAdapter(t)
	a.ReceiveAsync(&recorder{})
	a.SendAsync(buffer.NewIoArgsWith([]byte("x")), &recorder{})

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if prov.Armed(api.DirectionInput, ch) || prov.Armed(api.DirectionOutput, ch) {
		t.Fatal("interest left registered after Close")
	}
	if notified.Load() != 1 {
		t.Fatalf("notified %d times", notified.Load())
	}

	_, err := a.ReceiveAsync(&recorder{})
	if !errors.Is(err, api.ErrClosed) {
		t.Fatalf("ReceiveAsync after close: %v", err)
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Context["fd"] != ch.Fd() {
		t.Fatalf("missing fd context: %v", err)
	}
	if _, err := a.SendAsync(buffer.NewIoArgsWith([]byte("x")), &recorder{}); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("SendAsync after close: %v", err)
	}
}

func TestAdapterCallbackAfterCloseIsNoop(t *testing.T) {
	ch := fake.NewChannel()
	ch.ScriptRead([]byte("late"), nil)
	var cb api.HandleFunc
	spy := &spyProvider{Provider: fake.NewProvider(), input: &cb}
	a, err := adapters.NewSocketChannelAdapter(ch, spy, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	a.ReceiveAsync(rec)
	a.Close()
	// a worker that was already dispatched runs after Close
	cb()

	if s, c := rec.counts(); s != 0 || c != 0 {
		t.Fatalf("callback ran after close: started=%d completed=%d", s, c)
	}
}

type spyProvider struct {
	*fake.Provider
	input *api.HandleFunc
}

func (s *spyProvider) RegisterInput(ch api.Channel, cb api.HandleFunc) bool {
	*s.input = cb
	return s.Provider.RegisterInput(ch, cb)
}
