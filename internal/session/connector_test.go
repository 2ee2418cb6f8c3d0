package session

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/momentics/clink/api"
	"github.com/momentics/clink/fake"
	"github.com/momentics/clink/pool"
)

type events struct {
	mu       sync.Mutex
	messages []string
	closed   int
}

func (e *events) listener() Listener {
	return ListenerFuncs{
		Message: func(_ *Connector, msg string) {
			e.mu.Lock()
			e.messages = append(e.messages, msg)
			e.mu.Unlock()
		},
		Closed: func(*Connector) {
			e.mu.Lock()
			e.closed++
			e.mu.Unlock()
		},
	}
}

func newConnector(t *testing.T) (*Connector, *fake.Channel, *fake.Provider, *events) {
	t.Helper()
	ch := fake.NewChannel()
	prov := fake.NewProvider()
	ev := &events{}
	c, err := NewConnector(ch, prov, nil, ev.listener())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	return c, ch, prov, ev
}

func TestConnectorFramesLines(t *testing.T) {
	c, ch, prov, ev := newConnector(t)

	ch.ScriptRead([]byte("hel"), nil)
	prov.FireInput(ch)
	if len(ev.messages) != 0 {
		t.Fatalf("partial line delivered: %v", ev.messages)
	}
	if !prov.Armed(api.DirectionInput, ch) {
		t.Fatal("receive not re-armed after completion")
	}

	ch.ScriptRead([]byte("lo\r\nworld\nnext"), nil)
	prov.FireInput(ch)
	if len(ev.messages) != 2 || ev.messages[0] != "hello" || ev.messages[1] != "world" {
		t.Fatalf("messages = %q", ev.messages)
	}
	if st := c.Stats(); st["messages_in"] != 2 || st["bytes_in"] != 17 {
		t.Fatalf("stats = %v", st)
	}
}

func TestConnectorSendQueuesInOrder(t *testing.T) {
	c, ch, prov, _ := newConnector(t)

	for _, m := range []string{"one", "two\n", "three"} {
		if err := c.Send(m); err != nil {
			t.Fatal(err)
		}
	}
	if c.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", c.Pending())
	}
	for prov.FireOutput(ch) {
	}
	if got := string(ch.Written()); got != "one\ntwo\nthree\n" {
		t.Fatalf("written %q", got)
	}
	if c.Pending() != 0 || c.Stats()["messages_out"] != 3 {
		t.Fatalf("pending=%d stats=%v", c.Pending(), c.Stats())
	}

	// idle again: the next Send goes straight out
	c.Send("four")
	prov.FireOutput(ch)
	if got := string(ch.Written()); got != "one\ntwo\nthree\nfour\n" {
		t.Fatalf("written %q", got)
	}
}

func TestConnectorSendPartialWrites(t *testing.T) {
	c, ch, prov, _ := newConnector(t)
	ch.ScriptWrites(2, 0, 10)
	c.Send("hello")
	c.Send("x")
	for prov.FireOutput(ch) {
	}
	if got := string(ch.Written()); got != "hello\nx\n" {
		t.Fatalf("written %q", got)
	}
}

func TestConnectorOverlongLineCloses(t *testing.T) {
	ch := fake.NewChannel()
	prov := fake.NewProvider()
	ev := &events{}
	c, err := NewConnector(ch, prov, pool.NewBytePool(8), ev.listener())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	limit := MaxLineSlabs * 8
	ch.ScriptRead(append([]byte("ok\n"), bytes.Repeat([]byte("x"), limit+8)...), nil)
	fires := 0
	for prov.FireInput(ch) {
		fires++
		if fires > 2*MaxLineSlabs {
			t.Fatal("connector kept receiving past the line limit")
		}
	}

	if !c.IsClosed() || ev.closed != 1 {
		t.Fatalf("closed=%v OnClosed=%d", c.IsClosed(), ev.closed)
	}
	if len(ev.messages) != 1 || ev.messages[0] != "ok" {
		t.Fatalf("messages = %q", ev.messages)
	}
	if ch.CloseCalls() != 1 {
		t.Fatalf("channel closed %d times", ch.CloseCalls())
	}
}

func TestConnectorCloseOnPeerEOF(t *testing.T) {
	c, ch, prov, ev := newConnector(t)
	ch.EOF()
	prov.FireInput(ch)

	if !c.IsClosed() || ev.closed != 1 {
		t.Fatalf("closed=%v OnClosed=%d", c.IsClosed(), ev.closed)
	}
	err := c.Send("late")
	if !errors.Is(err, api.ErrClosed) {
		t.Fatalf("Send after close: %v", err)
	}
	c.Close()
	if ev.closed != 1 {
		t.Fatalf("OnClosed called %d times", ev.closed)
	}
}

func TestConnectorExplicitClose(t *testing.T) {
	c, ch, prov, ev := newConnector(t)
	c.Send("a")
	c.Send("b")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if ev.closed != 1 || c.Pending() != 0 || ch.IsOpen() {
		t.Fatalf("OnClosed=%d pending=%d open=%v", ev.closed, c.Pending(), ch.IsOpen())
	}
	if prov.Armed(api.DirectionInput, ch) || prov.Armed(api.DirectionOutput, ch) {
		t.Fatal("interest left after Close")
	}
}

func TestConnectorStartRefused(t *testing.T) {
	ch := fake.NewChannel()
	prov := fake.NewProvider()
	prov.Refuse(true)
	ev := &events{}
	c, err := NewConnector(ch, prov, nil, ev.listener())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("Start err = %v", err)
	}
	if ev.closed != 1 {
		t.Fatalf("OnClosed=%d", ev.closed)
	}
}

func TestConnectorUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c, err := NewConnector(fake.NewChannel(), fake.NewProvider(), nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if seen[c.ID()] {
			t.Fatalf("duplicate id %s", c.ID())
		}
		seen[c.ID()] = true
	}
}
