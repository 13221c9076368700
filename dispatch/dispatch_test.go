package dispatch

import (
	"bytes"
	"testing"

	"knox/keyspace"
	"knox/pubsub"
)

type fakeConn struct {
	id     int64
	frames [][]byte
}

func (c *fakeConn) ID() int64 { return c.id }

func (c *fakeConn) Push(frame []byte) error {
	c.frames = append(c.frames, frame)
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeConn) {
	d := New(keyspace.New(), pubsub.New(), nil, "test", 8520, 0)
	return d, &fakeConn{id: 1}
}

func tok(args ...string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

func lastFrame(c *fakeConn) []byte {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func TestDispatchPing(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("PING"))
	if !bytes.Equal(lastFrame(c), []byte("+PONG\r\n")) {
		t.Errorf("PING = %q", lastFrame(c))
	}

	Dispatch(d, c, tok("ping", "hello"))
	if !bytes.Equal(lastFrame(c), []byte("$5\r\nhello\r\n")) {
		t.Errorf("PING hello = %q", lastFrame(c))
	}
}

func TestDispatchSetGet(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("SET", "k", "v"))
	if !bytes.Equal(lastFrame(c), []byte("+OK\r\n")) {
		t.Errorf("SET = %q", lastFrame(c))
	}

	Dispatch(d, c, tok("GET", "k"))
	if !bytes.Equal(lastFrame(c), []byte("$1\r\nv\r\n")) {
		t.Errorf("GET = %q", lastFrame(c))
	}

	Dispatch(d, c, tok("GET", "missing"))
	if !bytes.Equal(lastFrame(c), []byte("$-1\r\n")) {
		t.Errorf("GET missing = %q", lastFrame(c))
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("BOGUS", "x"))
	want := "-ERR unknown command 'BOGUS'\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("unknown command = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchArityError(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("SET", "k"))
	want := "-ERR wrong number of arguments for 'set' command\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("arity error = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchWrongType(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("SET", "k", "v"))
	Dispatch(d, c, tok("LPUSH", "k", "x"))
	want := "-ERR WRONGTYPE Operation against a key holding the wrong kind of value\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("WRONGTYPE reply = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchIncrParseError(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("SET", "k", "abc"))
	Dispatch(d, c, tok("INCR", "k"))
	want := "-ERR value is not an integer or out of range\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("INCR parse error = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchQuitClosesConnection(t *testing.T) {
	d, c := newTestDispatcher()
	closeConn := Dispatch(d, c, tok("QUIT"))
	if !closeConn {
		t.Error("QUIT should request connection close")
	}
	if !bytes.Equal(lastFrame(c), []byte("+OK\r\n")) {
		t.Errorf("QUIT reply = %q", lastFrame(c))
	}
}

func TestDispatchListRoundTrip(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("RPUSH", "q", "a"))
	Dispatch(d, c, tok("RPUSH", "q", "b"))
	Dispatch(d, c, tok("LRANGE", "q", "0", "-1"))
	want := "*2\r\n$1\r\na\r\n$1\r\nb\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("LRANGE = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchHashRoundTrip(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("HSET", "h", "f", "v"))
	if !bytes.Equal(lastFrame(c), []byte(":1\r\n")) {
		t.Errorf("HSET new field = %q", lastFrame(c))
	}
	Dispatch(d, c, tok("HGETALL", "h"))
	want := "*2\r\n$1\r\nf\r\n$1\r\nv\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("HGETALL = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchSubscribePublish(t *testing.T) {
	d, subConn := newTestDispatcher()
	Dispatch(d, subConn, tok("SUBSCRIBE", "news"))
	want := "*3\r\n$9\r\nsubscribe\r\n$4\r\nnews\r\n:1\r\n"
	if string(lastFrame(subConn)) != want {
		t.Errorf("SUBSCRIBE reply = %q, want %q", lastFrame(subConn), want)
	}

	pubConn := &fakeConn{id: 2}
	Dispatch(d, pubConn, tok("PUBLISH", "news", "hi"))
	if !bytes.Equal(lastFrame(pubConn), []byte(":1\r\n")) {
		t.Errorf("PUBLISH delivered count = %q", lastFrame(pubConn))
	}

	want = "*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$2\r\nhi\r\n"
	if string(lastFrame(subConn)) != want {
		t.Errorf("subscriber push = %q, want %q", lastFrame(subConn), want)
	}
}

func TestDispatchUnsubscribeAllNoPriorSubs(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("UNSUBSCRIBE"))
	want := "*3\r\n$11\r\nunsubscribe\r\n$-1\r\n:0\r\n"
	if string(lastFrame(c)) != want {
		t.Errorf("UNSUBSCRIBE no subs = %q, want %q", lastFrame(c), want)
	}
}

func TestDispatchPubSubChannels(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("SUBSCRIBE", "a", "b"))
	Dispatch(d, c, tok("PUBSUB", "CHANNELS"))
	frame := string(lastFrame(c))
	if frame != "*2\r\n$1\r\na\r\n$1\r\nb\r\n" {
		t.Errorf("PUBSUB CHANNELS = %q", frame)
	}
}

func TestDispatchSaveLoad(t *testing.T) {
	d, c := newTestDispatcher()
	Dispatch(d, c, tok("SET", "k", "v"))

	dir := t.TempDir()
	Dispatch(d, c, tok("SAVE", dir+"/snap"))
	if !bytes.Equal(lastFrame(c), []byte("+OK\r\n")) {
		t.Fatalf("SAVE = %q", lastFrame(c))
	}

	d.Store.Delete("k")
	Dispatch(d, c, tok("LOAD", dir+"/snap"))
	if !bytes.Equal(lastFrame(c), []byte("+OK\r\n")) {
		t.Fatalf("LOAD = %q", lastFrame(c))
	}

	value, ok := d.Store.Get("k")
	if !ok || string(value) != "v" {
		t.Errorf("Get after LOAD = %q, %v", value, ok)
	}
}
