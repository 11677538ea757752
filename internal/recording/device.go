package recording

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDeviceUnavailable means no capture stream could be opened for the session.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrDeviceBusy means the candidate's device is owned by another session.
	ErrDeviceBusy = errors.New("capture device is owned by another session")
	// ErrNotCapturing is returned when chunks arrive while no stream is open.
	ErrNotCapturing = errors.New("no open capture stream")
)

// Device opens capture streams. Chunks are delivered to sink until the stream is closed;
// once Close returns, sink is never called again.
type Device interface {
	Open(ctx context.Context, sessionID string, sink func(chunk []byte)) (Stream, error)
}

type Stream interface {
	Close() error
}

// PushDevice is fed by a client connection (the websocket ingest endpoint) that pushes
// encoded audio chunks for a session.
type PushDevice struct {
	mu    sync.Mutex
	feeds map[string]*Feed
}

func NewPushDevice() *PushDevice {
	return &PushDevice{feeds: make(map[string]*Feed)}
}

// Feed is one session's inbound chunk source.
type Feed struct {
	mu        sync.Mutex
	connected bool
	sink      func([]byte)
}

// Attach marks a client connection as present for the session. Reconnecting keeps an
// already-open stream, so capture continues across a dropped socket.
func (d *PushDevice) Attach(sessionID string) *Feed {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.feeds[sessionID]
	if !ok {
		f = &Feed{}
		d.feeds[sessionID] = f
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return f
}

// Forget drops the session's feed. Any open stream stops receiving chunks.
func (d *PushDevice) Forget(sessionID string) {
	d.mu.Lock()
	f, ok := d.feeds[sessionID]
	delete(d.feeds, sessionID)
	d.mu.Unlock()
	if ok {
		f.mu.Lock()
		f.connected = false
		f.sink = nil
		f.mu.Unlock()
	}
}

func (d *PushDevice) Open(_ context.Context, sessionID string, sink func(chunk []byte)) (Stream, error) {
	d.mu.Lock()
	f, ok := d.feeds[sessionID]
	d.mu.Unlock()
	if !ok {
		return nil, ErrDeviceUnavailable
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, ErrDeviceUnavailable
	}
	if f.sink != nil {
		return nil, ErrDeviceBusy
	}
	f.sink = sink
	return &pushStream{feed: f}, nil
}

// Push hands one chunk to the open stream.
func (f *Feed) Push(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sink == nil {
		return ErrNotCapturing
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	f.sink(buf)
	return nil
}

// Detach records that the client connection went away.
func (f *Feed) Detach() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
}

type pushStream struct {
	feed *Feed
	once sync.Once
}

func (s *pushStream) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		s.feed.sink = nil
		s.feed.mu.Unlock()
	})
	return nil
}
