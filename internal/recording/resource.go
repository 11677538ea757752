// Package recording owns the audio capture for a speaking session.
package recording

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/timer"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRecording Phase = "recording"
	PhasePaused    Phase = "paused"
	PhaseStopped   Phase = "stopped"
)

// ErrInvalidState is returned when an operation is not valid in the current phase.
var ErrInvalidState = errors.New("invalid recording state")

// Segment marks where a part's answer begins inside the continuous recording.
type Segment struct {
	PartID uint          `json:"part_id"`
	Offset int           `json:"offset"`
	At     time.Duration `json:"at"`
}

// Artifact is the finalized recording. It is produced once per resource.
type Artifact struct {
	SessionID   string
	ContentType string
	Data        []byte
	Chunks      int
	Duration    time.Duration
	Segments    []Segment
	Checksum    string
	FinalizedAt time.Time
}

func (a *Artifact) Size() int { return len(a.Data) }

// SegmentFor returns the segment recorded for partID.
func (a *Artifact) SegmentFor(partID uint) (Segment, bool) {
	for _, s := range a.Segments {
		if s.PartID == partID {
			return s, true
		}
	}
	return Segment{}, false
}

type Options struct {
	SessionID   string
	DeviceKey   string
	ContentType string
	Device      Device
	Lease       Lease
	Clock       timer.Clock
}

// Resource is one session's recording. Start, Pause, Resume, Stop and Release are safe
// for concurrent use; Stop and Release are idempotent.
type Resource struct {
	// lifecycle serialises Start/Stop/Release; mu guards the captured data and phase.
	lifecycle sync.Mutex
	mu        sync.Mutex

	sessionID   string
	deviceKey   string
	contentType string
	device      Device
	lease       Lease
	clock       timer.Clock

	phase    Phase
	stream   Stream
	buf      bytes.Buffer
	chunks   int
	dropped  int
	segments []Segment

	recorded  time.Duration
	resumedAt time.Time

	artifact *Artifact
	released bool
}

func NewResource(opts Options) *Resource {
	if opts.Clock == nil {
		opts.Clock = timer.RealClock()
	}
	if opts.ContentType == "" {
		opts.ContentType = "audio/webm"
	}
	if opts.DeviceKey == "" {
		opts.DeviceKey = opts.SessionID
	}
	return &Resource{
		sessionID:   opts.SessionID,
		deviceKey:   opts.DeviceKey,
		contentType: opts.ContentType,
		device:      opts.Device,
		lease:       opts.Lease,
		clock:       opts.Clock,
		phase:       PhaseIdle,
	}
}

// Start acquires the device and begins capturing. Only valid from idle.
func (r *Resource) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if p := r.Phase(); p != PhaseIdle {
		return fmt.Errorf("start from %s: %w", p, ErrInvalidState)
	}
	if r.device == nil {
		return ErrDeviceUnavailable
	}

	if r.lease != nil {
		if err := r.lease.Acquire(ctx, r.deviceKey, r.sessionID); err != nil {
			return err
		}
	}

	stream, err := r.device.Open(ctx, r.sessionID, r.receive)
	if err != nil {
		r.releaseLease()
		if errors.Is(err, ErrDeviceBusy) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.mu.Lock()
	r.stream = stream
	r.phase = PhaseRecording
	r.resumedAt = r.clock.Now()
	r.mu.Unlock()

	log.Info().Str("sessionID", r.sessionID).Str("device", r.deviceKey).Msg("Recording: capture started")
	return nil
}

// Pause stops accepting chunks. A no-op unless recording.
func (r *Resource) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseRecording {
		return
	}
	r.recorded += r.clock.Now().Sub(r.resumedAt)
	r.phase = PhasePaused
}

// Resume accepts chunks again. A no-op unless paused.
func (r *Resource) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhasePaused {
		return
	}
	r.resumedAt = r.clock.Now()
	r.phase = PhaseRecording
}

// Mark records the current position as the start of partID's answer.
func (r *Resource) Mark(partID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseRecording && r.phase != PhasePaused {
		return
	}
	for _, s := range r.segments {
		if s.PartID == partID {
			return
		}
	}
	r.segments = append(r.segments, Segment{PartID: partID, Offset: r.buf.Len(), At: r.elapsedLocked()})
}

// Stop finalizes the artifact. Calling it again returns the same artifact.
func (r *Resource) Stop(ctx context.Context) (*Artifact, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.artifact != nil {
		a := r.artifact
		r.mu.Unlock()
		return a, nil
	}
	if r.phase != PhaseRecording && r.phase != PhasePaused {
		p := r.phase
		r.mu.Unlock()
		return nil, fmt.Errorf("stop from %s: %w", p, ErrInvalidState)
	}
	stream := r.stream
	r.mu.Unlock()

	// Close outside mu: an in-flight chunk delivery holds the feed lock while waiting on mu.
	if stream != nil {
		_ = stream.Close()
	}

	r.mu.Lock()
	if r.phase == PhaseRecording {
		r.recorded += r.clock.Now().Sub(r.resumedAt)
	}
	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	sum := sha256.Sum256(data)
	segments := make([]Segment, len(r.segments))
	copy(segments, r.segments)
	r.artifact = &Artifact{
		SessionID:   r.sessionID,
		ContentType: r.contentType,
		Data:        data,
		Chunks:      r.chunks,
		Duration:    r.recorded,
		Segments:    segments,
		Checksum:    hex.EncodeToString(sum[:]),
		FinalizedAt: r.clock.Now(),
	}
	r.phase = PhaseStopped
	r.stream = nil
	a := r.artifact
	dropped := r.dropped
	r.mu.Unlock()

	r.releaseLease()
	log.Info().Str("sessionID", r.sessionID).Int("bytes", len(a.Data)).Int("chunks", a.Chunks).
		Int("droppedWhilePaused", dropped).Dur("duration", a.Duration).Msg("Recording: artifact finalized")
	return a, nil
}

// Release frees the device without producing an artifact. Safe to call in any phase
// and more than once; a previously finalized artifact stays available.
func (r *Resource) Release() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	stream := r.stream
	r.stream = nil
	if r.phase == PhaseRecording || r.phase == PhasePaused || r.phase == PhaseIdle {
		r.phase = PhaseStopped
	}
	r.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	r.releaseLease()
	log.Debug().Str("sessionID", r.sessionID).Msg("Recording: resource released")
}

func (r *Resource) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Artifact returns the finalized artifact, or nil before Stop.
func (r *Resource) Artifact() *Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact
}

// Elapsed is the recorded time, excluding pauses.
func (r *Resource) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsedLocked()
}

func (r *Resource) elapsedLocked() time.Duration {
	if r.phase == PhaseRecording {
		return r.recorded + r.clock.Now().Sub(r.resumedAt)
	}
	return r.recorded
}

func (r *Resource) receive(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.phase {
	case PhaseRecording:
		r.buf.Write(chunk)
		r.chunks++
	case PhasePaused:
		r.dropped++
	}
}

func (r *Resource) releaseLease() {
	if r.lease == nil {
		return
	}
	// owner-checked, so releasing a lease this session never got is harmless
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.lease.Release(ctx, r.deviceKey, r.sessionID); err != nil {
		log.Warn().Err(err).Str("sessionID", r.sessionID).Msg("Recording: device lease release failed")
	}
}
