// Package capture accumulates live microphone audio on the server until the
// user stops recording, then hands one consolidated asset to submission.
package capture

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vcenk/say-it-translated/internal/apperr"
)

// State of a capture session
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateStopping
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateStopping:
		return "stopping"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Capture is the consolidated output of a finalized session
type Capture struct {
	Data        []byte
	MimeType    string
	Filename    string
	Chunks      int
	DurationSec float64
}

// Session owns the chunk buffer of one recording. All methods are safe for
// concurrent use; chunks from parallel requests are appended in arrival order.
type Session struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	mu           sync.Mutex
	state        State
	mimeType     string
	buf          bytes.Buffer
	chunks       int
	maxBytes     int64
	startedAt    time.Time
	stoppedAt    time.Time
	lastActivity time.Time
	now          func() time.Time
}

// NewSession creates an idle session. maxBytes <= 0 disables the size cap.
func NewSession(ownerID uuid.UUID, mimeType string, maxBytes int64, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	s := &Session{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		mimeType: mimeType,
		maxBytes: maxBytes,
		now:      now,
	}
	s.lastActivity = now()
	return s
}

func (s *Session) transitionErr(action string) error {
	return apperr.Conflict(fmt.Sprintf("cannot %s capture in state %s", action, s.state))
}

// Start begins capturing: Idle -> Capturing
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return s.transitionErr("start")
	}
	s.state = StateCapturing
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
	return nil
}

// Append buffers one chunk. Empty chunks are ignored, as the recorder emits
// them when no data was captured during an interval.
func (s *Session) Append(chunk []byte) error {
	return s.AppendWithin(chunk, 0)
}

// AppendWithin is Append with an extra cap on the buffered total, such as the
// owner's upload ceiling. limit <= 0 applies only the session cap.
func (s *Session) AppendWithin(chunk []byte, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCapturing {
		return s.transitionErr("append to")
	}
	if len(chunk) == 0 {
		return nil
	}
	if s.maxBytes > 0 && (limit <= 0 || s.maxBytes < limit) {
		limit = s.maxBytes
	}
	if limit > 0 && int64(s.buf.Len()+len(chunk)) > limit {
		return apperr.InvalidInput(fmt.Sprintf("capture exceeds maximum size of %d bytes", limit))
	}

	s.buf.Write(chunk)
	s.chunks++
	s.lastActivity = s.now()
	return nil
}

// Stop ends capturing: Capturing -> Stopping. No chunks are accepted afterwards.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCapturing {
		return s.transitionErr("stop")
	}
	s.state = StateStopping
	s.stoppedAt = s.now()
	s.lastActivity = s.stoppedAt
	return nil
}

// Finalize hands the buffered audio out and releases the buffer: Stopping -> Finalized.
func (s *Session) Finalize() (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.snapshot()
	if err != nil {
		if s.state == StateStopping {
			s.release()
		}
		return nil, err
	}
	s.release()
	return out, nil
}

// Snapshot copies the buffered audio of a stopped session without releasing it
func (s *Session) Snapshot() (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot must be called with mu held
func (s *Session) snapshot() (*Capture, error) {
	if s.state != StateStopping {
		return nil, s.transitionErr("finalize")
	}
	if s.buf.Len() == 0 {
		return nil, apperr.InvalidInput("no audio was captured")
	}

	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())
	return &Capture{
		Data:        data,
		MimeType:    s.mimeType,
		Filename:    fmt.Sprintf("recording-%d%s", s.startedAt.UnixMilli(), extensionFor(s.mimeType)),
		Chunks:      s.chunks,
		DurationSec: s.stoppedAt.Sub(s.startedAt).Seconds(),
	}, nil
}

// Discard drops buffered audio from any state.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

// release must be called with mu held
func (s *Session) release() {
	s.buf = bytes.Buffer{}
	s.state = StateFinalized
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed is the capture duration so far, or the final duration once stopped.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.startedAt.IsZero():
		return 0
	case !s.stoppedAt.IsZero():
		return s.stoppedAt.Sub(s.startedAt)
	default:
		return s.now().Sub(s.startedAt)
	}
}

// Size returns the buffered byte count and chunk count
func (s *Session) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len(), s.chunks
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func extensionFor(mimeType string) string {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	switch base {
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".webm"
	}
}
