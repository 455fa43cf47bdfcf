// Package room provides the in-memory room registry: room-code allocation,
// membership slots, and the per-room ordered transcript.
package room

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"
)

// Errors surfaced to the join and send paths.
var (
	ErrNotFound         = errors.New("room not found")
	ErrLanguageMismatch = errors.New("language is not part of the room's pair")
	ErrRoomFull         = errors.New("room is full")
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const codeLength = 5

// Message is a single delivered transcript entry. It is immutable once
// created.
type Message struct {
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	FromLang   string    `json:"fromLang"`
	ToLang     string    `json:"toLang"`
	Seq        uint64    `json:"seq"`
	Ts         time.Time `json:"ts"`
}

// Info is a point-in-time, read-only view of a room.
type Info struct {
	Code      string
	Languages [2]string
	Occupants int
	Messages  int
}

// room is the registry-owned record. The language pair is fixed at
// creation; each slot of the pair holds at most one bound session.
type room struct {
	code      string
	languages [2]string
	occupants [2]int

	// Submission-order delivery state. nextSeq is assigned when a send
	// arrives; completed messages wait in pending until every lower
	// sequence number has been appended.
	nextSeq     uint64
	nextDeliver uint64
	pending     map[uint64]Message
	log         []Message
}

// Registry is the mutex-guarded store of live rooms. All room state is
// mutated under a single lock, so every operation observes rooms one at a
// time in arrival order.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

// Create allocates a unique room code and stores a new room with the given
// language pair and an empty transcript. Codes are regenerated on collision
// until unique among live rooms.
func (r *Registry) Create(creatorLang, joinerLang string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := newCode()
	for _, exists := r.rooms[code]; exists; _, exists = r.rooms[code] {
		code = newCode()
	}

	r.rooms[code] = &room{
		code:        code,
		languages:   [2]string{creatorLang, joinerLang},
		nextDeliver: 1,
		pending:     make(map[uint64]Message),
	}
	return code
}

// Get returns a read-only view of a room, distinguishing an unknown code
// from a room that simply has no occupants or messages yet.
func (r *Registry) Get(code string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return Info{}, false
	}
	return Info{
		Code:      rm.code,
		Languages: rm.languages,
		Occupants: rm.occupants[0] + rm.occupants[1],
		Messages:  len(rm.log),
	}, true
}

// Join reserves a language slot in the room for a binding session. The
// declared language must be one of the room's registered pair, and the
// matching slot must be free.
func (r *Registry) Join(code, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return ErrNotFound
	}

	matched := false
	for i, l := range rm.languages {
		if l != lang {
			continue
		}
		matched = true
		if rm.occupants[i] == 0 {
			rm.occupants[i] = 1
			return nil
		}
	}
	if !matched {
		return ErrLanguageMismatch
	}
	return ErrRoomFull
}

// Leave releases the slot held for the given language. Unknown codes and
// unoccupied slots are ignored; disconnects never delete rooms.
func (r *Registry) Leave(code, lang string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return
	}
	for i, l := range rm.languages {
		if l == lang && rm.occupants[i] > 0 {
			rm.occupants[i] = 0
			return
		}
	}
}

// TargetFor resolves the translation target for a sender: whichever slot
// of the pair is not the sender's declared language. With an identical
// pair the target is the same language.
func (r *Registry) TargetFor(code, fromLang string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return "", false
	}
	if rm.languages[0] == fromLang {
		return rm.languages[1], true
	}
	if rm.languages[1] == fromLang {
		return rm.languages[0], true
	}
	return "", false
}

// NextSeq assigns the next submission-order sequence number for the room.
func (r *Registry) NextSeq(code string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return 0, false
	}
	rm.nextSeq++
	return rm.nextSeq, true
}

// Append records a completed message and delivers every message that is now
// in order, invoking deliver for each under the registry lock so that no
// two senders can interleave their release batches. A message whose lower
// sequence numbers are still in flight is buffered. Returns false if the
// room no longer exists; the send is then dropped, which is not fatal.
func (r *Registry) Append(code string, msg Message, deliver func(Message)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return false
	}

	rm.pending[msg.Seq] = msg
	for {
		next, ok := rm.pending[rm.nextDeliver]
		if !ok {
			break
		}
		delete(rm.pending, rm.nextDeliver)
		rm.nextDeliver++
		rm.log = append(rm.log, next)
		if deliver != nil {
			deliver(next)
		}
	}
	return true
}

// Transcript returns a copy of the room's delivered messages in sequence
// order.
func (r *Registry) Transcript(code string) ([]Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	out := make([]Message, len(rm.log))
	copy(out, rm.log)
	return out, true
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// newCode generates a short random room code. The modulo bias over a
// 36-character alphabet is irrelevant for uniqueness, which Create enforces
// by retrying.
func newCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("room: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
