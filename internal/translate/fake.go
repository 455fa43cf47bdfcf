package translate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Translator for tests. Replies, failures, and
// per-text delays are scriptable so callers can exercise fallback and
// ordering behavior without a backend.
type Fake struct {
	mu      sync.Mutex
	replies map[string]string
	delays  map[string]time.Duration
	err     error
}

// NewFake creates a new fake translator.
func NewFake() *Fake {
	return &Fake{
		replies: make(map[string]string),
		delays:  make(map[string]time.Duration),
	}
}

// Ensure Fake implements Translator.
var _ Translator = (*Fake)(nil)

// Reply sets the canned translation for a given input text.
func (f *Fake) Reply(text, translated string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[text] = translated
}

// Delay makes translations of the given text take at least d.
func (f *Fake) Delay(text string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[text] = d
}

// Fail makes every subsequent Translate call return err. Pass nil to
// restore normal behavior.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Translate returns the canned reply for text, or a tagged echo of the
// input when none was scripted.
func (f *Fake) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	f.mu.Lock()
	delay := f.delays[text]
	err := f.err
	reply, ok := f.replies[text]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		reply = fmt.Sprintf("[%s] %s", toLang, text)
	}
	return reply, nil
}
