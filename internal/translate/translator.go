// Package translate provides the boundary to the external translation
// capability, an OpenAI-compatible chat completions endpoint.
package translate

import "context"

// Translator converts a line of text between two languages. A failed or
// unusable backend response is reported as an error; callers decide what
// degraded delivery looks like.
type Translator interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}
