// Package recorder defines the interface the graph's capture pump drives:
// anything that wants first crack at incoming audio (a Track, or any future
// listener) registers as a Recorder.
package recorder

import "github.com/nowsound-go/nowsound/internal/nstime"

// Recorder consumes a span of newly captured audio samples. Record returns
// true while the recorder wants to keep receiving data; once it returns
// false the graph removes it from its active set and never calls it again.
type Recorder interface {
	Record(now nstime.Time[nstime.AudioSample], duration nstime.Duration[nstime.AudioSample], samples []float32) (stillRecording bool)
}
