package directory

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"strings"
)

// Synthesizer hands out the stream of uniform draws used to fill in the
// attributes an employee record does not carry upstream.
type Synthesizer interface {
	Stream(id int) Stream
}

// Stream yields uniform values in [0, 1).
type Stream interface {
	Float64() float64
}

// StableSynthesizer derives every stream from the record id, so the same
// employee gets the same salary, department and city on every load.
type StableSynthesizer struct {
	Salt string
}

func (s StableSynthesizer) Stream(id int) Stream {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Salt))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	_, _ = h.Write(buf[:])
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomSynthesizer draws fresh values on every call.
type RandomSynthesizer struct{}

func (RandomSynthesizer) Stream(int) Stream {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

const (
	SynthStable = "stable"
	SynthRandom = "random"
)

// NewSynthesizer maps a configured mode onto an implementation. Unknown
// modes fall back to stable.
func NewSynthesizer(mode, salt string) Synthesizer {
	if strings.EqualFold(strings.TrimSpace(mode), SynthRandom) {
		return RandomSynthesizer{}
	}
	return StableSynthesizer{Salt: salt}
}
