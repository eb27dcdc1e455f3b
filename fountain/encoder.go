package fountain

import (
	"math"

	"github.com/willf/bitset"

	"github.com/n0remac/rvs/rvserr"
)

// RobustSolitonC and RobustSolitonDelta pin the (c, delta) parameters spec §9
// fixes as reasonable defaults for the Robust Soliton distribution, since the
// source material only gestures at "Wirehair-like" without documenting them.
const (
	RobustSolitonC     = 0.03
	RobustSolitonDelta = 0.5
)

// DefaultRedundancy is the fraction of extra packets emitted beyond the N
// systematic ones (spec §3).
const DefaultRedundancy = 0.30

// Encoder produces the systematic-then-random packet stream for a fixed set
// of source chunks (component B).
type Encoder struct {
	chunks  [][]byte
	n       int
	soliton *robustSoliton
	seed    uint32
	next    int
	total   int
}

// NewEncoder builds an encoder over chunkPayloads with the given redundancy
// and a caller-supplied seed for the non-systematic packets (spec §8:
// "encode is deterministic given a fixed RNG seed"). redundancy must be in
// [0, 2]. Each non-systematic packet's own per-packet seed is derived from
// seed combined with that packet's index, so two encoders built with
// different seeds diverge over every non-systematic packet while an encoder
// rebuilt with the same seed reproduces its stream exactly.
func NewEncoder(chunkPayloads [][]byte, redundancy float64, seed uint32) (*Encoder, error) {
	if len(chunkPayloads) == 0 {
		return nil, rvserr.InvalidInput("no chunks to encode")
	}
	if redundancy < 0 || redundancy > 2 {
		return nil, rvserr.InvalidInput("redundancy %f out of range [0, 2]", redundancy)
	}
	n := len(chunkPayloads)
	total := int(math.Ceil(float64(n) * (1 + redundancy)))
	if total < n {
		total = n
	}
	return &Encoder{
		chunks:  chunkPayloads,
		n:       n,
		soliton: newRobustSoliton(n, RobustSolitonC, RobustSolitonDelta),
		seed:    seed,
		next:    0,
		total:   total,
	}, nil
}

// Total returns M, the total number of packets this encoder will emit.
func (e *Encoder) Total() int { return e.total }

// Done reports whether all M packets have been produced.
func (e *Encoder) Done() bool { return e.next >= e.total }

// Next produces the next packet in emission order: the first N packets are
// systematic (mask={i}, payload=chunk_i); the rest are Robust-Soliton XOR
// combinations, each seeded by e.seed combined with its own index (spec
// §4.B).
func (e *Encoder) Next() (Packet, bool) {
	if e.Done() {
		return Packet{}, false
	}
	i := e.next
	e.next++

	if i < e.n {
		mask := bitset.New(uint(e.n))
		mask.Set(uint(i))
		payload := make([]byte, len(e.chunks[i]))
		copy(payload, e.chunks[i])
		return NewPacket(uint32(i), mask, payload), true
	}

	seed := e.seed ^ uint32(i)
	rng := newXorshift32(seed)
	degree := e.soliton.sample(rng)
	if degree > e.n {
		degree = e.n
	}
	indices := sampleDistinct(rng, e.n, degree)

	payload := make([]byte, len(e.chunks[0]))
	mask := bitset.New(uint(e.n))
	for _, idx := range indices {
		mask.Set(uint(idx))
		xorInto(payload, e.chunks[idx])
	}
	return NewPacket(seed, mask, payload), true
}

// All drains the encoder into a slice; a streaming caller should prefer Next.
func (e *Encoder) All() []Packet {
	out := make([]Packet, 0, e.total-e.next)
	for {
		p, ok := e.Next()
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// sampleDistinct draws d distinct indices from [0, n) uniformly without
// replacement using a Fisher-Yates partial shuffle driven by rng.
func sampleDistinct(rng *xorshift32, n, d int) []int {
	if d >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < d; i++ {
		j := i + rng.intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:d]
}
