package fountain

import (
	"bytes"

	"github.com/willf/bitset"

	"github.com/n0remac/rvs/rvserr"
)

// row is one stored, not-yet-singleton equation in the GF(2) linear system:
// the XOR of the source chunks named by mask equals payload. Rows are kept
// as a flat slice, not a literal graph (spec §9): cascading substitution is a
// sweep over this slice, never a pointer traversal.
type row struct {
	mask    *bitset.BitSet
	payload []byte
}

// Decoder accumulates fountain packets online and solves for the N source
// chunks once enough independent information has arrived (component C).
type Decoder struct {
	n             int
	chunkSize     int
	solved        []bool
	solvedPayload [][]byte
	rows          []*row
	integrityErr  error
}

// NewDecoder prepares a decoder for n source chunks of chunkSize bytes each.
func NewDecoder(n int, chunkSize int) *Decoder {
	return &Decoder{
		n:             n,
		chunkSize:     chunkSize,
		solved:        make([]bool, n),
		solvedPayload: make([][]byte, n),
	}
}

// Recovered reports how many of the N source chunks are currently solved.
// A streaming caller can poll this to release payload memory as soon as a
// chunk resolves (spec §5), without waiting for Finalize.
func (d *Decoder) Recovered() int {
	count := 0
	for _, ok := range d.solved {
		if ok {
			count++
		}
	}
	return count
}

// Solved reports whether chunk i is currently solved, and returns its
// payload if so.
func (d *Decoder) Solved(i int) ([]byte, bool) {
	if i < 0 || i >= d.n || !d.solved[i] {
		return nil, false
	}
	return d.solvedPayload[i], true
}

// Add ingests one packet. Packets with a bad CRC or an empty post-reduction
// mask are silently discarded (spec §4.C step 1-2); a genuine GF(2)
// inconsistency (the same chunk resolving to two different payloads) is
// reported as an IntegrityFailureError.
func (d *Decoder) Add(pkt Packet) error {
	if d.integrityErr != nil {
		return d.integrityErr
	}
	if !pkt.VerifyCRC() || pkt.Mask == nil {
		return nil
	}

	mask := pkt.Mask.Clone()
	payload := append([]byte(nil), pkt.XorPayload...)

	var toClear []uint
	for i, ok := mask.NextSet(0); ok; i, ok = mask.NextSet(i + 1) {
		if int(i) < d.n && d.solved[i] {
			toClear = append(toClear, i)
		}
	}
	for _, i := range toClear {
		xorInto(payload, d.solvedPayload[i])
		mask.Clear(i)
	}

	if mask.None() {
		return nil
	}
	if mask.Count() == 1 {
		idx, _ := mask.NextSet(0)
		d.solveChunk(idx, payload)
		return d.integrityErr
	}

	d.rows = append(d.rows, &row{mask: mask, payload: payload})
	return nil
}

// solveChunk records chunk idx as solved and cascades the substitution
// through every stored row that references it, possibly solving further
// chunks transitively (spec §4.C step 2: "cascade-reduce every stored
// packet that references j").
func (d *Decoder) solveChunk(idx uint, payload []byte) {
	if d.solved[idx] {
		if !bytes.Equal(d.solvedPayload[idx], payload) {
			d.integrityErr = &rvserr.IntegrityFailureError{ChunkIndex: uint32(idx)}
		}
		return
	}
	d.solved[idx] = true
	d.solvedPayload[idx] = payload

	queue := []uint{idx}
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		payloadJ := d.solvedPayload[j]

		kept := d.rows[:0]
		for _, r := range d.rows {
			if r.mask.Test(j) {
				xorInto(r.payload, payloadJ)
				r.mask.Clear(j)
				if r.mask.None() {
					continue
				}
				if r.mask.Count() == 1 {
					k, _ := r.mask.NextSet(0)
					if d.solved[k] {
						if !bytes.Equal(d.solvedPayload[k], r.payload) {
							d.integrityErr = &rvserr.IntegrityFailureError{ChunkIndex: uint32(k)}
						}
						continue
					}
					d.solved[k] = true
					d.solvedPayload[k] = r.payload
					queue = append(queue, k)
					continue
				}
			}
			kept = append(kept, r)
		}
		d.rows = kept
	}
}

// Finalize attempts full Gaussian elimination over whatever rows the peeling
// pass above left unsolved (spec §4.C step 4), then reports either the
// recovered chunk payloads in order or an IncompleteRecoveryError naming the
// chunks that remained unsolved.
func (d *Decoder) Finalize() ([][]byte, error) {
	if d.integrityErr != nil {
		return nil, d.integrityErr
	}

	d.gaussianEliminate()
	if d.integrityErr != nil {
		return nil, d.integrityErr
	}

	var missing []uint32
	out := make([][]byte, d.n)
	for i := 0; i < d.n; i++ {
		if !d.solved[i] {
			missing = append(missing, uint32(i))
			continue
		}
		out[i] = d.solvedPayload[i]
	}
	if len(missing) > 0 {
		return nil, rvserr.NewIncompleteRecovery(missing)
	}
	return out, nil
}

// gaussianEliminate reduces the stored rows to reduced row-echelon form,
// solving any chunk whose pivot row reduces to that single column; a pivot
// row that still names columns without a pivot of their own stays stored,
// unsolved. This is the fallback for
// streams where the cheap peeling pass in Add/solveChunk stalls (e.g. every
// systematic packet was lost and only higher-degree combinations survived).
func (d *Decoder) gaussianEliminate() {
	if len(d.rows) == 0 {
		return
	}
	pivot := make([]*row, d.n)
	rows := d.rows

	for c := 0; c < d.n; c++ {
		if d.solved[c] {
			continue
		}
		idx := -1
		for i, r := range rows {
			if r.mask.Test(uint(c)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		chosen := rows[idx]
		rows = append(rows[:idx], rows[idx+1:]...)
		pivot[c] = chosen

		for _, r := range rows {
			if r.mask.Test(uint(c)) {
				xorInto(r.payload, chosen.payload)
				r.mask.InPlaceSymmetricDifference(chosen.mask)
			}
		}
		for cc := 0; cc < c; cc++ {
			if pivot[cc] != nil && pivot[cc].mask.Test(uint(c)) {
				xorInto(pivot[cc].payload, chosen.payload)
				pivot[cc].mask.InPlaceSymmetricDifference(chosen.mask)
			}
		}
	}

	d.rows = rows
	for c := 0; c < d.n; c++ {
		if pivot[c] == nil {
			continue
		}
		if pivot[c].mask.Count() != 1 {
			d.rows = append(d.rows, pivot[c])
			continue
		}
		if d.solved[c] {
			if !bytes.Equal(d.solvedPayload[c], pivot[c].payload) {
				d.integrityErr = &rvserr.IntegrityFailureError{ChunkIndex: uint32(c)}
			}
			continue
		}
		d.solved[c] = true
		d.solvedPayload[c] = pivot[c].payload
	}
}
