package subsample

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	farm "github.com/dgryski/go-farm"
)

// NewSeed returns a fresh nonzero seed for a run.  Zero is reserved so
// that Opts.Seed == 0 can mean "generate one for me".
func NewSeed() int64 {
	for {
		if s := rand.Int64(); s != 0 {
			return s
		}
	}
}

// streamKey derives the 128-bit PCG key of the random stream belonging to a
// (seed, proportion, replication) task.  Each task owns a distinct stream, so
// adding proportions or replications to a run never perturbs the matrices
// already drawn under the same seed.
func streamKey(seed int64, proportion float64, replication int) (hi, lo uint64) {
	var buf [20]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(proportion))
	binary.LittleEndian.PutUint32(buf[16:], uint32(replication))
	lo = farm.Hash64WithSeed(buf[:], uint64(seed))
	hi = farm.Hash64WithSeed(buf[:], lo)
	return hi, lo
}

// streamSource returns the seeded generator for one task.
func streamSource(seed int64, proportion float64, replication int) *rand.PCG {
	hi, lo := streamKey(seed, proportion, replication)
	return rand.NewPCG(hi, lo)
}
