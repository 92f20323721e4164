package projection

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"fire/internal/cache"
	"fire/internal/core"
)

// Memo caches projection results by the identity of their inputs: the streams and roi.
// lastSaved and autoSave do not affect a projection and are left out of the key.
type Memo struct {
	cache cache.Cache[string, Result]
}

func NewMemo(c cache.Cache[string, Result]) *Memo {
	return &Memo{cache: c}
}

// Project returns the cached result for state or computes and stores it.
func (m *Memo) Project(state core.StoreState) Result {
	key := Fingerprint(state)
	if r, ok := m.cache.Get(key); ok {
		return r
	}
	r := Project(state)
	m.cache.Set(key, r)
	return r
}

// Fingerprint hashes the projection inputs of state.
func Fingerprint(state core.StoreState) string {
	h := sha256.New()
	var buf [8]byte
	putFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	putInt := func(i int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h.Write(buf[:])
	}

	putFloat(state.ROI)
	for _, s := range Streams(state) {
		putInt(s.Key)
		putInt(int64(len(s.Name)))
		h.Write([]byte(s.Name))
		putInt(int64(s.StartYear))
		putInt(int64(s.EndYear))
		putFloat(s.StartValue)
		putFloat(s.AnnualAddition)
		putFloat(s.AnnualAdditionIncrease)
	}
	return hex.EncodeToString(h.Sum(nil))
}
