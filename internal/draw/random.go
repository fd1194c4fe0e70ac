package draw

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand"
	"sync"
)

// RandomSource fornece inteiros uniformes em [0, n).
// *rand.Rand já satisfaz a interface, mas não é seguro entre goroutines.
type RandomSource interface {
	Int63n(n int64) int64
}

// CryptoSource usa crypto/rand; seguro para uso concorrente
type CryptoSource struct{}

func (CryptoSource) Int63n(n int64) int64 {
	v, err := crand.Int(crand.Reader, big.NewInt(n))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return v.Int64()
}

// SeededSource é determinístico para uma seed, protegido por mutex
type SeededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{r: rand.New(rand.NewSource(seed))}
}

func (s *SeededSource) Int63n(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Int63n(n)
}
