package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

type ratio struct{ num, den int }

// ratioSampler lets num out of every den events through.
// A disabled sampler (nil ratio) lets everything through.
type ratioSampler struct {
	ratio atomic.Pointer[ratio]
	seen  atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

func (s *ratioSampler) Set(num, den int) {
	s.seen.Store(0)
	if num <= 0 || den <= 0 {
		s.ratio.Store(nil)
		return
	}
	s.ratio.Store(&ratio{num: min(num, den), den: den})
}

func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == nil {
		return true
	}
	n := s.seen.Add(1) - 1
	return int(n%uint64(r.den)) < r.num
}

// parseRatioSpec reads "num/den" or "den" (meaning 1/den). Zero or garbage yields 0, 0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if numStr, denStr, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(numStr))
		den, err2 := strconv.Atoi(strings.TrimSpace(denStr))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	den, err := strconv.Atoi(spec)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
