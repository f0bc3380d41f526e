package logger

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler passes num of every den events. den == 0 passes everything.
type sampler struct {
	num, den uint64
	seen     atomic.Uint64
}

func newSampler(num, den int) *sampler {
	if num <= 0 || den <= 0 {
		return &sampler{}
	}
	return &sampler{num: uint64(min(num, den)), den: uint64(den)}
}

func (s *sampler) Allow() bool {
	if s.den == 0 {
		return true
	}
	return (s.seen.Add(1)-1)%s.den < s.num
}

// parseRatio reads "n/d", or a bare "d" meaning 1/d.
func parseRatio(raw string) (num, den int, ok bool) {
	a, b, found := strings.Cut(strings.TrimSpace(raw), "/")
	if !found {
		a, b = "1", a
	}
	num, err1 := strconv.Atoi(strings.TrimSpace(a))
	den, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil || num < 0 || den < 0 {
		return 0, 0, false
	}
	return num, den, true
}

var (
	debugSampler atomic.Pointer[sampler]
	traceAll     atomic.Bool
)

func init() {
	debugSampler.Store(newSampler(1, 50))
}

// ShouldSampleDebug reports whether the next high-volume debug event should
// be logged. TRACE or LOG_TRACE set to a true value logs all of them.
func ShouldSampleDebug() bool {
	return traceAll.Load() || debugSampler.Load().Allow()
}

func traceFromEnv() bool {
	for _, key := range []string{"TRACE", "LOG_TRACE"} {
		if v, err := strconv.ParseBool(os.Getenv(key)); err == nil && v {
			return true
		}
	}
	return false
}
