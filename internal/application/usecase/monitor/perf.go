package monitor

import (
	"sort"
	"sync"
	"time"
)

const perfSampleSize = 100

// PerfReport 一个统计周期的检测耗时
type PerfReport struct {
	Count      int
	Period     time.Duration
	Throughput float64 // 次/秒
	Avg        time.Duration
	Median     time.Duration
	Min        time.Duration
	Max        time.Duration
}

// PerfStats 各 worker 共享的检测耗时统计
type PerfStats struct {
	mu    sync.Mutex
	every time.Duration

	start   time.Time
	count   int
	total   time.Duration
	min     time.Duration
	max     time.Duration
	samples []time.Duration // 最近 100 次，上报后不清空
}

func NewPerfStats(every time.Duration, now time.Time) *PerfStats {
	return &PerfStats{
		every:   every,
		start:   now,
		samples: make([]time.Duration, 0, perfSampleSize),
	}
}

// Record 记录一次耗时；到达上报周期时返回报告并清零计数
// 中位数用的最近 100 次样本跨周期保留
func (p *PerfStats) Record(elapsed time.Duration, now time.Time) (PerfReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == 0 || elapsed < p.min {
		p.min = elapsed
	}
	if elapsed > p.max {
		p.max = elapsed
	}
	p.count++
	p.total += elapsed
	if len(p.samples) == perfSampleSize {
		copy(p.samples, p.samples[1:])
		p.samples = p.samples[:perfSampleSize-1]
	}
	p.samples = append(p.samples, elapsed)

	period := now.Sub(p.start)
	if period < p.every {
		return PerfReport{}, false
	}

	sorted := append([]time.Duration(nil), p.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r := PerfReport{
		Count:  p.count,
		Period: period,
		Avg:    p.total / time.Duration(p.count),
		Median: sorted[len(sorted)/2],
		Min:    p.min,
		Max:    p.max,
	}
	if period > 0 {
		r.Throughput = float64(p.count) / period.Seconds()
	}

	p.start = now
	p.count = 0
	p.total = 0
	p.min = 0
	p.max = 0
	return r, true
}
