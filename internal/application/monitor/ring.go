package monitor

import (
	"time"

	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

// metricRing is a fixed-capacity ring buffer of metric points. The monitor
// keeps one per (tenant, channel, metric type) so dashboard reads never hit
// the database; once full, each write overwrites the oldest point. Callers
// synchronize access.
type metricRing struct {
	points []syncdomain.MetricPoint
	head   int
	size   int
}

func newMetricRing(capacity int) *metricRing {
	return &metricRing{points: make([]syncdomain.MetricPoint, capacity)}
}

// add appends a point, overwriting the oldest when full
func (r *metricRing) add(point syncdomain.MetricPoint) {
	r.points[r.head] = point
	r.head = (r.head + 1) % len(r.points)
	if r.size < len(r.points) {
		r.size++
	}
}

// window returns the points recorded at or after since, oldest first
func (r *metricRing) window(since time.Time) []syncdomain.MetricPoint {
	out := make([]syncdomain.MetricPoint, 0, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.points)
	}
	for i := 0; i < r.size; i++ {
		p := r.points[(start+i)%len(r.points)]
		if !p.RecordedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out
}

// last returns the most recent point, or false when empty
func (r *metricRing) last() (syncdomain.MetricPoint, bool) {
	if r.size == 0 {
		return syncdomain.MetricPoint{}, false
	}
	idx := r.head - 1
	if idx < 0 {
		idx += len(r.points)
	}
	return r.points[idx], true
}

// stats computes count, mean and failure share over the window
type windowStats struct {
	// Count is the number of points in the window
	Count int
	// Mean is the arithmetic mean of the values
	Mean float64
	// ZeroShare is the fraction of points with value zero
	ZeroShare float64
}

func computeStats(points []syncdomain.MetricPoint) windowStats {
	if len(points) == 0 {
		return windowStats{}
	}
	var sum float64
	zeros := 0
	for _, p := range points {
		sum += p.Value
		if p.Value == 0 {
			zeros++
		}
	}
	return windowStats{
		Count:     len(points),
		Mean:      sum / float64(len(points)),
		ZeroShare: float64(zeros) / float64(len(points)),
	}
}
