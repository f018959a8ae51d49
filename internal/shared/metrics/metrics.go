package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	uploadsTotal              atomic.Uint64
	extractionSubmitsTotal    atomic.Uint64
	extractionsCompletedTotal atomic.Uint64
	metadataPersistFailures   atomic.Uint64
	exportsTotal              atomic.Uint64

	heraldDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncUpload increments the upload counter.
func IncUpload() {
	uploadsTotal.Add(1)
}

// IncExtractionSubmit increments the extraction submission counter.
func IncExtractionSubmit() {
	extractionSubmitsTotal.Add(1)
}

// IncExtractionCompleted increments the completed extraction counter.
func IncExtractionCompleted() {
	extractionsCompletedTotal.Add(1)
}

// IncMetadataPersistFailure counts advisory persistence failures. These never
// fail the request; the counter is the only surface where they show up
// besides the log line.
func IncMetadataPersistFailure() {
	metadataPersistFailures.Add(1)
}

// IncExport increments the export counter.
func IncExport() {
	exportsTotal.Add(1)
}

// ObserveHeraldDurationMs records an upstream Herald call duration in milliseconds.
func ObserveHeraldDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	heraldDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "uploads_total", "Total PDF uploads accepted", uploadsTotal.Load())
	writeCounter(&buf, "extraction_submits_total", "Total extractions submitted", extractionSubmitsTotal.Load())
	writeCounter(&buf, "extractions_completed_total", "Total extractions observed complete", extractionsCompletedTotal.Load())
	writeCounter(&buf, "metadata_persist_failures_total", "Total advisory metadata persistence failures", metadataPersistFailures.Load())
	writeCounter(&buf, "exports_total", "Total spreadsheet exports", exportsTotal.Load())
	writeHistogram(&buf, "herald_request_duration_ms", "Herald API call duration in milliseconds", heraldDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
