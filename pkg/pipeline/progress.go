package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// Reporter receives progress milestones during a generation run.
// Implementations must tolerate repeated or equal percent values; the
// pipeline guarantees the sequence is non-decreasing and ends at 100 on
// success.
type Reporter interface {
	Report(percent int, stage string)
}

// Fixed milestones emitted by the runner.
const (
	progressFetchStart      = 5
	progressParseComplete   = 30
	progressConvertComplete = 70
	progressPackageComplete = 100
)

// JSONReporter writes one JSON object per milestone, newline-terminated, for
// consumption by a wrapping UI process.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter returns a JSONReporter writing to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// Report writes {"progress":N,"text":"..."} followed by a newline. Write
// errors are swallowed: progress is advisory and must never fail the run.
func (r *JSONReporter) Report(percent int, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(struct {
		Progress int    `json:"progress"`
		Text     string `json:"text"`
	}{Progress: percent, Text: stage})
}

// LogReporter emits milestones through the structured logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (r *LogReporter) Report(percent int, stage string) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("generation progress", "percent", percent, "stage", stage)
}

// nopReporter is used when the caller supplies no Reporter.
type nopReporter struct{}

func (nopReporter) Report(int, string) {}
