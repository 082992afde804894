package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holon-run/prgen/pkg/workflow"
)

const tuiTraceEnvKey = "PRGEN_TUI_TRACE_FILE"

// tuiDebugTracer appends one JSON line per state transition
type tuiDebugTracer struct {
	mu       sync.Mutex
	file     io.WriteCloser
	enc      *json.Encoder
	reported bool
	seq      atomic.Uint64
}

func newTUIDebugTracerFromEnv() *tuiDebugTracer {
	path := strings.TrimSpace(os.Getenv(tuiTraceEnvKey))
	if path == "" {
		return &tuiDebugTracer{}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prgen tui: failed to open debug trace file %s: %v\n", path, err)
		return &tuiDebugTracer{}
	}
	return newTUIDebugTracer(f)
}

func newTUIDebugTracer(w io.WriteCloser) *tuiDebugTracer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &tuiDebugTracer{file: w, enc: enc}
}

func (t *tuiDebugTracer) enabled() bool {
	return t != nil && t.enc != nil
}

func (t *tuiDebugTracer) trace(kind string, fields map[string]interface{}) {
	if !t.enabled() {
		return
	}

	entry := make(map[string]interface{}, len(fields)+4)
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["component"] = "tui"
	entry["kind"] = strings.TrimSpace(kind)
	entry["seq"] = t.seq.Add(1)
	for k, v := range fields {
		entry[k] = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc == nil {
		return
	}
	if err := t.enc.Encode(entry); err != nil && !t.reported {
		t.reported = true
		fmt.Fprintf(os.Stderr, "prgen tui: failed to write debug trace: %v\n", err)
	}
}

func (t *tuiDebugTracer) close() error {
	if t == nil || t.file == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("failed to close tui debug trace file: %w", err)
	}
	t.file = nil
	t.enc = nil
	return nil
}

func traceFieldsFromState(st workflow.State) map[string]interface{} {
	fields := map[string]interface{}{
		"phase":   string(st.Phase()),
		"outcome": string(st.LastOutcome.Kind),
	}
	if st.Operation != workflow.OpNone {
		fields["operation"] = string(st.Operation)
	}
	if st.Repository != nil {
		fields["repository"] = st.Repository.FullName
	}
	if st.BaseBranch != "" {
		fields["base"] = st.BaseBranch
	}
	if st.HeadBranch != "" {
		fields["head"] = st.HeadBranch
	}
	if len(st.Commits) > 0 {
		fields["commits"] = len(st.Commits)
	}
	if st.LastOutcome.Scope != "" {
		fields["scope"] = string(st.LastOutcome.Scope)
	}
	if st.LastOutcome.Kind == workflow.OutcomeError {
		fields["message"] = st.LastOutcome.Message
	}
	return fields
}
