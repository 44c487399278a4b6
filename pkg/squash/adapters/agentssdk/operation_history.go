// operation_history.go keeps a bounded history of the LLM and tool calls made
// during a run. The history is reported in an entry's user_data.

package agentssdk

import (
	"time"

	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
)

// maxOperationHistory is the number of operations kept per run.
const maxOperationHistory = 20

// OperationRecord captures a single LLM or tool call.
// Prompt and tool output text are never stored, only their shape.
type OperationRecord struct {
	Kind       string    `json:"kind"` // "llm" or "tool"
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	AgentName  string    `json:"agent_name,omitempty"`
	Done       bool      `json:"done"`

	// LLM calls
	Model         string   `json:"model,omitempty"`
	FinishReason  string   `json:"finish_reason,omitempty"`
	ToolCallNames []string `json:"tool_call_names,omitempty"`

	// Tool calls
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	InputSize  int    `json:"input_size,omitempty"`
	OutputSize int    `json:"output_size,omitempty"`
}

func newLLMRecord(agentName string, req llmsdk.Request) OperationRecord {
	return OperationRecord{
		Kind:      "llm",
		Timestamp: time.Now(),
		AgentName: agentName,
		Model:     req.Model,
	}
}

func newToolRecord(agentName, toolName string, call llmsdk.ToolCall) OperationRecord {
	return OperationRecord{
		Kind:       "tool",
		Timestamp:  time.Now(),
		AgentName:  agentName,
		ToolName:   toolName,
		ToolCallID: call.ID,
		InputSize:  len(call.Arguments),
	}
}

// completeLLM records the response shape on an LLM record.
func (r *OperationRecord) completeLLM(resp llmsdk.Response) {
	r.finish()
	r.FinishReason = string(resp.FinishReason)
	if len(resp.ToolCalls) > 0 {
		names := make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			names[i] = tc.Name
		}
		r.ToolCallNames = names
	}
}

// completeTool records the output size on a tool record.
func (r *OperationRecord) completeTool(output string) {
	r.finish()
	r.OutputSize = len(output)
}

func (r *OperationRecord) finish() {
	r.Done = true
	r.DurationMs = time.Since(r.Timestamp).Milliseconds()
}

// operationHistoryBuffer is a bounded ring buffer of operation records.
type operationHistoryBuffer struct {
	records  []OperationRecord
	maxSize  int
	writeIdx int
}

// Add appends a record, evicting the oldest if the buffer is full.
func (b *operationHistoryBuffer) Add(record OperationRecord) {
	if b.maxSize <= 0 {
		b.maxSize = maxOperationHistory
	}
	if len(b.records) < b.maxSize {
		b.records = append(b.records, record)
		return
	}
	b.records[b.writeIdx] = record
	b.writeIdx = (b.writeIdx + 1) % b.maxSize
}

// GetAll returns a copy of the records in chronological order (oldest first).
func (b *operationHistoryBuffer) GetAll() []OperationRecord {
	result := make([]OperationRecord, len(b.records))
	if len(b.records) < b.maxSize {
		copy(result, b.records)
		return result
	}

	// writeIdx points to the oldest record once the buffer is full
	copy(result, b.records[b.writeIdx:])
	copy(result[len(b.records)-b.writeIdx:], b.records[:b.writeIdx])
	return result
}

// UpdateLast applies fn to the most recent record of the given kind.
// It reports whether such a record was found.
func (b *operationHistoryBuffer) UpdateLast(kind string, fn func(*OperationRecord)) bool {
	n := len(b.records)
	for i := 0; i < n; i++ {
		idx := n - 1 - i
		if n == b.maxSize {
			idx = (b.writeIdx - 1 - i + 2*b.maxSize) % b.maxSize
		}
		if b.records[idx].Kind == kind {
			fn(&b.records[idx])
			return true
		}
	}
	return false
}

// clone returns a buffer that shares no records with b.
func (b operationHistoryBuffer) clone() operationHistoryBuffer {
	b.records = append([]OperationRecord(nil), b.records...)
	return b
}
