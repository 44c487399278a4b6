// enrichment_store.go provides thread-safe storage for per-run enrichment data
// that correlates hooks with RunWrapper errors.

package agentssdk

import (
	"encoding/json"
	"sync"
)

// Enrichment contains per-run context captured from hooks.
// It is reported in the user_data of entries recorded for the run.
type Enrichment struct {
	// AgentName is the name of the agent that was running.
	AgentName string

	// Model is the LLM model being used.
	Model string

	// ToolName is the name of the tool being called.
	ToolName string

	// ToolCallID is the unique ID of the tool call.
	ToolCallID string

	// ToolArgs holds the raw arguments of the tool call.
	ToolArgs json.RawMessage

	// Operation indicates what type of operation was in progress (tool, llm, handoff).
	Operation string

	// OperationID is an identifier for the specific operation.
	OperationID string

	history operationHistoryBuffer
}

// RecordOperation appends an operation to the run's history.
func (e *Enrichment) RecordOperation(record OperationRecord) {
	e.history.Add(record)
}

// GetOperationHistory returns the run's recent operations, oldest first.
func (e *Enrichment) GetOperationHistory() []OperationRecord {
	return e.history.GetAll()
}

// UserData returns the enrichment as entry user_data. Empty fields are omitted.
// Tool arguments are kept as JSON so scrubbing can see their keys.
func (e *Enrichment) UserData() map[string]any {
	data := make(map[string]any)
	for key, value := range map[string]string{
		"agent_name":   e.AgentName,
		"model":        e.Model,
		"tool_name":    e.ToolName,
		"tool_call_id": e.ToolCallID,
		"operation":    e.Operation,
		"operation_id": e.OperationID,
	} {
		if value != "" {
			data[key] = value
		}
	}

	if len(e.ToolArgs) > 0 {
		if json.Valid(e.ToolArgs) {
			data["tool_args"] = e.ToolArgs
		} else {
			data["tool_args"] = string(e.ToolArgs)
		}
	}

	if history := e.GetOperationHistory(); len(history) > 0 {
		data["operation_history"] = history
	}
	return data
}

// EnrichmentStore provides thread-safe storage for per-run enrichment data.
// Implementations must be safe for concurrent use.
type EnrichmentStore interface {
	// Update applies fn to the enrichment for runID, creating it if needed.
	// IMPORTANT: fn is called while holding the lock. fn MUST be fast and
	// MUST NOT call other EnrichmentStore methods (deadlock risk).
	Update(runID string, fn func(e *Enrichment))

	// Get returns a copy of the enrichment for runID.
	// Returns zero value and false if not found.
	Get(runID string) (Enrichment, bool)

	// Delete removes the enrichment for runID.
	Delete(runID string)
}

// inMemoryEnrichmentStore is the default EnrichmentStore implementation.
type inMemoryEnrichmentStore struct {
	mu   sync.RWMutex
	data map[string]*Enrichment
}

// NewEnrichmentStore creates a new in-memory enrichment store.
func NewEnrichmentStore() EnrichmentStore {
	return &inMemoryEnrichmentStore{
		data: make(map[string]*Enrichment),
	}
}

// Update applies fn to the enrichment for runID, creating it if needed.
func (s *inMemoryEnrichmentStore) Update(runID string, fn func(e *Enrichment)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[runID]
	if !ok {
		e = &Enrichment{}
		s.data[runID] = e
	}
	fn(e) // Called under lock - must be fast!
}

// Get returns a copy of the enrichment for runID.
func (s *inMemoryEnrichmentStore) Get(runID string) (Enrichment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[runID]
	if !ok {
		return Enrichment{}, false
	}
	c := *e
	c.history = e.history.clone()
	return c, true
}

// Delete removes the enrichment for runID.
func (s *inMemoryEnrichmentStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
}
