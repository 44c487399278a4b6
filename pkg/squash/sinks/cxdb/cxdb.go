// Package cxdb provides a sink that persists Squash entries to cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/squash-observe/pkg/squash"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	orphanLabels []string
	clientTag    string
}

// WithOrphanLabels sets labels for contexts created for entries without a context ID.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

// cxdbSink writes entries to cxdb as SystemMessage items.
type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
}

// NewCXDBSink creates a sink that writes to cxdb.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) squash.Sink {
	cfg := &cxdbSinkConfig{
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "squash",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSink{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
	}
}

// Write appends the entry to its cxdb context, creating an orphan context
// when the entry has none.
func (s *cxdbSink) Write(ctx context.Context, entry squash.Entry) error {
	isOrphan := entry.ContextID == nil

	content, err := buildEntryDocument(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	payload, err := cxdbclient.EncodeMsgpack(s.buildConversationItem(entry, content, isOrphan))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	// Orphan contexts are created only once the turn is ready to append.
	var contextID uint64
	if isOrphan {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
	} else {
		contextID = *entry.ContextID
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: entry.EventID,
	}

	if _, err := s.client.AppendTurn(ctx, req); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	return nil
}

// buildConversationItem wraps the encoded entry in a canonical ConversationItem.
func (s *cxdbSink) buildConversationItem(entry squash.Entry, content string, isOrphan bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: entry.OccurredAt.UnixMilli(),
		ID:        entry.EventID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   entryTitle(entry),
			Content: content,
		},
	}

	// cxdb expects context metadata on the first turn of a context.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}

	return item
}

// entryTitle renders "class_name: message", using "log" when the entry
// reports no error, truncated to 100 characters.
func entryTitle(entry squash.Entry) string {
	title := entry.ClassName
	if title == "" {
		title = "log"
	}
	if entry.Message != "" {
		const maxMsgLen = 80
		msg := entry.Message
		if len(msg) > maxMsgLen {
			msg = runePrefix(msg, maxMsgLen) + "..."
		}
		title += ": " + msg
	}

	if len(title) > 100 {
		title = runePrefix(title, 97) + "..."
	}
	return title
}

// runePrefix returns s cut to at most n bytes without splitting a rune.
// n must be less than len(s).
func runePrefix(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// entryDocument is the SystemMessage content: the Squash entry plus the
// delivery fields that are not part of the Squash wire format.
type entryDocument struct {
	EventID     string       `json:"event_id"`
	Fingerprint string       `json:"fingerprint"`
	ContextID   *uint64      `json:"context_id,omitempty"`
	Endpoint    string       `json:"endpoint,omitempty"`
	Entry       squash.Entry `json:"entry"`
}

func buildEntryDocument(entry squash.Entry) (string, error) {
	encoded, err := json.Marshal(entryDocument{
		EventID:     entry.EventID,
		Fingerprint: entry.Fingerprint,
		ContextID:   entry.ContextID,
		Endpoint:    entry.Endpoint,
		Entry:       entry,
	})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Flush is a no-op for the cxdb sink (writes are synchronous).
func (s *cxdbSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the cxdb sink.
func (s *cxdbSink) Close() error {
	return nil
}
