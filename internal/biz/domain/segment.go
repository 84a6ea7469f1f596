package domain

import (
	"encoding/json"
	"fmt"
)

// SegmentTarget tags who a support-chain output segment is addressed to.
type SegmentTarget string

const (
	SegmentClient SegmentTarget = "client"
	SegmentAgent  SegmentTarget = "agent"
)

// Segment is one ordered output of the support conversation chain: either a
// reply for the end user or an escalation note for a human agent.
type Segment struct {
	Target SegmentTarget
	Text   string
}

// Wire keys the engine is instructed to emit.
const (
	segmentKeyClient = "Cliente"
	segmentKeyAgent  = "Agente"
)

// DecodeSegments parses the engine's reply, a JSON array of single-key
// objects, into an ordered segment list. Unrecognized keys and objects with
// more than one key are rejected rather than silently dropped.
func DecodeSegments(raw []byte) ([]Segment, error) {
	var items []map[string]string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}

	segments := make([]Segment, 0, len(items))
	for i, item := range items {
		if len(item) != 1 {
			return nil, fmt.Errorf("decode segments: item %d has %d keys, want 1", i, len(item))
		}
		for key, text := range item {
			switch key {
			case segmentKeyClient:
				segments = append(segments, Segment{Target: SegmentClient, Text: text})
			case segmentKeyAgent:
				segments = append(segments, Segment{Target: SegmentAgent, Text: text})
			default:
				return nil, fmt.Errorf("decode segments: unrecognized key %q", key)
			}
		}
	}
	return segments, nil
}
