package mcp

import "sort"

// ProtocolVersion is one token from the closed set the protocol version
// registry recognizes, in "YYYY-MM-DD" form.
type ProtocolVersion string

// Known protocol versions, oldest first. Order matters: Negotiate relies
// on versionOrder to find "the highest supported version <= proposed".
const (
	ProtocolVersion20241105 ProtocolVersion = "2024-11-05"
	ProtocolVersion20250326 ProtocolVersion = "2025-03-26"
	ProtocolVersion20250618 ProtocolVersion = "2025-06-18"
	ProtocolVersion20251125 ProtocolVersion = "2025-11-25"
)

// versionOrder is the total order over the closed version set, oldest
// first. A version not present here is unknown to this build.
var versionOrder = []ProtocolVersion{
	ProtocolVersion20241105,
	ProtocolVersion20250326,
	ProtocolVersion20250618,
	ProtocolVersion20251125,
}

// versionFeatures describes the feature predicates carried by a protocol
// version, per spec.md §4.3.
type versionFeatures struct {
	OAuth                 bool
	Elicitation           bool
	Tasks                 bool
	ParallelTools         bool
	StreamableHTTP        bool
	Batching              bool
	ToolAnnotations       bool
	StructuredToolOutput  bool
	ResourceLinks         bool
	AgentLoops            bool
	SamplingTools         bool
	MetaField             bool
	CompletionContext     bool
	AudioContent          bool
	SSE                   bool
	VersionHeaderRequired bool
}

var featureTable = map[ProtocolVersion]versionFeatures{
	ProtocolVersion20241105: {
		Batching: true,
	},
	ProtocolVersion20250326: {
		OAuth:           true,
		ToolAnnotations: true,
		Batching:        true,
		SSE:             true,
	},
	ProtocolVersion20250618: {
		OAuth:                true,
		Elicitation:          true,
		ToolAnnotations:      true,
		StructuredToolOutput: true,
		ResourceLinks:        true,
		MetaField:            true,
		AudioContent:         true,
		SSE:                  true,
		StreamableHTTP:        true,
		VersionHeaderRequired: true,
		// Batching was dropped from the wire spec at this version; see
		// spec.md §9's note that outbound batching remains optional while
		// inbound batch parsing is always required for compatibility.
	},
	ProtocolVersion20251125: {
		OAuth:                 true,
		Elicitation:           true,
		Tasks:                 true,
		ParallelTools:         true,
		StreamableHTTP:        true,
		ToolAnnotations:       true,
		StructuredToolOutput:  true,
		ResourceLinks:         true,
		AgentLoops:            true,
		SamplingTools:         true,
		MetaField:             true,
		CompletionContext:     true,
		AudioContent:          true,
		SSE:                   true,
		VersionHeaderRequired: true,
	},
}

// IsKnown reports whether v is a member of the closed version set.
func (v ProtocolVersion) IsKnown() bool {
	_, ok := featureTable[v]
	return ok
}

// Features returns the feature predicates for v. The zero value is
// returned for an unknown version (all predicates false).
func (v ProtocolVersion) Features() versionFeatures {
	return featureTable[v]
}

// Supports is a convenience accessor that tests one feature predicate of v
// without the caller needing to know the featureTable shape.
func (v ProtocolVersion) Supports(predicate func(versionFeatures) bool) bool {
	return predicate(v.Features())
}

// Negotiate implements spec.md §4.3: given a client-proposed version and
// the locally supported set, returns the version to use, or a
// *HandshakeError naming a remediation suggestion (the oldest locally
// supported version — the closest reachable point to the peer's too-old
// proposal) if no compatible version exists.
//
// If proposed is directly supported, it wins. Otherwise the highest
// supported version that is <= proposed is used. If none is <= proposed
// (the peer is older than anything we support), negotiation fails.
func Negotiate(proposed ProtocolVersion, supported []ProtocolVersion) (ProtocolVersion, error) {
	set := make(map[ProtocolVersion]bool, len(supported))
	for _, v := range supported {
		set[v] = true
	}
	if set[proposed] {
		return proposed, nil
	}

	ordered := orderedSubset(supported)
	proposedIdx := indexInGlobalOrder(proposed)

	var best ProtocolVersion
	found := false
	for _, v := range ordered {
		idx := indexInGlobalOrder(v)
		if proposedIdx >= 0 && idx > proposedIdx {
			continue
		}
		if proposedIdx < 0 {
			// proposed is not even a known version; compare lexically
			// against the raw token so "2099-01-01"-style future dates
			// still resolve to "the highest we support".
			if string(v) > string(proposed) {
				continue
			}
		}
		if !found || idx > indexInGlobalOrder(best) {
			best = v
			found = true
		}
	}
	if found {
		return best, nil
	}

	suggestion := lowestOf(supported)
	return "", &HandshakeError{
		ClientVersion: string(proposed),
		ServerVersion: string(suggestion),
		Suggested:     string(suggestion),
	}
}

func indexInGlobalOrder(v ProtocolVersion) int {
	for i, g := range versionOrder {
		if g == v {
			return i
		}
	}
	return -1
}

func orderedSubset(supported []ProtocolVersion) []ProtocolVersion {
	out := make([]ProtocolVersion, len(supported))
	copy(out, supported)
	sort.Slice(out, func(i, j int) bool {
		return indexInGlobalOrder(out[i]) < indexInGlobalOrder(out[j])
	})
	return out
}

func highestOf(versions []ProtocolVersion) ProtocolVersion {
	ordered := orderedSubset(versions)
	if len(ordered) == 0 {
		return ""
	}
	return ordered[len(ordered)-1]
}

// lowestOf returns the oldest version in versions, used to suggest a
// remediation when a peer's proposal is older than everything we support:
// the oldest version we speak is the version closest to what they asked for.
func lowestOf(versions []ProtocolVersion) ProtocolVersion {
	ordered := orderedSubset(versions)
	if len(ordered) == 0 {
		return ""
	}
	return ordered[0]
}
