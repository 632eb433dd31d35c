package mcp

import "testing"

func TestNegotiateExactMatch(t *testing.T) {
	got, err := Negotiate(ProtocolVersion20250618, versionOrder)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got != ProtocolVersion20250618 {
		t.Errorf("got %q, want exact match", got)
	}
}

func TestNegotiatePicksHighestSupportedBelowProposed(t *testing.T) {
	supported := []ProtocolVersion{ProtocolVersion20241105, ProtocolVersion20250326}
	got, err := Negotiate(ProtocolVersion20250618, supported)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got != ProtocolVersion20250326 {
		t.Errorf("got %q, want %q", got, ProtocolVersion20250326)
	}
}

func TestNegotiateUnknownFutureVersionPicksHighestSupported(t *testing.T) {
	got, err := Negotiate(ProtocolVersion("2099-01-01"), versionOrder)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if got != ProtocolVersion20251125 {
		t.Errorf("got %q, want highest known version", got)
	}
}

func TestNegotiateFailsWhenProposedOlderThanEverythingSupported(t *testing.T) {
	supported := []ProtocolVersion{ProtocolVersion20250618, ProtocolVersion20251125}
	_, err := Negotiate(ProtocolVersion20241105, supported)
	if err == nil {
		t.Fatal("expected a HandshakeError")
	}
	hsErr, ok := err.(*HandshakeError)
	if !ok {
		t.Fatalf("expected *HandshakeError, got %T", err)
	}
	if hsErr.Suggested != string(ProtocolVersion20250618) {
		t.Errorf("Suggested = %q, want %q (lowest of the supported set)", hsErr.Suggested, ProtocolVersion20250618)
	}
}

func TestFeaturesGateByVersion(t *testing.T) {
	if ProtocolVersion20241105.Features().Elicitation {
		t.Error("elicitation should not be a 2024-11-05 feature")
	}
	if !ProtocolVersion20250618.Features().Elicitation {
		t.Error("elicitation should be a 2025-06-18 feature")
	}
	if !ProtocolVersion20251125.Features().Tasks {
		t.Error("tasks should be a 2025-11-25 feature")
	}
}

func TestUnknownVersionHasNoFeatures(t *testing.T) {
	if ProtocolVersion("bogus").IsKnown() {
		t.Error("bogus should not be a known version")
	}
	f := ProtocolVersion("bogus").Features()
	if f.OAuth || f.Tasks || f.Batching {
		t.Errorf("expected zero-value features for an unknown version, got %+v", f)
	}
}
