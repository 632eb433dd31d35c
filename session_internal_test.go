package mcp

import "testing"

func TestClaimInitializeOnlyFirstCallerWins(t *testing.T) {
	s := &Session{}
	if !s.claimInitialize() {
		t.Fatal("first claimInitialize should succeed")
	}
	if s.claimInitialize() {
		t.Fatal("second claimInitialize should fail")
	}
}

func TestBroadcastListChangedCoalescesBeforeReady(t *testing.T) {
	server, _ := NewMemoryTransportPair()
	s := newSession(RoleServer, server)
	defer s.Close()

	s.broadcastListChanged(notifyToolsListChanged)
	s.broadcastListChanged(notifyResourcesChanged)

	s.listChangedMu.Lock()
	kinds := len(s.coalescedListKinds)
	s.listChangedMu.Unlock()
	if kinds != 2 {
		t.Fatalf("expected 2 coalesced kinds before Ready, got %d", kinds)
	}

	s.setState(StateReady)
	s.flushCoalescedListChanged()

	s.listChangedMu.Lock()
	defer s.listChangedMu.Unlock()
	if s.coalescedListKinds != nil {
		t.Errorf("expected coalesced kinds to be cleared after flush, got %v", s.coalescedListKinds)
	}
}

func TestCheckInboundRequestAllowedGatesByState(t *testing.T) {
	server, _ := NewMemoryTransportPair()
	s := newSession(RoleServer, server)
	defer s.Close()

	if err := s.checkInboundRequestAllowed(methodToolsList); err == nil {
		t.Error("tools/list should be rejected before the session is Ready")
	}
	if err := s.checkInboundRequestAllowed(methodInitialize); err != nil {
		t.Errorf("initialize should be legal in AwaitingInitialize, got %v", err)
	}

	s.setState(StateReady)
	if err := s.checkInboundRequestAllowed(methodToolsList); err != nil {
		t.Errorf("tools/list should be legal once Ready, got %v", err)
	}
}
