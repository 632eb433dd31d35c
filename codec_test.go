package mcp

import (
	"encoding/json"
	"testing"
)

func TestDecodeEncodeRequestRoundTrip(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":7,"method":"tools/list","params":{"cursor":"abc"}}`)
	frame, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Request == nil {
		t.Fatalf("expected a Request frame, got %+v", frame)
	}
	if frame.Request.Method != "tools/list" {
		t.Errorf("Method = %q, want tools/list", frame.Request.Method)
	}
	if v, ok := frame.Request.ID.Value.(int64); !ok || v != 7 {
		t.Errorf("ID = %#v, want int64(7)", frame.Request.ID.Value)
	}

	out, err := Encode(frame.Request)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	roundTripped, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode(Encode(...)): %v", err)
	}
	if roundTripped.Request.Method != frame.Request.Method {
		t.Errorf("round trip method mismatch: %q vs %q", roundTripped.Request.Method, frame.Request.Method)
	}
}

func TestDecodeNotificationHasNoID(t *testing.T) {
	frame, err := Decode([]byte(`{"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t1","progress":0.5}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Notification == nil {
		t.Fatalf("expected a Notification frame, got %+v", frame)
	}
}

func TestDecodeResponseRejectsBothResultAndError(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":-32600,"message":"x"}}`))
	if err == nil {
		t.Fatal("expected an error for a response carrying both result and error")
	}
}

func TestDecodeRejectsFractionalID(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0","id":1.5,"method":"ping"}`))
	if err == nil {
		t.Fatal("expected an error for a fractional request id")
	}
}

func TestDecodeRejectsMissingJSONRPCVersion(t *testing.T) {
	_, err := Decode([]byte(`{"id":1,"method":"ping"}`))
	if err == nil {
		t.Fatal("expected an error for a missing jsonrpc field")
	}
}

func TestDecodeBatch(t *testing.T) {
	frame, err := Decode([]byte(`[{"jsonrpc":"2.0","id":1,"method":"ping"},{"jsonrpc":"2.0","method":"notifications/progress","params":{}}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !frame.IsBatch() || len(frame.Batch) != 2 {
		t.Fatalf("expected a 2-element batch, got %+v", frame)
	}
	if frame.Batch[0].Request == nil || frame.Batch[1].Notification == nil {
		t.Errorf("batch element kinds mismatched: %+v", frame.Batch)
	}
}

func TestDecodeEmptyBatchRejected(t *testing.T) {
	_, err := Decode([]byte(`[]`))
	if err == nil {
		t.Fatal("expected an error for an empty batch")
	}
}

func TestRequestIDEqualByVariantAndValue(t *testing.T) {
	a := RequestID{Value: int64(1)}
	b := RequestID{Value: int64(1)}
	c := RequestID{Value: "1"}
	if !a.Equal(b) {
		t.Error("expected int64(1) == int64(1)")
	}
	if a.Equal(c) {
		t.Error("expected int64(1) != string(\"1\")")
	}
}

func TestEncodeUnsupportedTypeFails(t *testing.T) {
	if _, err := Encode(42); err == nil {
		t.Fatal("expected Encode to reject a non-frame value")
	}
}

func TestResponseErrorMarshalsWithoutData(t *testing.T) {
	resp := Response{JSONRPC: jsonrpcVersion, ID: RequestID{Value: int64(1)}, Error: &ErrorObject{Code: ErrCodeMethodNotFound, Message: "nope"}}
	b, err := Encode(resp)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded struct {
		Error map[string]json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.Error["data"]; ok {
		t.Error("expected error.data to be omitted when empty")
	}
}
