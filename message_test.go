package replcraft

import (
	"encoding/json"
	"testing"
)

func TestParseEnvelope_Response(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"id":"7","ok":true,"block":"minecraft:stone"}`))
	if err != nil {
		t.Fatalf("parseEnvelope() error: %v", err)
	}
	if env.ID != "7" {
		t.Errorf("ID = %q, want %q", env.ID, "7")
	}
	if env.OK == nil || !*env.OK {
		t.Error("OK should be true")
	}
	if env.Type != "" {
		t.Errorf("Type = %q, want empty", env.Type)
	}
}

func TestParseEnvelope_Failure(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"id":"3","ok":false,"error":"out of fuel","message":"no fuel"}`))
	if err != nil {
		t.Fatalf("parseEnvelope() error: %v", err)
	}
	if *env.OK {
		t.Error("OK should be false")
	}
	if ErrorKind(env.Error) != KindOutOfFuel {
		t.Errorf("Error = %q", env.Error)
	}
	if env.Message != "no fuel" {
		t.Errorf("Message = %q", env.Message)
	}
}

func TestParseEnvelope_NumericID(t *testing.T) {
	// Context lifecycle pushes reuse the id key for the numeric context id.
	env, err := parseEnvelope([]byte(`{"type":"contextOpened","id":5,"cause":"itemInteractBlock"}`))
	if err != nil {
		t.Fatalf("parseEnvelope() error: %v", err)
	}
	if env.ID != "5" {
		t.Errorf("ID = %q, want %q", env.ID, "5")
	}
	if env.OK != nil {
		t.Error("a push frame has no OK field")
	}
	if env.Type != pushContextOpened {
		t.Errorf("Type = %q", env.Type)
	}
}

func TestParseEnvelope_Invalid(t *testing.T) {
	if _, err := parseEnvelope([]byte(`not json`)); err == nil {
		t.Fatal("parseEnvelope() should error on invalid JSON")
	}
}

func TestMarshalRequest(t *testing.T) {
	args := map[string]any{"action": "get_block", "x": 1, "y": 2, "z": 3}

	data, err := marshalRequest(args, "9", 5)
	if err != nil {
		t.Fatalf("marshalRequest() error: %v", err)
	}

	var frame map[string]any
	json.Unmarshal(data, &frame)
	if frame["id"] != "9" {
		t.Errorf("id = %v, want %q", frame["id"], "9")
	}
	if frame["contextId"] != float64(5) {
		t.Errorf("contextId = %v, want 5", frame["contextId"])
	}
	if frame["action"] != "get_block" || frame["x"] != float64(1) {
		t.Errorf("frame = %v", frame)
	}

	// The caller's map stays untouched.
	if _, ok := args["id"]; ok {
		t.Error("marshalRequest must not mutate the caller's arguments")
	}
}

func TestMarshalRequest_NoContext(t *testing.T) {
	data, err := marshalRequest(map[string]any{"action": "heartbeat"}, "0", -1)
	if err != nil {
		t.Fatalf("marshalRequest() error: %v", err)
	}

	var frame map[string]any
	json.Unmarshal(data, &frame)
	if _, ok := frame["contextId"]; ok {
		t.Error("client-level requests must not carry contextId")
	}
}

func TestFormatID(t *testing.T) {
	if formatID(0) != "0" || formatID(42) != "42" {
		t.Error("formatID should render the counter in decimal")
	}
}
