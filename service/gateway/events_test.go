package gateway

import (
	"encoding/json"
	"testing"

	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"room:join","data":{"roomType":"training","roomId":"s1"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Event != EvtRoomJoin {
		t.Errorf("event = %s", f.Event)
	}
	p, err := decode.DecodeMap[RoomJoinPayload](f.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.RoomType != ChannelTraining || p.RoomID != "s1" {
		t.Errorf("payload = %+v", p)
	}
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	if _, err := ParseFrame([]byte("not json")); err == nil {
		t.Error("garbage must not parse")
	}
	if _, err := ParseFrame([]byte(`{"data":{}}`)); err == nil {
		t.Error("missing event name must not parse")
	}
}

func TestEncodeFrame(t *testing.T) {
	raw := EncodeFrame(EvtPong, nil)
	if raw == nil {
		t.Fatal("encode returned nil")
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if f.Event != EvtPong || f.Data != nil {
		t.Errorf("frame = %+v", f)
	}
}

func TestDecodeEditPayload(t *testing.T) {
	// Data arrives from encoding/json, so numbers are float64.
	f, err := ParseFrame([]byte(`{"event":"collaboration:edit","data":{"documentId":"d1","version":7,"changes":[{"op":"insert","at":3}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	p, err := decode.DecodeMap[EditPayload](f.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.DocumentID != "d1" || p.Version != 7 || len(p.Changes) != 1 {
		t.Errorf("payload = %+v", p)
	}
}
