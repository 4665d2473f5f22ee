package main

import (
	"strings"
	"testing"
)

func TestUnmarshalEvent_AllTypes(t *testing.T) {
	cases := []struct {
		line string
		want Event
	}{
		{`{"type":"wheel","data":{"delta_y":120}}`, Wheel{DeltaY: 120}},
		{`{"type":"touch_start","data":{"client_y":300}}`, TouchStart{ClientY: 300}},
		{`{"type":"touch_move","data":{"client_y":280.5}}`, TouchMove{ClientY: 280.5}},
		{`{"type":"retarget","data":{"index":2}}`, Retarget{Index: 2}},
		{`{"type":"select_point_of_interest","data":{"id":"skills"}}`, SelectPointOfInterest{ID: "skills"}},
		{`{"type":"set_muted","data":{"muted":false}}`, SetMuted{Muted: false}},
		{`{"type":"return_to_idle"}`, ReturnToIdle{}},
	}
	for _, tc := range cases {
		got, err := UnmarshalEvent([]byte(tc.line))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.line, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestUnmarshalEvent_Errors(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{`not json`, "unmarshal envelope"},
		{`{"type":"fly"}`, "unknown event type"},
		{`{"type":"wheel"}`, "missing data"},
		{`{"type":"retarget","data":{"index":"two"}}`, "unmarshal retarget"},
		{`{"type":"select_point_of_interest","data":{"id":""}}`, "id must not be empty"},
		{`{"type":"request_state_snapshot","data":{}}`, "unknown event type"},
	}
	for _, tc := range cases {
		_, err := UnmarshalEvent([]byte(tc.line))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.line, tc.want, err)
		}
	}
}

func TestMarshalEvent_Envelope(t *testing.T) {
	b, err := MarshalEvent(Wheel{DeltaY: -40})
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	if string(b) != `{"type":"wheel","data":{"delta_y":-40}}` {
		t.Fatalf("unexpected wire form %s", b)
	}

	b, err = MarshalEvent(ReturnToIdle{})
	if err != nil || string(b) != `{"type":"return_to_idle"}` {
		t.Fatalf("unexpected return_to_idle form %s (err=%v)", b, err)
	}

	if _, err := MarshalEvent(RequestStateSnapshot{}); err == nil {
		t.Fatalf("internal snapshot requests must not be marshaled")
	}
}
