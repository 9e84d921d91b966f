package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/object"
)

func TestDecodeRejectsMissingEvent(t *testing.T) {
	if _, err := Decode([]byte(`{"data":{}}`)); !errors.Is(err, ErrMissingEvent) {
		t.Errorf("expected ErrMissingEvent, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected an error for malformed frame")
	}
}

func TestEncodeRawKeepsPayloadBytes(t *testing.T) {
	raw := json.RawMessage(`{"documentId":"d","asset":{"id":"a","attrs":{"label":"<b>Stage & Bar</b>"}}}`)
	msg, err := EncodeRaw(EventAssetAdd, raw)
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(msg)
	if err != nil {
		t.Fatal(err)
	}
	if env.Event != EventAssetAdd {
		t.Errorf("unexpected event %s", env.Event)
	}
	if string(env.Data) != string(raw) {
		t.Errorf("payload changed: %s", env.Data)
	}
}

func TestDecodeDataRequiresPayload(t *testing.T) {
	env := Envelope{Event: EventLeaveSession}
	var leave LeaveSession
	if err := env.DecodeData(&leave); err == nil {
		t.Error("expected an error for missing data")
	}
}

func TestRelayedEvent(t *testing.T) {
	pairs := map[string]string{
		EventAssetCreated:    EventAssetAdd,
		EventAssetUpdated:    EventAssetUpdate,
		EventAssetDeleted:    EventAssetRemove,
		EventLayersReordered: EventUpdateLayers,
	}
	for in, want := range pairs {
		got, ok := RelayedEvent(in)
		if !ok || got != want {
			t.Errorf("RelayedEvent(%s) = %s, %v", in, got, ok)
		}
		if !IsEditEvent(in) {
			t.Errorf("%s should be an edit event", in)
		}
	}
	if _, ok := RelayedEvent(EventCursorMove); ok {
		t.Error("cursor-move is not relayed as an edit")
	}
}

func TestValidateJoin(t *testing.T) {
	valid := JoinSession{DocumentID: "doc", Participant: Profile{ID: "u1", DisplayName: "Ann"}}
	if err := ValidateJoin(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]JoinSession{
		"missing document": {Participant: Profile{ID: "u1", DisplayName: "Ann"}},
		"missing id":       {DocumentID: "doc", Participant: Profile{DisplayName: "Ann"}},
		"missing name":     {DocumentID: "doc", Participant: Profile{ID: "u1"}},
		"bad avatar":       {DocumentID: "doc", Participant: Profile{ID: "u1", DisplayName: "Ann", AvatarURL: "not a url"}},
		"long name":        {DocumentID: "doc", Participant: Profile{ID: "u1", DisplayName: strings.Repeat("x", 101)}},
	}
	for name, join := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateJoin(join); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParticipantWireShape(t *testing.T) {
	p := Participant{
		Profile:      Profile{ID: "u1", DisplayName: "Ann"},
		ConnectionID: "c1",
		Cursor:       Position{X: 1, Y: 2},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "displayName", "connectionId", "cursor"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %s in %s", key, b)
		}
	}
	if _, ok := m["avatarUrl"]; ok {
		t.Error("empty avatar should be omitted")
	}
}

func TestEditOutboundAndDecode(t *testing.T) {
	obj := object.Visual{ID: "t1", Type: "table", Transform: object.Transform{X: 3, Y: 4}}
	cases := []struct {
		edit    EditEvent
		inbound string
	}{
		{CreateEvent(obj), EventAssetCreated},
		{UpdateEvent(obj), EventAssetUpdated},
		{DeleteEvent("t1"), EventAssetDeleted},
		{ReorderEvent([]object.Visual{obj}), EventLayersReordered},
	}

	for _, tc := range cases {
		t.Run(string(tc.edit.Kind), func(t *testing.T) {
			event, payload, err := tc.edit.Outbound("doc")
			if err != nil {
				t.Fatal(err)
			}
			if event != tc.inbound {
				t.Fatalf("expected %s, got %s", tc.inbound, event)
			}
			msg, err := Encode(event, payload)
			if err != nil {
				t.Fatal(err)
			}
			env, err := Decode(msg)
			if err != nil {
				t.Fatal(err)
			}
			doc, err := DocumentOf(env.Data)
			if err != nil || doc != "doc" {
				t.Fatalf("DocumentOf = %q, %v", doc, err)
			}

			out, _ := RelayedEvent(env.Event)
			got, err := DecodeEdit(Envelope{Event: out, Data: env.Data})
			if err != nil {
				t.Fatal(err)
			}
			if got.Kind != tc.edit.Kind {
				t.Errorf("kind %s, want %s", got.Kind, tc.edit.Kind)
			}
			switch got.Kind {
			case EditCreate, EditUpdate:
				if got.Object.ID != "t1" || got.Object.X != 3 {
					t.Errorf("object lost: %+v", got.Object)
				}
			case EditDelete:
				if got.ObjectID != "t1" {
					t.Errorf("id lost: %q", got.ObjectID)
				}
			case EditReorder:
				if len(got.Objects) != 1 || got.Objects[0].ID != "t1" {
					t.Errorf("layers lost: %+v", got.Objects)
				}
			}
		})
	}
}

func TestEmptyReorderEncodesEmptyList(t *testing.T) {
	_, payload, err := ReorderEvent(nil).Outbound("doc")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(payload)
	if !strings.Contains(string(b), `"layers":[]`) {
		t.Errorf("expected empty layers list, got %s", b)
	}
}

func TestDocumentOfRequiresID(t *testing.T) {
	if _, err := DocumentOf(json.RawMessage(`{"assetId":"x"}`)); err == nil {
		t.Error("expected error for missing documentId")
	}
}

func TestDecodeEditUnknown(t *testing.T) {
	_, err := DecodeEdit(Envelope{Event: EventCursorMoved, Data: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}
