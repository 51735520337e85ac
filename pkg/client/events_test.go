package client

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadEvents(t *testing.T) {
	stream := ": keep-alive-text\n\n" +
		"data: one\n\n" +
		"data:two\r\n\r\n" +
		"event: other\ndata: three\nid: 7\n\n" +
		"data: {\"a\":\ndata: 1}\n\n" +
		"id: 8\n\n" +
		"data: unterminated"

	var got []event
	if err := readEvents(strings.NewReader(stream), func(ev event) {
		got = append(got, ev)
	}); err != nil {
		t.Fatalf("readEvents: %s", err)
	}

	want := []event{
		{Type: "message", Data: "one"},
		{Type: "message", Data: "two"},
		{Type: "other", ID: "7", Data: "three"},
		{Type: "message", Data: "{\"a\":\n1}"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Wanted %+v, got %+v", want, got)
	}
}
