package page

import (
	"reflect"
	"testing"
)

func TestSelector(t *testing.T) {
	if got, want := Selector("sse"), `[data-type="sse"] .notification-list`; got != want {
		t.Errorf("Wanted %s, got %s", want, got)
	}
}

func TestQuerySelector(t *testing.T) {
	doc := NewDocument("sse")
	if doc.QuerySelector(Selector("sse")) == nil {
		t.Fatal("sse section not found")
	}
	if c := doc.QuerySelector(Selector("websocket")); c != nil {
		t.Errorf("Wanted no websocket section, got %v", c)
	}

	l := doc.AddSection("websocket")
	if doc.AddSection("websocket") != l {
		t.Error("AddSection replaced an existing list")
	}
	if doc.QuerySelector(Selector("websocket")) == nil {
		t.Error("websocket section not found after AddSection")
	}
}

func TestListAppendAndObserve(t *testing.T) {
	l := &List{}
	l.Append("first")

	var seen []string
	l.Observe(func(text string) { seen = append(seen, text) })
	l.Append("second")
	l.Append("third")

	if got, want := l.Items(), []string{"first", "second", "third"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items; wanted %v, got %v", want, got)
	}
	if want := []string{"second", "third"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("Observed; wanted %v, got %v", want, seen)
	}
	if l.Len() != 3 {
		t.Errorf("Len; wanted 3, got %d", l.Len())
	}
}
