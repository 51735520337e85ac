package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/page"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Out = io.Discard
	log.Level = logrus.DebugLevel
}

// waitFor polls cond until it holds, failing the test after a couple of seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, c Channel) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("%s channel did not close", c.Kind())
	}
}

func testConfig(baseURL string) Config {
	return Config{BaseURL: baseURL, Log: log}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"sse", "websocket"} {
		if k, err := ParseKind(s); err != nil || string(k) != s {
			t.Errorf("ParseKind(%q) = %q, %v", s, k, err)
		}
	}
	if _, err := ParseKind("carrier-pigeon"); err == nil {
		t.Error("ParseKind should reject unknown transports")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(PushStream, "", nil, testConfig("")); err == nil {
		t.Error("New should require a user id")
	}
	if _, err := New(Kind("smoke"), "42", nil, testConfig("")); err == nil {
		t.Error("New should reject unknown kinds")
	}
	if _, err := New(Socket, "42", nil, testConfig("://bad")); err == nil {
		t.Error("New should reject a bad base URL")
	}

	c, err := New(Socket, "42", nil, testConfig(""))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if c.State() != Constructed || c.Kind() != Socket || c.UserID() != "42" {
		t.Errorf("Unexpected new channel: %s %s %s", c.State(), c.Kind(), c.UserID())
	}
}

func TestNewMakesNoRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("Unexpected request to %s", r.URL)
	}))
	defer srv.Close()

	for _, kind := range []Kind{PushStream, Socket} {
		if _, err := New(kind, "42", page.NewDocument("sse", "websocket"), testConfig(srv.URL)); err != nil {
			t.Fatalf("New %s: %s", kind, err)
		}
	}
}

func TestAppendRendersObjectsOnly(t *testing.T) {
	doc := page.NewDocument("sse")
	c, err := New(PushStream, "42", doc, testConfig(""))
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	c.Append("pong")
	c.Append(12.0)
	c.Append(nil)
	c.Append([]interface{}{"data"})
	list := doc.List(page.Selector("sse"))
	if list.Len() != 0 {
		t.Fatalf("Non-objects were rendered: %v", list.Items())
	}

	c.Append(map[string]interface{}{"data": "hi"})
	c.Append(map[string]interface{}{"data": "there", "extra": true})
	if got, want := list.Items(), []string{"hi", "there"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wanted %v, got %v", want, got)
	}
}

func TestAppendWithoutContainer(t *testing.T) {
	// The page has no websocket section.
	doc := page.NewDocument("sse")
	c, err := New(Socket, "42", doc, testConfig(""))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	c.Append(map[string]interface{}{"data": "lost"})
	if n := doc.List(page.Selector("sse")).Len(); n != 0 {
		t.Errorf("Socket message rendered into the sse list (%d items)", n)
	}

	c, err = New(PushStream, "42", nil, testConfig(""))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	c.Append(map[string]interface{}{"data": "lost"})
}

func TestCloseBeforeStart(t *testing.T) {
	c, err := New(PushStream, "42", nil, testConfig(""))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}
	waitDone(t, c)
	if err := c.Start(context.Background()); err != ErrClosed {
		t.Errorf("Start after Close; wanted ErrClosed, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second Close: %s", err)
	}
}
