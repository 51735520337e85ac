package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/n0ot/pushnote/pkg/page"
)

// streamServer serves a push stream at /sse/{userID}, writing each string sent on events verbatim.
func newStreamServer(t *testing.T, userID string, events <-chan string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := "/sse/" + userID; r.URL.Path != want {
			t.Errorf("Stream requested at %s; wanted %s", r.URL.Path, want)
			http.NotFound(w, r)
			return
		}
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("Wanted Accept: text/event-stream, got %q", accept)
		}

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprint(w, ev)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))
}

func startStream(t *testing.T, url string, doc page.Querier) Channel {
	t.Helper()
	c, err := New(PushStream, "42", doc, testConfig(url))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %s", err)
	}
	return c
}

func TestPushStreamMessages(t *testing.T) {
	events := make(chan string, 10)
	srv := newStreamServer(t, "42", events)
	defer srv.Close()

	doc := page.NewDocument("sse", "websocket")
	c := startStream(t, srv.URL, doc)
	if c.State() != Open {
		t.Errorf("Wanted state open, got %s", c.State())
	}

	events <- ": keep-alive-text\n\n"
	events <- "data: {\"user_id\":\"42\",\"message\":{\"data\":\"hi\"}}\n\n"
	events <- "data: {\"user_id\":\"42\",\"message\":\"pong\"}\n\n"
	events <- "data: not json\n\n"
	events <- "event: other\ndata: {\"message\":{\"data\":\"skipped\"}}\n\n"
	events <- "data: {\"message\":\ndata: {\"data\":\"split\"}}\n\n"
	events <- "data: {\"user_id\":\"42\",\"message\":{\"data\":\"last\"}}\n\n"

	list := doc.List(page.Selector("sse"))
	waitFor(t, "three items", func() bool { return list.Len() >= 3 })
	if got, want := list.Items(), []string{"hi", "split", "last"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Wanted %v, got %v", want, got)
	}
	if c.State() != Open {
		t.Errorf("Malformed events closed the channel; state %s", c.State())
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}
	waitDone(t, c)
}

func TestPushStreamServerClose(t *testing.T) {
	events := make(chan string)
	srv := newStreamServer(t, "42", events)
	defer srv.Close()

	c := startStream(t, srv.URL, nil)
	close(events)
	waitDone(t, c)
	if c.State() != Closed {
		t.Errorf("Wanted state closed, got %s", c.State())
	}
}

func TestPushStreamBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := New(PushStream, "42", nil, testConfig(srv.URL))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start should fail on 404")
	}
	if c.State() != Closed {
		t.Errorf("Wanted state closed, got %s", c.State())
	}
}

func TestPushStreamContextCancel(t *testing.T) {
	events := make(chan string)
	srv := newStreamServer(t, "42", events)
	defer srv.Close()

	c, err := New(PushStream, "42", nil, testConfig(srv.URL))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %s", err)
	}
	cancel()
	waitDone(t, c)
}

// Two channels for the same user, one per transport, render only into their own sections.
func TestChannelsDoNotCrossRender(t *testing.T) {
	events := make(chan string, 1)
	stream := newStreamServer(t, "42", events)
	defer stream.Close()
	sock := newSocketServer(t, "42")
	defer sock.Close()

	doc := page.NewDocument("sse", "websocket")
	sc := startStream(t, stream.URL, doc)
	defer sc.Close()
	wc := startSocket(t, sock, doc, make(chan *fakeTicker, 1))
	defer wc.Close()
	sock.expectFrame(t, "PING")

	events <- "data: {\"user_id\":\"42\",\"message\":{\"data\":\"from stream\"}}\n\n"
	sock.push(t, `{"user_id":"42","message":{"data":"from socket"}}`)

	sseList := doc.List(page.Selector("sse"))
	wsList := doc.List(page.Selector("websocket"))
	waitFor(t, "both items", func() bool { return sseList.Len() == 1 && wsList.Len() == 1 })
	time.Sleep(20 * time.Millisecond)

	if got := sseList.Items(); !reflect.DeepEqual(got, []string{"from stream"}) {
		t.Errorf("sse list: %v", got)
	}
	if got := wsList.Items(); !reflect.DeepEqual(got, []string{"from socket"}) {
		t.Errorf("websocket list: %v", got)
	}
}
