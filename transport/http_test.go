package transport

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/office-mas/office-multi-agent/types"
)

func TestHTTPRoundTrip(t *testing.T) {
	a, err := NewHTTPEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("endpoint a: %v", err)
	}
	defer a.Close()
	b, err := NewHTTPEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("endpoint b: %v", err)
	}
	defer b.Close()

	sent := &types.WireEnvelope{Sender: "a", Body: `{"performative":"INFORM","conversation_id":"c-1","payload":{"text":"hej"}}`}
	if err := a.Send(context.Background(), b.Addr(), sent); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, ok := b.Receive(context.Background(), 2*time.Second)
	if !ok {
		t.Fatal("nothing received")
	}
	if got.Sender != "a" || !strings.Contains(got.Body, "c-1") {
		t.Errorf("envelope = %+v", got)
	}
}

func TestHTTPRejectsBadPayload(t *testing.T) {
	a, err := NewHTTPEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	defer a.Close()

	resp, err := http.Post("http://"+a.Addr()+"/process", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHTTPHealth(t *testing.T) {
	a, err := NewHTTPEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	defer a.Close()

	resp, err := http.Get("http://" + a.Addr() + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHTTPSendUnreachable(t *testing.T) {
	a, err := NewHTTPEndpoint("127.0.0.1:0")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	defer a.Close()

	if err := a.Send(context.Background(), "127.0.0.1:1", &types.WireEnvelope{Body: "x"}); err == nil {
		t.Error("send to a dead port must fail")
	}
}
