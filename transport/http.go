package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/types"
)

// HTTPEndpoint exposes an agent over plain HTTP. Inbound envelopes are
// POSTed to /process and queued; outbound envelopes are POSTed to the
// peer's /process URL. Queueing keeps inbound handling at-most-once
// like the in-proc bus: a full queue answers 503 and drops.
type HTTPEndpoint struct {
	addr   string
	server *http.Server
	client *http.Client
	inbox  chan *types.WireEnvelope
	log    *logger.Logger
}

// NewHTTPEndpoint binds listenAddr (host:port) and starts serving.
func NewHTTPEndpoint(listenAddr string) (*HTTPEndpoint, error) {
	e := &HTTPEndpoint{
		addr:   listenAddr,
		client: &http.Client{Timeout: 10 * time.Second},
		inbox:  make(chan *types.WireEnvelope, defaultMailboxSize),
		log:    logger.GetLogger().WithField("component", "http_endpoint"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/process", e.handleProcess)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", listenAddr, err)
	}
	e.addr = ln.Addr().String()
	e.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := e.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			e.log.Errorf("http endpoint stopped: %v", err)
		}
	}()
	e.log.Infof("listening on %s", listenAddr)
	return e, nil
}

func (e *HTTPEndpoint) Addr() string { return e.addr }

func (e *HTTPEndpoint) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	var env types.WireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "invalid envelope", http.StatusBadRequest)
		return
	}
	select {
	case e.inbox <- &env:
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"status":"accepted"}`)
	default:
		e.log.Warnf("inbox full, envelope from %q dropped", env.Sender)
		http.Error(w, "inbox full", http.StatusServiceUnavailable)
	}
}

// Send POSTs env to the peer. to must already be a resolved URL or
// host:port; a bare host:port gets the scheme and path filled in.
func (e *HTTPEndpoint) Send(ctx context.Context, to string, env *types.WireEnvelope) error {
	url := to
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	if !strings.HasSuffix(url, "/process") {
		url = strings.TrimSuffix(url, "/") + "/process"
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 503 means the peer dropped the envelope; delivery is best-effort.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusServiceUnavailable {
		return fmt.Errorf("peer %s answered %d", url, resp.StatusCode)
	}
	return nil
}

func (e *HTTPEndpoint) Receive(ctx context.Context, timeout time.Duration) (*types.WireEnvelope, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case env, open := <-e.inbox:
		if !open {
			return nil, false
		}
		return env, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

func (e *HTTPEndpoint) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return e.server.Shutdown(ctx)
}
