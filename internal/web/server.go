// Package web serves the wallet dashboard: an HTML shell plus SSE streams
// of portfolio snapshots.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mercuryex/walletcore/internal/events"
)

const snapshotPollInterval = 2 * time.Second

type snapshotReader interface {
	SnapshotsAfter(index uint64) ([]events.PortfolioSnapshotRecord, error)
}

type positionLister interface {
	Positions() []events.AssetPosition
	Trends() []events.TrendReading
}

// Server exposes HTTP endpoints serving the HTML UI, the current asset
// positions and an SSE stream of portfolio snapshots.
type Server struct {
	Addr      string
	Store     snapshotReader
	Positions positionLister
	L         *zap.Logger
}

// NewServer creates a new dashboard server.
func NewServer(addr string, store snapshotReader, positions positionLister, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Store: store, Positions: positions, L: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/assets", s.handleAssets)
	mux.HandleFunc("/trends", s.handleTrends)
	mux.HandleFunc("/portfolio/stream", s.handlePortfolioStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	if s.Positions == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Positions.Positions()); err != nil {
		s.L.Warn("encode asset positions", zap.Error(err))
	}
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if s.Positions == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Positions.Trends()); err != nil {
		s.L.Warn("encode trend readings", zap.Error(err))
	}
}

func (s *Server) handlePortfolioStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// comment heartbeat every 30s so proxies keep the connection open
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendSnapshots := func() error {
		records, err := s.Store.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: portfolio\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(); err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		s.L.Warn("portfolio stream initial load", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshots(); err != nil {
				s.L.Warn("portfolio stream poll", zap.Error(err))
			}
		}
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>walletcore</title>
<style>
body { font-family: monospace; background: #101418; color: #d8dee9; margin: 2rem; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { padding: 0.3rem 1rem; border-bottom: 1px solid #2e3440; text-align: right; }
th { color: #81a1c1; }
#total { font-size: 1.4rem; }
</style>
</head>
<body>
<h1>walletcore</h1>
<div id="total">portfolio: &mdash;</div>
<table id="assets"><thead>
<tr><th>asset</th><th>balance</th><th>available</th><th>value</th></tr>
</thead><tbody></tbody></table>
<script>
async function refreshAssets() {
  const res = await fetch('/assets');
  if (!res.ok) return;
  const rows = await res.json();
  const body = document.querySelector('#assets tbody');
  body.innerHTML = '';
  for (const a of rows) {
    const tr = document.createElement('tr');
    tr.innerHTML = '<td>' + a.id + '</td><td>' + a.balance + '</td><td>' +
      a.available + '</td><td>' + a.value + '</td>';
    body.appendChild(tr);
  }
}
const source = new EventSource('/portfolio/stream');
source.addEventListener('portfolio', (e) => {
  const snap = JSON.parse(e.data);
  document.getElementById('total').textContent =
    'portfolio: ' + snap.total + ' ' + snap.base;
  refreshAssets();
});
refreshAssets();
</script>
</body>
</html>`
