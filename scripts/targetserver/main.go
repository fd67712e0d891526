// Command targetserver is a local HTTP target for trying volley runs by hand.
//
//	go run ./scripts/targetserver --port 8080
//	volley --target 'http://localhost:8080/delay?ms=50' -r 20 -n 5
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const maxDelay = 30 * time.Second

func main() {
	port := pflag.Int("port", 8080, "Listening port")
	pflag.Parse()

	addr := fmt.Sprintf(":%d", *port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(rand.New(rand.NewSource(time.Now().UnixNano()))),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.WithField("addr", addr).Info("target server listening")
	log.Fatal(srv.ListenAndServe())
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

func newMux(rnd *rand.Rand) *http.ServeMux {
	src := &lockedRand{rnd: rnd}
	mux := http.NewServeMux()
	mux.HandleFunc("/delay", handleDelay)
	mux.HandleFunc("/status/", handleStatus)
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		handleFlaky(w, r, src.Float64())
	})
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "path": r.URL.Path})
	})
	return mux
}

// handleDelay sleeps for ?ms= milliseconds before answering.
func handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(r.URL.Query().Get("ms"))
	if err != nil || ms < 0 {
		ms = 0
	}
	delay := time.Duration(ms) * time.Millisecond
	if delay > maxDelay {
		delay = maxDelay
	}
	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"delayed_ms": int(delay / time.Millisecond)})
}

// handleStatus answers /status/{code} with that code.
func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status code"})
		return
	}
	w.WriteHeader(code)
}

// handleFlaky fails with 503 for the ?rate= fraction of requests.
func handleFlaky(w http.ResponseWriter, r *http.Request, roll float64) {
	rate, err := strconv.ParseFloat(r.URL.Query().Get("rate"), 64)
	if err != nil {
		rate = 0.1
	}
	if roll < rate {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unlucky"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"method":   r.Method,
		"sequence": r.Header.Get("X-Volley-Seq"),
		"body":     string(body),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("encode response")
	}
}
