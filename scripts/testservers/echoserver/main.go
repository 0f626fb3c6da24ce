// Command echoserver is a small JSON echo target for exercising reqbench end
// to end. It reflects the request payload back with a randomized amount of
// padding, and can inject failures and latency on demand:
//
//	go run ./scripts/testservers/echoserver -port 8080 -error-rate 0.05 -latency 20ms
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	errorRate := flag.Float64("error-rate", 0, "Fraction of requests answered with HTTP 500 (0.0 to 1.0)")
	notFoundRate := flag.Float64("notfound-rate", 0, "Fraction of requests answered with HTTP 404 (0.0 to 1.0)")
	latency := flag.Duration("latency", 0, "Mean artificial latency added to every response")
	maxPadding := flag.Int("max-padding", 256, "Upper bound for the random response padding in bytes")
	flag.Parse()

	if *errorRate < 0 || *errorRate > 1 || *notFoundRate < 0 || *notFoundRate > 1 {
		log.Fatal("error-rate and notfound-rate must be between 0.0 and 1.0")
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	handler := &echoHandler{
		errorRate:    *errorRate,
		notFoundRate: *notFoundRate,
		latency:      *latency,
		maxPadding:   *maxPadding,
		rnd:          rnd,
	}

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("echo server listening on %s (error-rate=%.2f latency=%s)", addr, *errorRate, *latency)
	log.Fatal(http.ListenAndServe(addr, handler))
}

type echoHandler struct {
	errorRate    float64
	notFoundRate float64
	latency      time.Duration
	maxPadding   int
	rnd          *rand.Rand
}

type echoResponse struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   map[string]string `json:"query,omitempty"`
	Body    string            `json:"body,omitempty"`
	Padding string            `json:"padding,omitempty"`
}

func (h *echoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.latency > 0 {
		// Jitter between 50% and 150% of the configured mean.
		jittered := h.latency/2 + time.Duration(h.rnd.Int63n(int64(h.latency)))
		time.Sleep(jittered)
	}

	roll := h.rnd.Float64()
	if roll < h.errorRate {
		http.Error(w, "injected server error", http.StatusInternalServerError)
		return
	}
	if roll < h.errorRate+h.notFoundRate {
		http.Error(w, "injected not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	if len(query) == 0 {
		query = nil
	}

	padding := ""
	if h.maxPadding > 0 {
		padding = strings.Repeat("x", h.rnd.Intn(h.maxPadding+1))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(echoResponse{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   query,
		Body:    string(body),
		Padding: padding,
	})
}
