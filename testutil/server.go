package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// Host serves a database file the way the production static hosting does:
// the file itself under /archimap.db with Range support, the chunk config
// under /config.json and a probe endpoint under /probe.
type Host struct {
	Server *httptest.Server

	// RangeRequests counts GET requests that carried a Range header.
	RangeRequests atomic.Int64
	// FullRequests counts GET requests for the whole file.
	FullRequests atomic.Int64
	// HeadRequests counts HEAD requests against the database file.
	HeadRequests atomic.Int64

	// DenyRanges makes the host ignore Range headers and answer 200 with
	// the full body, like a host without Range support.
	DenyRanges atomic.Bool
	// FailDB makes the database endpoint answer 404.
	FailDB atomic.Bool
	// FailConfig makes the config endpoint answer 500.
	FailConfig atomic.Bool
	// ProbeDelay is added to probe responses to simulate a slow link.
	ProbeDelay atomic.Int64 // nanoseconds

	path string
	size int64
}

// NewHost serves the database file at path. The server is shut down with
// the test.
func NewHost(t *testing.T, path string) *Host {
	t.Helper()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	h := &Host{path: path, size: fi.Size()}

	mux := http.NewServeMux()
	mux.HandleFunc("/archimap.db", h.serveDB)
	mux.HandleFunc("/config.json", h.serveConfig)
	mux.HandleFunc("/probe", h.serveProbe)

	h.Server = httptest.NewServer(mux)
	t.Cleanup(h.Server.Close)
	return h
}

// DBURL returns the database file URL.
func (h *Host) DBURL() string { return h.Server.URL + "/archimap.db" }

// ConfigURL returns the chunk config URL.
func (h *Host) ConfigURL() string { return h.Server.URL + "/config.json" }

// ProbeURL returns the probe endpoint URL.
func (h *Host) ProbeURL() string { return h.Server.URL + "/probe" }

func (h *Host) serveDB(w http.ResponseWriter, r *http.Request) {
	if h.FailDB.Load() {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodHead:
		h.HeadRequests.Add(1)
	case http.MethodGet:
		if r.Header.Get("Range") != "" && !h.DenyRanges.Load() {
			h.RangeRequests.Add(1)
		} else {
			h.FullRequests.Add(1)
		}
	}

	if h.DenyRanges.Load() {
		r.Header.Del("Range")
	}

	f, err := os.Open(h.path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, "archimap.db", time.Time{}, f)
}

func (h *Host) serveConfig(w http.ResponseWriter, r *http.Request) {
	if h.FailConfig.Load() {
		http.Error(w, "config unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"serverMode":          "full",
		"requestChunkSize":    4096,
		"databaseLengthBytes": h.size,
		"url":                 "archimap.db",
	})
}

func (h *Host) serveProbe(w http.ResponseWriter, r *http.Request) {
	if d := time.Duration(h.ProbeDelay.Load()); d > 0 {
		time.Sleep(d)
	}
	w.WriteHeader(http.StatusOK)
}
