package archidb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ChunkConfig is the JSON document published next to the database file.
// It describes how the chunked path must read the asset; in particular
// DatabaseLengthBytes is the authoritative uncompressed length, since a
// compressing host advertises the compressed one.
type ChunkConfig struct {
	ServerMode          string `json:"serverMode"`
	RequestChunkSize    int64  `json:"requestChunkSize"`
	DatabaseLengthBytes int64  `json:"databaseLengthBytes"`
	// URL points at the database file, absolute or relative to the
	// config document.
	URL string `json:"url"`
}

// fetchChunkConfig retrieves and validates the chunk config. Every failure
// here carries KindConfigUnreachable: an unreachable or malformed config
// means the chunked path cannot be attempted.
func (s *Session) fetchChunkConfig(ctx context.Context) (*ChunkConfig, error) {
	if s.cfg.ConfigURL == "" {
		return nil, newError(KindConfigUnreachable, "fetch chunk config",
			errors.New("no config URL configured"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ConfigURL, nil)
	if err != nil {
		return nil, newError(KindConfigUnreachable, "fetch chunk config", err)
	}

	resp, err := s.opts.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindConfigUnreachable, "fetch chunk config", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(KindConfigUnreachable, "fetch chunk config",
			fmt.Errorf("GET %s: unexpected status %d", s.cfg.ConfigURL, resp.StatusCode))
	}

	var cc ChunkConfig
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return nil, newError(KindConfigUnreachable, "parse chunk config", err)
	}
	if cc.DatabaseLengthBytes <= 0 {
		return nil, newError(KindConfigUnreachable, "validate chunk config",
			fmt.Errorf("databaseLengthBytes missing or invalid: %d", cc.DatabaseLengthBytes))
	}

	if cc.URL == "" {
		cc.URL = s.cfg.DatabaseURL
	} else if resolved, err := s.resolveURL(cc.URL); err == nil {
		cc.URL = resolved
	}
	if cc.URL == "" {
		return nil, newError(KindConfigUnreachable, "validate chunk config",
			errors.New("no database URL in config or session"))
	}

	return &cc, nil
}

// resolveURL resolves ref against the config document's URL.
func (s *Session) resolveURL(ref string) (string, error) {
	base, err := url.Parse(s.cfg.ConfigURL)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(r).String(), nil
}
