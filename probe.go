package archidb

import (
	"context"
	"net/http"
	"time"
)

// Quality is the probed network quality. It only tailors error messages;
// it never changes the loading strategy.
type Quality int

const (
	// QualityFast means the probe round trip finished under 100ms.
	QualityFast Quality = iota + 1
	// QualitySlow means the probe round trip finished under 500ms.
	QualitySlow
	// QualityVerySlow means the probe was slower than 500ms or failed.
	QualityVerySlow
)

func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualitySlow:
		return "slow"
	case QualityVerySlow:
		return "very_slow"
	default:
		return "unknown"
	}
}

const (
	probeFastThreshold = 100 * time.Millisecond
	probeSlowThreshold = 500 * time.Millisecond
	probeDeadline      = 5 * time.Second
)

// ProbeConnection estimates network quality with a single HEAD request
// against a small static asset. Any transport failure is reported as
// QualityVerySlow; pessimistic is the safe default for error messages.
func ProbeConnection(ctx context.Context, client *http.Client, url string) Quality {
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, probeDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return QualityVerySlow
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return QualityVerySlow
	}
	_ = resp.Body.Close()

	switch elapsed := time.Since(start); {
	case elapsed < probeFastThreshold:
		return QualityFast
	case elapsed < probeSlowThreshold:
		return QualitySlow
	default:
		return QualityVerySlow
	}
}
