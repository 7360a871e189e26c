package momentum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"balancer/internal/logger"
	"balancer/internal/resilience"

	"github.com/tidwall/gjson"
)

const fetchAttempts = 5

// HTTPSource fetches the current and average multiple from a JSON endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{url: url, client: &http.Client{Timeout: timeout}}
}

// Read fetches a reading, retrying transient failures a few times with a
// jittered pause. After the last attempt it gives up with ErrUnavailable.
func (s *HTTPSource) Read(ctx context.Context) (Reading, error) {
	for attempt := 1; ; attempt++ {
		reading, err := s.fetch(ctx)
		if err == nil {
			return reading, nil
		}
		if attempt >= fetchAttempts || ctx.Err() != nil {
			logger.Warnf("Failed to fetch Mayer multiple, giving up after %d attempts", attempt)
			return Reading{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Errorf("Got an error %v fetching Mayer multiple, retrying in about 5 seconds...", err)
		resilience.Sleep(ctx, resilience.Jitter(4*time.Second, 6*time.Second))
	}
}

func (s *HTTPSource) fetch(ctx context.Context) (Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Reading{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Reading{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Reading{}, fmt.Errorf("momentum endpoint status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reading{}, err
	}
	return ParseReading(body)
}

// ParseReading extracts a reading from the endpoint's JSON body.
func ParseReading(body []byte) (Reading, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return Reading{}, fmt.Errorf("momentum payload has no data object")
	}
	current := data.Get("current_mayer_multiple")
	average := data.Get("average_mayer_multiple")
	if !current.Exists() || !average.Exists() {
		return Reading{}, fmt.Errorf("momentum payload misses multiple fields")
	}
	return Reading{Current: current.Float(), Average: average.Float()}, nil
}
