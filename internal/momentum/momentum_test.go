package momentum

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	body := []byte(`{"data":{"current_mayer_multiple":"1.42","average_mayer_multiple":"1.39"}}`)
	reading, err := ParseReading(body)
	require.NoError(t, err)
	assert.InDelta(t, 1.42, reading.Current, 1e-9)
	assert.InDelta(t, 1.39, reading.Average, 1e-9)
}

func TestParseReadingRejectsBadPayloads(t *testing.T) {
	_, err := ParseReading([]byte(`{"status":"ok"}`))
	assert.Error(t, err)

	_, err = ParseReading([]byte(`{"data":{"current_mayer_multiple":1.42}}`))
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	assert.Equal(t, AdviceNA, Evaluate(nil))
	assert.Equal(t, AdviceBuy, Evaluate(&Reading{Current: 1.1, Average: 1.4}))
	assert.Equal(t, AdviceSell, Evaluate(&Reading{Current: 2.5, Average: 1.4}))
	assert.Equal(t, AdviceHold, Evaluate(&Reading{Current: 1.6, Average: 1.4}))
	// Without an average only the overheat check applies.
	assert.Equal(t, AdviceHold, Evaluate(&Reading{Current: 1.1}))
}

func TestHTTPSourceRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"current_mayer_multiple":1.42,"average_mayer_multiple":1.39}}`))
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, 0)
	reading, err := source.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.42, reading.Current, 1e-9)
}

func TestHTTPSourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := source.Read(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func writeAverage(t *testing.T, dir, value string) string {
	t.Helper()
	path := filepath.Join(dir, "mayer.avg")
	require.NoError(t, os.WriteFile(path, []byte(value), 0o644))
	return path
}

func TestAverageFile(t *testing.T) {
	path := writeAverage(t, t.TempDir(), "8123.45\n")
	avg := NewAverageFile(path)
	defer avg.Close()

	assert.InDelta(t, 8123.45, avg.Average(), 1e-9)
}

func TestAverageFileMissing(t *testing.T) {
	avg := NewAverageFile(filepath.Join(t.TempDir(), "missing.avg"))
	defer avg.Close()

	assert.Zero(t, avg.Average())
}

type stubRemote struct {
	reading Reading
	err     error
	calls   int
}

func (s *stubRemote) Read(context.Context) (Reading, error) {
	s.calls++
	return s.reading, s.err
}

func TestCombinedPrefersLocal(t *testing.T) {
	path := writeAverage(t, t.TempDir(), "8000")
	avg := NewAverageFile(path)
	defer avg.Close()

	remote := &stubRemote{reading: Reading{Current: 9, Average: 9}}
	combined := NewCombined(remote, func(context.Context) (float64, error) {
		return 12000, nil
	}, avg)

	reading, err := combined.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.5, reading.Current, 1e-9)
	assert.Zero(t, remote.calls)
}

func TestCombinedFallsBackToRemote(t *testing.T) {
	avg := NewAverageFile(filepath.Join(t.TempDir(), "missing.avg"))
	defer avg.Close()

	remote := &stubRemote{reading: Reading{Current: 1.42, Average: 1.39}}
	combined := NewCombined(remote, func(context.Context) (float64, error) {
		return 12000, nil
	}, avg)

	reading, err := combined.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.42, reading.Current, 1e-9)
	assert.Equal(t, 1, remote.calls)
}

func TestAdviceReadingPatchesCurrent(t *testing.T) {
	path := writeAverage(t, t.TempDir(), "8000")
	avg := NewAverageFile(path)
	defer avg.Close()

	remote := &stubRemote{reading: Reading{Current: 0, Average: 1.39}}
	combined := NewCombined(remote, func(context.Context) (float64, error) {
		return 12000, nil
	}, avg)

	reading := combined.AdviceReading(context.Background())
	require.NotNil(t, reading)
	assert.InDelta(t, 1.5, reading.Current, 1e-9)
	assert.InDelta(t, 1.39, reading.Average, 1e-9)
}

func TestAdviceReadingUnavailable(t *testing.T) {
	avg := NewAverageFile(filepath.Join(t.TempDir(), "missing.avg"))
	defer avg.Close()

	remote := &stubRemote{err: ErrUnavailable}
	combined := NewCombined(remote, func(context.Context) (float64, error) {
		return 0, context.Canceled
	}, avg)

	assert.Nil(t, combined.AdviceReading(context.Background()))
}
