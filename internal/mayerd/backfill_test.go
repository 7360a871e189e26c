package mayerd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDataBackfillsGap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"Date":"2026-08-25","Price":8000},
			{"Date":"2026-08-26","Price":8100},
			{"Date":"2026-08-27","Price":8200}
		]`))
	}))
	defer server.Close()

	svc := newTestService(t)
	svc.cfg.BackupURL = server.URL
	require.NoError(t, svc.db.Create(&Rate{Date: "2026-08-25", Count: 24, Price: 7999}).Error)

	require.NoError(t, svc.CheckData(context.Background()))

	var count int64
	require.NoError(t, svc.db.Model(&Rate{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	// The already persisted day is never overwritten.
	var existing Rate
	require.NoError(t, svc.db.First(&existing, "date = ?", "2026-08-25").Error)
	assert.Equal(t, 7999.0, existing.Price)

	var filled Rate
	require.NoError(t, svc.db.First(&filled, "date = ?", "2026-08-27").Error)
	assert.Equal(t, int64(1), filled.Count)
	assert.Equal(t, 8200.0, filled.Price)
}

func TestCheckDataUpToDate(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.db.Create(&Rate{Date: "2026-08-28", Count: 1, Price: 8000}).Error)
	// No backup URL configured; must not fail either way.
	require.NoError(t, svc.CheckData(context.Background()))
}

func TestCheckDataWarnsWithoutBackupURL(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.CheckData(context.Background()))

	var count int64
	require.NoError(t, svc.db.Model(&Rate{}).Count(&count).Error)
	assert.Zero(t, count)
}
