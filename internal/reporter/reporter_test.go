package reporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/supervisor"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func testReport() *Report {
	return BuildReport([]supervisor.SlotStatus{
		{SlotID: "gpu0", Ticker: "ICX", State: supervisor.SlotStateRunning, Score: 0.8, Since: time.Now()},
		{SlotID: "gpu1", State: supervisor.SlotStateIdle, Since: time.Now()},
	}, false)
}

func TestReporterDelivers(t *testing.T) {
	received := make(chan *Report, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep Report
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rep))
		received <- &rep
	}))
	defer srv.Close()

	rep := NewReporter(srv.URL, time.Hour, 10, 1, testReport, lib.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = rep.Run(ctx)
	}()

	rep.Enqueue(testReport())

	select {
	case got := <-received:
		require.Len(t, got.Slots, 2)
		require.Equal(t, "ICX", got.Slots[0].Ticker)
		require.Equal(t, "running", got.Slots[0].State)
		require.Equal(t, "", got.Slots[1].Ticker)
		require.Equal(t, "idle", got.Slots[1].State)
	case <-time.After(time.Second):
		t.Fatal("report not delivered")
	}
}

func TestReporterDropsAfterExhaustedAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rep := NewReporter(srv.URL, time.Hour, 10, 1, testReport, lib.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = rep.Run(ctx)
	}()

	rep.Enqueue(testReport())

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// queue drained, report dropped, no retry storm with maxAttempts 1
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
}

func TestReporterQueueOverflowDropsOldest(t *testing.T) {
	rep := NewReporter("http://dashboard.local/report", time.Hour, 2, 1, testReport, lib.NewTestLogger())

	first := testReport()
	rep.Enqueue(first)
	rep.Enqueue(testReport())
	rep.Enqueue(testReport())

	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.Equal(t, 2, rep.queue.Len())
	require.NotSame(t, first, rep.queue.Front(), "oldest report is evicted first")
}

func TestReporterDeliveryFailureDoesNotBlockEnqueue(t *testing.T) {
	// no server listening at all
	rep := NewReporter("http://127.0.0.1:1/report", time.Hour, 5, 1, testReport, lib.NewTestLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			rep.Enqueue(testReport())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked")
	}
}
