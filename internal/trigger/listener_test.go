package trigger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestYearFromPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{name: "numeric year", payload: `{"id":"a1","courseId":"c1","year":2024}`, want: 2024},
		{name: "string year", payload: `{"id":"a1","courseId":"c1","year":"2023"}`, want: 2023},
		{name: "missing year", payload: `{"id":"a1","courseId":"c1","year":null}`, want: 2025},
		{name: "nonsense year", payload: `{"id":"a1","year":"soon"}`, want: 2025},
		{name: "out of range year", payload: `{"id":"a1","year":3}`, want: 2025},
		{name: "not json", payload: `attendance`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := yearFromPayload(tc.payload, 2025)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestListener_DrainIsBounded(t *testing.T) {
	l := NewListener("", "attendance_written", nil, nil)
	l.drainTimeout = 50 * time.Millisecond

	var wg sync.WaitGroup
	wg.Add(1)
	stuck := make(chan struct{})
	go func() {
		defer wg.Done()
		<-stuck
	}()
	defer close(stuck)

	start := time.Now()
	require.False(t, l.drain(&wg), "a trigger still running is reported")
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestListener_DrainWaitsForFinishedTriggers(t *testing.T) {
	l := NewListener("", "attendance_written", nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
	}()

	require.True(t, l.drain(&wg))
}
