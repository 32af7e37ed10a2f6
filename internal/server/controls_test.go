package server

import (
	"context"
	"devlogd/internal/collector"
	"devlogd/internal/flowctrl"
	"devlogd/internal/stats"
	"devlogd/pkg/logrecord"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleStats(t *testing.T) {
	ctx := context.Background()
	source := &mockStats{snap: stats.Snapshot{Total: stats.Counter{Lines: 12, Bytes: 340}}}

	rr := httptest.NewRecorder()
	handleStats(ctx, source, rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d", rr.Code, http.StatusOK)
	}
	var snap stats.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("failed decoding snapshot: %v", err)
	}
	if snap.Total.Lines != 12 || snap.Total.Bytes != 340 {
		t.Errorf("unexpected totals: %+v", snap.Total)
	}

	rr = httptest.NewRecorder()
	handleStats(ctx, source, rr, httptest.NewRequest(http.MethodDelete, "/stats", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d want=%d", rr.Code, http.StatusNoContent)
	}
	if source.resets != 1 {
		t.Errorf("expected 1 reset, got %d", source.resets)
	}
}

func TestHandleSettings(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		method     string
		query      string
		initial    collector.Settings
		want       collector.Settings
		wantStatus int
	}{
		{
			name:       "get current",
			method:     http.MethodGet,
			initial:    collector.Settings{FlowControl: true},
			want:       collector.Settings{FlowControl: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "enable debug mode",
			method:     http.MethodPost,
			query:      "?debugMode=true",
			initial:    collector.Settings{FlowControl: true, Statistics: true},
			want:       collector.Settings{DebugMode: true, FlowControl: true, Statistics: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "change several",
			method:     http.MethodPost,
			query:      "?flowControl=false&statistics=1",
			initial:    collector.Settings{FlowControl: true},
			want:       collector.Settings{Statistics: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid value changes nothing",
			method:     http.MethodPost,
			query:      "?debugMode=true&statistics=maybe",
			initial:    collector.Settings{},
			want:       collector.Settings{},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			control := &mockSettings{settings: tt.initial}
			rr := httptest.NewRecorder()

			handleSettings(ctx, control, rr, httptest.NewRequest(tt.method, "/settings"+tt.query, nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want=%d", rr.Code, tt.wantStatus)
			}
			if control.settings != tt.want {
				t.Errorf("settings=%+v want=%+v", control.settings, tt.want)
			}
		})
	}
}

func TestHandleBuffer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		method     string
		query      string
		wantStatus int
		check      func(t *testing.T, control *mockBuffers, rr *httptest.ResponseRecorder)
	}{
		{
			name:       "list all types",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, control *mockBuffers, rr *httptest.ResponseRecorder) {
				var states []BufferState
				if err := json.NewDecoder(rr.Body).Decode(&states); err != nil {
					t.Fatalf("failed decoding: %v", err)
				}
				if len(states) != int(logrecord.TypeMax) {
					t.Fatalf("expected %d types, got %d", logrecord.TypeMax, len(states))
				}
				core := states[logrecord.TypeCore]
				if core.Type != "core" || core.Budget != 262144 || core.Usage != 100 {
					t.Errorf("unexpected core state: %+v", core)
				}
			},
		},
		{
			name:       "resize",
			method:     http.MethodPost,
			query:      "?type=core&size=131072",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, control *mockBuffers, rr *httptest.ResponseRecorder) {
				if control.budget[logrecord.TypeCore] != 131072 {
					t.Errorf("budget not applied: %d", control.budget[logrecord.TypeCore])
				}
			},
		},
		{
			name:       "resize rejected by store",
			method:     http.MethodPost,
			query:      "?type=core&size=10",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "resize without size",
			method:     http.MethodPost,
			query:      "?type=core",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown type",
			method:     http.MethodDelete,
			query:      "?type=bogus",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "clear",
			method:     http.MethodDelete,
			query:      "?type=core",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, control *mockBuffers, rr *httptest.ResponseRecorder) {
				if len(control.cleared) != 1 || control.cleared[0] != logrecord.TypeCore {
					t.Errorf("unexpected clears: %v", control.cleared)
				}
				var state BufferState
				if err := json.NewDecoder(rr.Body).Decode(&state); err != nil {
					t.Fatalf("failed decoding: %v", err)
				}
				if state.Usage != 0 {
					t.Errorf("usage after clear = %d", state.Usage)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			control := newMockBuffers()
			rr := httptest.NewRecorder()

			handleBuffer(ctx, control, rr, httptest.NewRequest(tt.method, "/buffer"+tt.query, nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want=%d", rr.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, control, rr)
			}
		})
	}
}

func TestFlowEndpoint(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	flow := &mockFlow{windows: []flowctrl.WindowState{{Domain: 0xD002B00, Start: start, Count: 7, Dropped: 2, Quota: 5}}}

	server, err := SetupListener(context.Background(), 8080, Handlers{Flow: flow})
	if err != nil {
		t.Fatalf("SetupListener error: %v", err)
	}

	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/flowctrl", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d", rr.Code, http.StatusOK)
	}

	var windows []flowctrl.WindowState
	if err := json.NewDecoder(rr.Body).Decode(&windows); err != nil {
		t.Fatalf("failed decoding: %v", err)
	}
	if len(windows) != 1 || windows[0].Domain != 0xD002B00 || windows[0].Dropped != 2 || !windows[0].Start.Equal(start) {
		t.Errorf("unexpected windows: %+v", windows)
	}
}
