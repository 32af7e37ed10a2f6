package metrics

import (
	"devlogd/internal/global"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRegistry_Search(t *testing.T) {
	reg, ts := setupRegistryWithData(t)

	tests := []struct {
		name            string
		metricName      string
		namespacePrefix []string
		start           time.Time
		end             time.Time
		want            int
	}{
		{"all metrics", "", nil, time.Time{}, time.Time{}, 8},
		{"exact name only", "queue", nil, time.Time{}, time.Time{}, 0},
		{"queue_depth all namespaces", "queue_depth", nil, time.Time{}, time.Time{}, 4},
		{"queue_depth ingest only", "queue_depth", []string{"Daemon", "Collector"}, time.Time{}, time.Time{}, 3},
		{"namespace prefix Daemon", "", []string{"Daemon"}, time.Time{}, time.Time{}, 8},
		{"negative value included", "queue_depth", []string{"Daemon", "Collector"}, ts["ts3"], ts["ts3"], 1},
		{"time window exact bounds", "", nil, ts["ts2"], ts["ts3"], 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := reg.Search(tt.metricName, tt.namespacePrefix, tt.start, tt.end)
			if len(results) != tt.want {
				t.Fatalf("expected %d results, got %d", tt.want, len(results))
			}
		})
	}
}

func TestRegistry_Aggregate(t *testing.T) {
	reg, ts := setupRegistryWithData(t)

	tests := []struct {
		name      string
		aggType   string
		metric    string
		want      float64
		wantError bool
	}{
		{"sum mixed types", global.MetricSum, "queue_depth", 25, false}, // 10 + 20 + (-5)
		{"min negative", global.MetricMin, "queue_depth", -5, false},
		{"max mixed types", global.MetricMax, "queue_depth", 20, false},
		{"avg mixed types", global.MetricAvg, "queue_depth", 25.0 / 3.0, false},
		{"string numeric aggregation", global.MetricSum, "elapsed_time", 250, false},
		{"non-numeric error", global.MetricSum, "bad_metric", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := reg.Aggregate(
				tt.aggType,
				tt.metric,
				[]string{"Daemon", "Collector"},
				ts["ts1"],
				ts["ts3"],
			)

			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Value.Raw != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, result.Value.Raw)
			}
		})
	}
}

func TestRegistry_Aggregate_NoResults(t *testing.T) {
	reg, _ := setupRegistryWithData(t)
	_, err := reg.Aggregate(
		global.MetricSum,
		"missing",
		[]string{"Daemon"},
		time.Time{},
		time.Time{},
	)

	if err == nil {
		t.Fatalf("expected error for empty aggregation result")
	}
}

func TestRegistry_Discover(t *testing.T) {
	reg, _ := setupRegistryWithData(t)

	tests := []struct {
		name      string
		unit      string
		mType     MetricType
		ns        []string
		wantCount int
	}{
		{"all", "", "", nil, 6},
		{"elapsed_time both units", "ms", "", nil, 1},
		{"counter only", "", Counter, nil, 1},
		{"ingest namespace only", "", "", []string{"Daemon", "Collector"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := reg.Discover("", "", tt.ns, tt.unit, tt.mType)
			if len(results) != tt.wantCount {
				t.Fatalf("expected %d results, got %d", tt.wantCount, len(results))
			}
		})
	}
}

func TestExpandNamespace(t *testing.T) {
	tests := []struct {
		name  string
		query []string
		want  []string
	}{
		{"empty", nil, nil},
		{"only empty segments", []string{"", ""}, nil},
		{"bare component", []string{"kmsg"}, []string{global.NSDaemon, global.NSKmsg}},
		{"component alias", []string{"flow"}, []string{global.NSDaemon, global.NSFlow}},
		{"component with sub namespace", []string{"Store", "core", ""}, []string{global.NSDaemon, global.NSStore, "core"}},
		{"daemon prefix case folded", []string{"daemon", "collector"}, []string{global.NSDaemon, global.NSCollect}},
		{"daemon prefix unknown child kept", []string{"Daemon", "Server"}, []string{global.NSDaemon, "Server"}},
		{"unknown head untouched", []string{"Other", "x"}, []string{"Other", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandNamespace(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestComponentOf(t *testing.T) {
	tests := []struct {
		namespace []string
		want      string
	}{
		{[]string{global.NSDaemon, global.NSFlow}, global.NSFlow},
		{[]string{global.NSDaemon, global.NSTransport, global.NSListen, "0"}, global.NSTransport},
		{[]string{global.NSDaemon}, ""},
		{[]string{"Test", global.NSKmsg}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := ComponentOf(tt.namespace); got != tt.want {
			t.Errorf("ComponentOf(%v)=%q want %q", tt.namespace, got, tt.want)
		}
	}
}

func TestRegistry_ComponentQueries(t *testing.T) {
	reg := New()
	interval := 15 * time.Second
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		slice := reg.NewTimeSlice(base.Add(time.Duration(i)*interval), interval)
		reg.Add(slice, []Metric{
			{Name: "lines_read", Namespace: []string{global.NSDaemon, global.NSKmsg}, Type: Counter, Timestamp: slice,
				Value: MetricValue{Raw: uint64(10 * (i + 1)), Unit: "count", Interval: interval}},
			{Name: "read_failures", Namespace: []string{global.NSDaemon, global.NSKmsg}, Type: Counter, Timestamp: slice,
				Value: MetricValue{Raw: uint64(i), Unit: "count", Interval: interval}},
			{Name: "dropped_records", Namespace: []string{global.NSDaemon, global.NSFlow}, Type: Counter, Timestamp: slice,
				Value: MetricValue{Raw: uint64(3), Unit: "count", Interval: interval}},
			{Name: "accepted_records", Namespace: []string{global.NSDaemon, global.NSCollect}, Type: Counter, Timestamp: slice,
				Value: MetricValue{Raw: uint64(7), Unit: "count", Interval: interval}},
		})
	}

	t.Run("search by bare component orders by time then name", func(t *testing.T) {
		results := reg.Search("", []string{"kmsg"}, time.Time{}, time.Time{})
		wantNames := []string{"lines_read", "read_failures", "lines_read", "read_failures"}
		if len(results) != len(wantNames) {
			t.Fatalf("got %d results, want %d", len(results), len(wantNames))
		}
		for i, metric := range results {
			if metric.Name != wantNames[i] {
				t.Errorf("result %d: got %s want %s", i, metric.Name, wantNames[i])
			}
		}
		if results[0].Value.Raw != uint64(10) || results[2].Value.Raw != uint64(20) {
			t.Errorf("unexpected value order %v, %v", results[0].Value.Raw, results[2].Value.Raw)
		}
	})

	t.Run("aggregate over alias", func(t *testing.T) {
		result, err := reg.Aggregate(global.MetricSum, "dropped_records", []string{"flow"}, base, base.Add(interval))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Value.Raw != float64(6) {
			t.Fatalf("got %v want 6", result.Value.Raw)
		}
		if ComponentOf(result.Namespace) != global.NSFlow {
			t.Fatalf("aggregate namespace %v not expanded", result.Namespace)
		}
	})

	t.Run("discover groups by namespace", func(t *testing.T) {
		results := reg.Discover("", "", nil, "", Counter)
		want := []string{
			"Daemon/Collector accepted_records",
			"Daemon/FlowControl dropped_records",
			"Daemon/Kmsg lines_read",
			"Daemon/Kmsg read_failures",
		}
		if len(results) != len(want) {
			t.Fatalf("got %d results, want %d", len(results), len(want))
		}
		for i, metric := range results {
			got := strings.Join(metric.Namespace, "/") + " " + metric.Name
			if got != want[i] {
				t.Errorf("result %d: got %q want %q", i, got, want[i])
			}
			if metric.Value.Raw != nil || !metric.Timestamp.IsZero() {
				t.Errorf("discovered metric %q carries data", got)
			}
		}
	})
}
