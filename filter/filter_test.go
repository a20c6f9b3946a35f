package filter

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rushteam/churnkit/core"
)

type fakeStore struct {
	data map[string][]byte
}

func (s *fakeStore) Name() string { return "fake" }

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte, _ ...int) error {
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *fakeStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *fakeStore) BatchSet(_ context.Context, kvs map[string][]byte, _ ...int) error {
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	for k, v := range kvs {
		s.data[k] = v
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

func TestDoNotContactFilter(t *testing.T) {
	ctx := context.Background()
	adapter := NewStoreAdapter(&fakeStore{data: map[string][]byte{
		"churn:dnc": []byte(`["9305-cdskc","1452-kiovk"]`),
	}})

	tests := []struct {
		name   string
		filter *DoNotContactFilter
		id     string
		want   bool
	}{
		{"in memory list", NewDoNotContactFilter([]string{"7590-vhveg"}, nil, ""), "7590-vhveg", true},
		{"not in memory list", NewDoNotContactFilter([]string{"7590-vhveg"}, nil, ""), "5575-gnvde", false},
		{"in store list", NewDoNotContactFilter(nil, adapter, "churn:dnc"), "9305-cdskc", true},
		{"not in store list", NewDoNotContactFilter(nil, adapter, "churn:dnc"), "5575-gnvde", false},
		{"missing store key", NewDoNotContactFilter(nil, adapter, "churn:other"), "9305-cdskc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.ShouldFilter(ctx, nil, core.NewCustomer(tt.id))
			if err != nil {
				t.Fatalf("ShouldFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecentlyContactedFilter(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Unix()
	adapter := NewStoreAdapter(&fakeStore{data: map[string][]byte{
		"churn:contacted:7590-vhveg": []byte(strconv.FormatInt(now-3600, 10)),
		"churn:contacted:5575-gnvde": []byte(strconv.FormatInt(now-90*24*3600, 10)),
		"churn:contacted:9305-cdskc": []byte(time.Unix(now-60, 0).UTC().Format(time.RFC3339)),
	}})
	const thirtyDays = 30 * 24 * 3600

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"contacted an hour ago", "7590-vhveg", true},
		{"contacted ninety days ago", "5575-gnvde", false},
		{"rfc3339 timestamp", "9305-cdskc", true},
		{"never contacted", "1452-kiovk", false},
	}
	f := NewRecentlyContactedFilter(adapter, "churn:contacted", thirtyDays)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(ctx, nil, core.NewCustomer(tt.id))
			if err != nil {
				t.Fatalf("ShouldFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("cooldown disabled", func(t *testing.T) {
		disabled := NewRecentlyContactedFilter(adapter, "churn:contacted", 0)
		got, err := disabled.ShouldFilter(ctx, nil, core.NewCustomer("7590-vhveg"))
		if err != nil {
			t.Fatalf("ShouldFilter() error = %v", err)
		}
		if got {
			t.Errorf("ShouldFilter() = true with zero cooldown, want false")
		}
	})
}

func TestMinTenureFilter(t *testing.T) {
	ctx := context.Background()
	f := NewMinTenureFilter(3)

	customer := func(tenure any) *core.Customer {
		c := core.NewCustomer("7590-vhveg")
		if tenure != nil {
			c.Fields["tenure"] = tenure
		}
		return c
	}

	tests := []struct {
		name   string
		tenure any
		want   bool
	}{
		{"below minimum", 1.0, true},
		{"at minimum", 3.0, false},
		{"above minimum", 24.0, false},
		{"integer value", 2, true},
		{"missing field", nil, false},
		{"unparseable value", "soon", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(ctx, nil, customer(tt.tenure))
			if err != nil {
				t.Fatalf("ShouldFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterNode_Process(t *testing.T) {
	ctx := context.Background()
	bctx := &core.BatchContext{JobID: "test-job"}

	dnc := NewDoNotContactFilter([]string{"9305-cdskc"}, nil, "")
	minTenure := NewMinTenureFilter(3)
	node := &FilterNode{Filters: []Filter{dnc, minTenure}}

	keep := core.NewCustomer("7590-vhveg")
	keep.Fields["tenure"] = 24.0
	blocked := core.NewCustomer("9305-cdskc")
	blocked.Fields["tenure"] = 24.0
	fresh := core.NewCustomer("5575-gnvde")
	fresh.Fields["tenure"] = 1.0

	out, err := node.Process(ctx, bctx, []*core.Customer{keep, nil, blocked, fresh})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "7590-vhveg" {
		t.Fatalf("Process() kept %d customers, want only 7590-vhveg", len(out))
	}

	if lbl, ok := blocked.GetLabel("filtered"); !ok || lbl.Source != "filter.do_not_contact" {
		t.Errorf("blocked customer label = %+v, want source filter.do_not_contact", lbl)
	}
	if lbl, ok := fresh.GetLabel("filtered"); !ok || lbl.Source != "filter.min_tenure" {
		t.Errorf("fresh customer label = %+v, want source filter.min_tenure", lbl)
	}

	t.Run("no filters keeps input", func(t *testing.T) {
		empty := &FilterNode{}
		customers := []*core.Customer{keep}
		out, err := empty.Process(ctx, bctx, customers)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(out) != 1 {
			t.Errorf("Process() kept %d customers, want 1", len(out))
		}
	})
}
