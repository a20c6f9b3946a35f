package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/store"
)

const testCSV = `customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,MultipleLines,InternetService,OnlineSecurity,OnlineBackup,DeviceProtection,TechSupport,StreamingTV,StreamingMovies,Contract,PaperlessBilling,PaymentMethod,MonthlyCharges,TotalCharges,Churn
7590-VHVEG,Female,0,Yes,No,1,No,No phone service,DSL,No,Yes,No,No,No,No,Month-to-month,Yes,Electronic check,29.85,29.85,No
5575-GNVDE,Male,0,No,No,34,Yes,No,DSL,Yes,No,Yes,No,No,No,One year,No,Mailed check,56.95,1889.5,No
`

func writeTestCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestStatic_Customers(t *testing.T) {
	src := &Static{
		IDs: []string{"7590-vhveg", "5575-gnvde"},
		Fields: map[string]map[string]any{
			"7590-vhveg": {"contract": "month-to-month"},
		},
	}

	customers, err := src.Customers(context.Background(), nil)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("Customers() returned %d, want 2", len(customers))
	}
	if customers[0].ID != "7590-vhveg" || customers[0].Fields["contract"] != "month-to-month" {
		t.Errorf("customer[0] = %+v, want preset fields", customers[0])
	}
	if len(customers[1].Fields) != 0 {
		t.Errorf("customer[1] fields = %v, want empty", customers[1].Fields)
	}
}

func TestCSV_Customers(t *testing.T) {
	src := &CSV{Path: writeTestCSV(t)}

	customers, err := src.Customers(context.Background(), nil)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("Customers() returned %d, want 2", len(customers))
	}

	first := customers[0]
	if first.ID != "7590-vhveg" {
		t.Errorf("ID = %q, want 7590-vhveg (normalized)", first.ID)
	}
	if first.Fields["gender"] != "female" {
		t.Errorf("gender = %v, want female", first.Fields["gender"])
	}
	if first.Fields["multiplelines"] != "no_phone_service" {
		t.Errorf("multiplelines = %v, want no_phone_service", first.Fields["multiplelines"])
	}
	if first.Fields["paymentmethod"] != "electronic_check" {
		t.Errorf("paymentmethod = %v, want electronic_check", first.Fields["paymentmethod"])
	}
	if first.Fields["tenure"] != 1.0 {
		t.Errorf("tenure = %v, want 1.0", first.Fields["tenure"])
	}
	if customers[1].Fields["contract"] != "one_year" {
		t.Errorf("contract = %v, want one_year", customers[1].Fields["contract"])
	}
}

func TestCSV_Limit(t *testing.T) {
	src := &CSV{Path: writeTestCSV(t), Limit: 1}

	customers, err := src.Customers(context.Background(), nil)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if len(customers) != 1 || customers[0].ID != "7590-vhveg" {
		t.Errorf("Customers() = %d rows, want only first", len(customers))
	}
}

func TestStoreProvider_JSON(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	profile := []byte(`{"Contract":"Month-to-month","tenure":1,"MonthlyCharges":29.85}`)
	if err := s.Set(ctx, "churn:customer:7590-vhveg", profile); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	p := NewStoreProvider(s)
	fields, err := p.GetCustomerFields(ctx, "7590-vhveg")
	if err != nil {
		t.Fatalf("GetCustomerFields() error = %v", err)
	}
	if fields["contract"] != "month-to-month" {
		t.Errorf("contract = %v, want month-to-month (normalized)", fields["contract"])
	}
	if fields["tenure"] != 1.0 {
		t.Errorf("tenure = %v, want 1.0 (json number)", fields["tenure"])
	}

	if _, err := p.GetCustomerFields(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("GetCustomerFields(missing) error = %v, want store not found", err)
	}

	batch, err := p.BatchGetCustomerFields(ctx, []string{"7590-vhveg", "missing"})
	if err != nil {
		t.Fatalf("BatchGetCustomerFields() error = %v", err)
	}
	if len(batch) != 1 {
		t.Errorf("BatchGetCustomerFields() returned %d profiles, want 1", len(batch))
	}
}

func TestStoreProvider_HashLayout(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	key := "churn:customer:7590-vhveg"
	fields := map[string]string{
		"Contract":       "Month-to-month",
		"tenure":         "1",
		"MonthlyCharges": "29.85",
	}
	for f, v := range fields {
		if err := s.HSet(ctx, key, f, []byte(v)); err != nil {
			t.Fatalf("HSet() error = %v", err)
		}
	}

	p := NewStoreProvider(s, WithHashLayout())
	got, err := p.GetCustomerFields(ctx, "7590-vhveg")
	if err != nil {
		t.Fatalf("GetCustomerFields() error = %v", err)
	}
	if got["contract"] != "month-to-month" {
		t.Errorf("contract = %v, want month-to-month", got["contract"])
	}
	if got["tenure"] != 1.0 {
		t.Errorf("tenure = %v (%T), want float64 1.0 per schema", got["tenure"], got["tenure"])
	}
	if got["monthlycharges"] != 29.85 {
		t.Errorf("monthlycharges = %v, want 29.85", got["monthlycharges"])
	}
}

func TestStore_Customers(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	// 名单按概率排好的有序集合
	if err := s.ZAdd(ctx, "churn:watchlist", 0.9, "9305-cdskc"); err != nil {
		t.Fatalf("ZAdd() error = %v", err)
	}
	if err := s.ZAdd(ctx, "churn:watchlist", 0.4, "7590-vhveg"); err != nil {
		t.Fatalf("ZAdd() error = %v", err)
	}
	if err := s.Set(ctx, "churn:customer:9305-cdskc", []byte(`{"contract":"month-to-month"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	src := &Store{
		Backend:  s,
		Key:      "churn:watchlist",
		Provider: NewStoreProvider(s),
	}
	customers, err := src.Customers(ctx, nil)
	if err != nil {
		t.Fatalf("Customers() error = %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("Customers() returned %d, want 2", len(customers))
	}
	if customers[0].ID != "9305-cdskc" {
		t.Errorf("head = %s, want 9305-cdskc (highest score first)", customers[0].ID)
	}
	if customers[0].Fields["contract"] != "month-to-month" {
		t.Errorf("head fields = %v, want hydrated profile", customers[0].Fields)
	}
	if len(customers[1].Fields) != 0 {
		t.Errorf("tail fields = %v, want empty (no profile)", customers[1].Fields)
	}
}

type countingProvider struct {
	profiles map[string]map[string]any
	calls    int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) GetCustomerFields(_ context.Context, id string) (map[string]any, error) {
	p.calls++
	fields, ok := p.profiles[id]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return fields, nil
}

func (p *countingProvider) BatchGetCustomerFields(_ context.Context, ids []string) (map[string]map[string]any, error) {
	p.calls++
	out := make(map[string]map[string]any)
	for _, id := range ids {
		if fields, ok := p.profiles[id]; ok {
			out[id] = fields
		}
	}
	return out, nil
}

func (p *countingProvider) Close(context.Context) error { return nil }

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) GetCustomerFields(context.Context, string) (map[string]any, error) {
	return nil, errors.New("upstream down")
}
func (failingProvider) BatchGetCustomerFields(context.Context, []string) (map[string]map[string]any, error) {
	return nil, errors.New("upstream down")
}
func (failingProvider) Close(context.Context) error { return nil }

func TestFallbackProvider(t *testing.T) {
	ctx := context.Background()
	backup := &countingProvider{profiles: map[string]map[string]any{
		"7590-vhveg": {"contract": "month-to-month"},
	}}
	p := NewFallbackProvider(failingProvider{}, backup)

	fields, err := p.GetCustomerFields(ctx, "7590-vhveg")
	if err != nil {
		t.Fatalf("GetCustomerFields() error = %v", err)
	}
	if fields["contract"] != "month-to-month" {
		t.Errorf("fields = %v, want backup profile", fields)
	}

	if _, err := p.GetCustomerFields(ctx, "missing"); err == nil {
		t.Errorf("GetCustomerFields(missing) error = nil, want error")
	}

	batch, err := p.BatchGetCustomerFields(ctx, []string{"7590-vhveg", "missing"})
	if err != nil {
		t.Fatalf("BatchGetCustomerFields() error = %v", err)
	}
	if len(batch) != 1 {
		t.Errorf("batch = %v, want one profile from backup", batch)
	}
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	inner := &countingProvider{profiles: map[string]map[string]any{
		"7590-vhveg": {"contract": "month-to-month"},
	}}
	p := NewCachedProvider(inner, 100, time.Minute)
	defer p.Close(ctx)

	for i := 0; i < 3; i++ {
		fields, err := p.GetCustomerFields(ctx, "7590-vhveg")
		if err != nil {
			t.Fatalf("GetCustomerFields() run %d error = %v", i, err)
		}
		if fields["contract"] != "month-to-month" {
			t.Errorf("run %d fields = %v", i, fields)
		}
	}
	if inner.calls != 1 {
		t.Errorf("underlying provider hit %d times, want 1 (cache)", inner.calls)
	}

	batch, err := p.BatchGetCustomerFields(ctx, []string{"7590-vhveg"})
	if err != nil || len(batch) != 1 {
		t.Fatalf("BatchGetCustomerFields() = (%v, %v), want cached hit", batch, err)
	}
	if inner.calls != 1 {
		t.Errorf("underlying provider hit %d times after batch, want still 1", inner.calls)
	}
}

func TestEnrichNode_Process(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{profiles: map[string]map[string]any{
		"7590-vhveg": {"contract": "month-to-month", "tenure": 1.0},
	}}
	node := &EnrichNode{Provider: provider}

	bare := core.NewCustomer("7590-vhveg")
	bare.Fields["tenure"] = 12.0 // 已有字段默认不被覆盖
	unknown := core.NewCustomer("0000-aaaa")

	out, err := node.Process(ctx, nil, []*core.Customer{bare, unknown})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Process() returned %d, want 2", len(out))
	}

	if bare.Fields["contract"] != "month-to-month" {
		t.Errorf("contract = %v, want enriched", bare.Fields["contract"])
	}
	if bare.Fields["tenure"] != 12.0 {
		t.Errorf("tenure = %v, want 12.0 (existing field kept)", bare.Fields["tenure"])
	}
	if _, ok := bare.GetLabel("enriched"); !ok {
		t.Errorf("enriched label missing")
	}
	if _, ok := unknown.GetLabel("enriched"); ok {
		t.Errorf("unknown customer should not be labeled enriched")
	}

	t.Run("overwrite mode", func(t *testing.T) {
		node := &EnrichNode{Provider: provider, Overwrite: true}
		c := core.NewCustomer("7590-vhveg")
		c.Fields["tenure"] = 12.0
		if _, err := node.Process(ctx, nil, []*core.Customer{c}); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if c.Fields["tenure"] != 1.0 {
			t.Errorf("tenure = %v, want 1.0 (overwritten)", c.Fields["tenure"])
		}
	})
}

type namedSource struct {
	name string
	ids  []string
	err  error
}

func (s *namedSource) Name() string { return s.name }

func (s *namedSource) Customers(context.Context, *core.BatchContext) ([]*core.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Customer, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, core.NewCustomer(id))
	}
	return out, nil
}

type slowSource struct {
	delay time.Duration
}

func (s *slowSource) Name() string { return "slow" }

func (s *slowSource) Customers(ctx context.Context, _ *core.BatchContext) ([]*core.Customer, error) {
	select {
	case <-time.After(s.delay):
		return []*core.Customer{core.NewCustomer("late")}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestFanout_MergeFirst(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&namedSource{name: "watchlist", ids: []string{"a", "b"}},
			&namedSource{name: "full", ids: []string{"b", "c"}},
		},
		Dedup: true,
	}

	out, err := n.Process(context.Background(), &core.BatchContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Process() returned %d customers, want 3 deduped", len(out))
	}
	seen := make(map[string]bool)
	for _, c := range out {
		if seen[c.ID] {
			t.Errorf("duplicate customer %s", c.ID)
		}
		seen[c.ID] = true
		if _, ok := c.GetLabel("source"); !ok {
			t.Errorf("customer %s missing source label", c.ID)
		}
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("customer %s missing from merge", id)
		}
	}
}

func TestFanout_MergePriority(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&namedSource{name: "watchlist", ids: []string{"b"}},
			&namedSource{name: "full", ids: []string{"b", "c"}},
		},
		Dedup:         true,
		MergeStrategy: MergePriority,
	}

	out, err := n.Process(context.Background(), &core.BatchContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Process() returned %d customers, want 2", len(out))
	}
	var b *core.Customer
	for _, c := range out {
		if c.ID == "b" {
			b = c
		}
	}
	if b == nil {
		t.Fatalf("customer b missing")
	}
	if got := sourcePriority(b); got != 0 {
		t.Errorf("b priority = %d, want 0 (watchlist wins)", got)
	}
}

func TestFanout_SourceErrorIgnored(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&namedSource{name: "broken", err: errors.New("boom")},
			&namedSource{name: "full", ids: []string{"a"}},
		},
	}

	out, err := n.Process(context.Background(), &core.BatchContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("Process() = %v, want single customer from healthy source", out)
	}
}

func TestFanout_Timeout(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&slowSource{delay: time.Second},
			&namedSource{name: "fast", ids: []string{"a"}},
		},
		Timeout: 20 * time.Millisecond,
	}

	out, err := n.Process(context.Background(), &core.BatchContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("Process() = %d customers, want only the fast source's", len(out))
	}
}

func TestFanout_MaxConcurrent(t *testing.T) {
	n := &Fanout{
		Sources: []Source{
			&namedSource{name: "s1", ids: []string{"a"}},
			&namedSource{name: "s2", ids: []string{"b"}},
			&namedSource{name: "s3", ids: []string{"c"}},
		},
		MaxConcurrent: 1,
	}

	out, err := n.Process(context.Background(), &core.BatchContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 3 {
		t.Errorf("Process() returned %d customers, want 3", len(out))
	}
}
