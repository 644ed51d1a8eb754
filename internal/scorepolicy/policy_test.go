package scorepolicy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adivish/fundlens/internal/contracts"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	if err := Validate(p); err != nil {
		t.Fatalf("built-in policy invalid: %v", err)
	}

	hash, err := Hash(p)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// Same policy, same hash.
	hash2, _ := Hash(p)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	// A changed threshold must change the hash.
	p2 := Default()
	p2.Ranking.MinPeerGroup = 12
	hash3, _ := Hash(p2)
	if hash == hash3 {
		t.Error("hash unchanged after editing the policy")
	}

	t.Logf("policy %s@%s hash: %s", p.Meta.PolicyID, p.Meta.Version, hash)
}

func TestLoadRoundTrip(t *testing.T) {
	p := Default()
	data, err := MarshalYAML(p)
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp policy: %v", err)
	}

	loaded, raw, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected raw YAML bytes back")
	}

	// Round trip must preserve every field, which the hash proves.
	h1, _ := Hash(p)
	h2, _ := Hash(loaded)
	if h1 != h2 {
		t.Errorf("round-trip changed the policy: %s != %s", h1, h2)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	data, err := MarshalYAML(Default())
	if err != nil {
		t.Fatalf("MarshalYAML failed: %v", err)
	}
	data = append(data, []byte("surprise_knob: 42\n")...)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp policy: %v", err)
	}

	if _, _, err := Load(path); err == nil {
		t.Error("expected unknown field to fail the load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	p, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if p.Meta.PolicyID == "" {
		t.Error("expected built-in policy")
	}
}

func TestFloorTableScore(t *testing.T) {
	table := Default().Risk.SharpeTiers

	cases := []struct {
		value float64
		want  float64
	}{
		{2.5, 8.0},
		{2.0, 8.0},
		{1.5, 6.5},
		{0.9, 3.5},
		{0.0, 2.0},
		{-1.0, 0.5}, // below every tier -> floor
	}
	for _, tc := range cases {
		if got := table.Score(tc.value); got != tc.want {
			t.Errorf("Score(%.2f)=%v, want %v", tc.value, got, tc.want)
		}
	}

	if table.MaxPoints() != 8.0 {
		t.Errorf("expected max 8.0, got %v", table.MaxPoints())
	}
}

func TestCeilingTableScore(t *testing.T) {
	table := Default().Risk.VolatilityTiers

	cases := []struct {
		value float64
		want  float64
	}{
		{5.0, 8.0},
		{10.0, 8.0},
		{10.01, 6.5},
		{22.0, 3.5},
		{30.0, 2.0},
		{55.0, 0.5}, // above every tier -> floor
	}
	for _, tc := range cases {
		if got := table.Score(tc.value); got != tc.want {
			t.Errorf("Score(%.2f)=%v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestBandTableScore(t *testing.T) {
	table := Default().Fundamentals.AumTable("Equity")

	cases := []struct {
		aum  float64
		want float64
	}{
		{5000, 8.0},   // sweet spot
		{600, 6.5},    // small but established
		{30000, 6.5},  // large
		{80000, 5.0},  // unbounded top band
		{20, 2.0},     // tiny
		{5, 1.0},      // below every band -> floor
	}
	for _, tc := range cases {
		if got := table.Score(tc.aum); got != tc.want {
			t.Errorf("Score(%.0f)=%v, want %v", tc.aum, got, tc.want)
		}
	}

	// Unknown category falls back to the default table.
	def := Default().Fundamentals.AumTable("Commodity")
	if def.Score(5000) != 8.0 {
		t.Errorf("default table lookup broken: got %v", def.Score(5000))
	}
}

func TestReturnsScore(t *testing.T) {
	r := Default().Returns

	cases := []struct {
		pct  float64
		want float64
	}{
		{20.0, 8.0},
		{15.0, 8.0},
		{12.0, 6.4},
		{11.99, 4.8},
		{6.0, 3.2},
		{0.0, 1.6},
		{-5.0, -0.25}, // slope 0.05/pct
		{-10.0, -0.5},
		{-30.0, -0.5}, // floored
	}
	for _, tc := range cases {
		if got := r.Score(tc.pct); got != tc.want {
			t.Errorf("Score(%.2f)=%v, want %v", tc.pct, got, tc.want)
		}
	}
}

func TestQuartile(t *testing.T) {
	rk := Default().Ranking

	cases := []struct {
		percentile float64
		want       int
	}{
		{100, 1},
		{75, 1},
		{74.99, 2},
		{50, 2},
		{49.99, 3},
		{25, 3},
		{24.99, 4},
		{0, 4},
	}
	for _, tc := range cases {
		if got := rk.Quartile(tc.percentile); got != tc.want {
			t.Errorf("Quartile(%.2f)=%d, want %d", tc.percentile, got, tc.want)
		}
	}
}

func TestLabel(t *testing.T) {
	rec := Default().Recommendation
	q := func(n int) *int { return &n }

	cases := []struct {
		name     string
		total    float64
		quartile *int
		want     contracts.Recommendation
	}{
		{"top quartile high total", 85, q(1), contracts.StrongBuy},
		{"q2 blocks strong buy", 85, q(2), contracts.Buy},
		{"q1 but total below 70", 65, q(1), contracts.Buy},
		{"hold has no quartile gate", 50, q(4), contracts.Hold},
		{"sell band", 30, q(4), contracts.Sell},
		{"bottom", 10, q(4), contracts.StrongSell},
		{"unranked caps at buy", 90, nil, contracts.Buy},
		{"unranked hold", 55, nil, contracts.Hold},
		{"unranked sell", 40, nil, contracts.Sell},
		{"unranked bottom", 20, nil, contracts.StrongSell},
	}
	for _, tc := range cases {
		if got := rec.Label(tc.total, tc.quartile); got != tc.want {
			t.Errorf("%s: Label(%.0f)=%s, want %s", tc.name, tc.total, got, tc.want)
		}
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"missing policy id", func(p *Policy) { p.Meta.PolicyID = "" }},
		{"duplicate horizon", func(p *Policy) { p.Returns.Horizons[1].Name = p.Returns.Horizons[0].Name }},
		{"zero tolerance", func(p *Policy) { p.Returns.Horizons[0].ToleranceDays = 0 }},
		{"tier order broken", func(p *Policy) { p.Returns.Tiers[0].Min = -1 }},
		{"positive negative_floor", func(p *Policy) { p.Returns.NegativeFloor = 0.5 }},
		{"one-member peer group", func(p *Policy) { p.Ranking.MinPeerGroup = 1 }},
		{"quartile thresholds tangled", func(p *Policy) { p.Ranking.QuartileQ2 = 80 }},
		{"composite max off", func(p *Policy) { p.Composite.Bound.Max = 90 }},
		{"no default expense table", func(p *Policy) { delete(p.Fundamentals.ExpenseTables, "default") }},
		{"overlapping aum bands", func(p *Policy) {
			t := p.Fundamentals.AumTables["Equity"]
			t.Bands = append(t.Bands, Band{Min: 900, Max: 1100, Points: 7})
			p.Fundamentals.AumTables["Equity"] = t
		}},
		{"outlier guard above 1", func(p *Policy) { p.Risk.OutlierGuard = 1.5 }},
		{"sell above hold", func(p *Policy) { p.Recommendation.Sell.MinTotal = 99 }},
	}

	for _, tc := range cases {
		p := Default()
		tc.mutate(p)
		if err := Validate(p); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestWarn(t *testing.T) {
	p := Default()
	p.Ranking.MinPeerGroup = 3
	p.Risk.RiskFreeRate = 0.12

	warnings := Warn(p)
	if len(warnings) < 2 {
		t.Errorf("expected at least 2 warnings, got %d", len(warnings))
	}
	for _, w := range warnings {
		t.Logf("%s: %s", w.Code, w.Message)
	}
}
