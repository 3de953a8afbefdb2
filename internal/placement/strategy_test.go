package placement

import "testing"

func TestSelectStrategy_Thresholds(t *testing.T) {
	tests := []struct {
		count int
		want  Strategy
	}{
		{0, StrategyDirect},
		{1, StrategyDirect},
		{2, StrategySimple},
		{4, StrategySimple},
		{5, StrategyTwoZone},
		{8, StrategyTwoZone},
		{9, StrategyFullZone},
		{250, StrategyFullZone},
	}

	for _, tt := range tests {
		if got := SelectStrategy(tt.count); got != tt.want {
			t.Errorf("SelectStrategy(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestMaxComparisons_Budget(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 0}, {1, 1}, {2, 2},
		{3, 3}, {5, 3},
		{6, 4}, {10, 4},
		{11, 5}, {20, 5},
		{21, 6}, {1000, 6},
	}

	for _, tt := range tests {
		if got := MaxComparisons(tt.count); got != tt.want {
			t.Errorf("MaxComparisons(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestDefineZones_SimpleCollapses(t *testing.T) {
	z := DefineZones(3, StrategySimple)
	full := Span{Start: 1, End: 4}
	for _, zone := range zoneOrder {
		if got := z.Get(zone); got != full {
			t.Errorf("zone %s = %+v, want %+v", zone, got, full)
		}
	}
}

func TestDefineZones_TwoZone(t *testing.T) {
	z := DefineZones(6, StrategyTwoZone)

	if z.Top != (Span{1, 3}) || z.UpperMiddle != z.Top {
		t.Errorf("upper half = %+v / %+v, want {1 3}", z.Top, z.UpperMiddle)
	}
	if z.Middle != (Span{3, 3}) {
		t.Errorf("middle = %+v, want single point {3 3}", z.Middle)
	}
	if z.Bottom != (Span{4, 7}) || z.LowerMiddle != z.Bottom {
		t.Errorf("lower half = %+v / %+v, want {4 7}", z.Bottom, z.LowerMiddle)
	}
}

func TestDefineZones_FullZone(t *testing.T) {
	tests := []struct {
		count int
		want  Zones
	}{
		{10, Zones{
			Top:         Span{1, 2},
			UpperMiddle: Span{3, 4},
			Middle:      Span{5, 6},
			LowerMiddle: Span{7, 8},
			Bottom:      Span{9, 11},
		}},
		{20, Zones{
			Top:         Span{1, 4},
			UpperMiddle: Span{5, 8},
			Middle:      Span{9, 12},
			LowerMiddle: Span{13, 16},
			Bottom:      Span{17, 21},
		}},
	}

	for _, tt := range tests {
		if got := DefineZones(tt.count, StrategyFullZone); got != tt.want {
			t.Errorf("DefineZones(%d) = %+v, want %+v", tt.count, got, tt.want)
		}
	}
}

func TestDefineZones_TopBandAtLeastTwoWide(t *testing.T) {
	z := DefineZones(9, StrategyFullZone)
	if width := z.Top.End - z.Top.Start + 1; width < 2 {
		t.Errorf("top band width = %d, want >= 2", width)
	}
}

func TestInitialZone(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		position int
		count    int
		want     Zone
	}{
		{"direct", StrategyDirect, 1, 1, ZoneMiddle},
		{"simple", StrategySimple, 2, 3, ZoneMiddle},
		{"two-zone-upper", StrategyTwoZone, 3, 6, ZoneTop},
		{"two-zone-lower", StrategyTwoZone, 4, 6, ZoneBottom},
		{"full-zone-always-middle", StrategyFullZone, 1, 30, ZoneMiddle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InitialZone(tt.strategy, tt.position, tt.count); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdjustZone(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		from     Zone
		result   Result
		want     Zone
	}{
		{"full-up", StrategyFullZone, ZoneMiddle, ResultBetter, ZoneUpperMiddle},
		{"full-down", StrategyFullZone, ZoneMiddle, ResultWorse, ZoneLowerMiddle},
		{"full-saturates-top", StrategyFullZone, ZoneTop, ResultBetter, ZoneTop},
		{"full-saturates-bottom", StrategyFullZone, ZoneBottom, ResultWorse, ZoneBottom},
		{"two-zone-up", StrategyTwoZone, ZoneBottom, ResultBetter, ZoneTop},
		{"two-zone-down", StrategyTwoZone, ZoneTop, ResultWorse, ZoneBottom},
		{"skip-holds", StrategyFullZone, ZoneMiddle, ResultSkipped, ZoneMiddle},
		{"simple-holds", StrategySimple, ZoneMiddle, ResultBetter, ZoneMiddle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adjustZone(tt.strategy, tt.from, tt.result); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStrategies_CoversSelector(t *testing.T) {
	all := Strategies()
	want := []Strategy{StrategyDirect, StrategySimple, StrategyTwoZone, StrategyFullZone}
	if len(all) != len(want) {
		t.Fatalf("strategies = %v, want %v", all, want)
	}
	known := map[Strategy]bool{}
	for i, s := range all {
		if s != want[i] {
			t.Errorf("strategies[%d] = %q, want %q", i, s, want[i])
		}
		known[s] = true
	}
	for n := 0; n <= 50; n++ {
		if s := SelectStrategy(n); !known[s] {
			t.Errorf("SelectStrategy(%d) = %q, not listed", n, s)
		}
	}

	all[0] = "mutated"
	if Strategies()[0] != StrategyDirect {
		t.Error("callers can mutate the shared strategy list")
	}
}
