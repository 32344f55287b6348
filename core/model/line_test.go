package model

import "testing"

func TestChangeoverMatrixMinutes(t *testing.T) {
	m := ChangeoverMatrix{
		"WIDGET-A->WIDGET-B": 20,
		"WIDGET-B->WIDGET-C": 50,
		"default":            40,
	}
	cases := []struct {
		name     string
		from, to string
		want     float64
	}{
		{"from empty line", "", "WIDGET-A", 0},
		{"same product", "WIDGET-A", "WIDGET-A", 0},
		{"directed pair", "WIDGET-A", "WIDGET-B", 20},
		{"reversed pair", "WIDGET-B", "WIDGET-A", 20},
		{"matrix default", "WIDGET-A", "WIDGET-C", 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.Minutes(tc.from, tc.to); got != tc.want {
				t.Fatalf("Minutes(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestChangeoverMatrixHardDefault(t *testing.T) {
	var nilMatrix ChangeoverMatrix
	if got := nilMatrix.Minutes("WIDGET-A", "WIDGET-B"); got != DefaultChangeoverMinutes {
		t.Fatalf("nil matrix Minutes = %v, want %v", got, DefaultChangeoverMinutes)
	}
	noDefault := ChangeoverMatrix{"X->Y": 15}
	if got := noDefault.Minutes("WIDGET-A", "WIDGET-B"); got != DefaultChangeoverMinutes {
		t.Fatalf("matrix without default Minutes = %v, want %v", got, DefaultChangeoverMinutes)
	}
}

func TestAllowedProducts(t *testing.T) {
	open := UnrestrictedProducts()
	if !open.Allows("ANYTHING") {
		t.Fatal("unrestricted list should allow any SKU")
	}
	if open.Restricted() {
		t.Fatal("unrestricted list reports restricted")
	}

	limited := ExplicitProducts([]string{"WIDGET-A", "WIDGET-B"})
	if !limited.Allows("WIDGET-A") {
		t.Fatal("explicit list should allow listed SKU")
	}
	if limited.Allows("WIDGET-C") {
		t.Fatal("explicit list should reject unlisted SKU")
	}
	if !limited.Restricted() {
		t.Fatal("explicit list should report restricted")
	}

	empty := ExplicitProducts(nil)
	if empty.Allows("WIDGET-A") {
		t.Fatal("empty explicit list should reject every SKU")
	}
}

func TestProductCycleTime(t *testing.T) {
	p := Product{StandardCycleTime: 2.5}
	if p.HasLearnedCycleTime() {
		t.Fatal("product without learned data reports learned cycle time")
	}
	if got := p.CycleTime(); got != 2.5 {
		t.Fatalf("CycleTime() = %v, want 2.5", got)
	}

	learned := 1.8
	p.LearnedCycleTime = &learned
	if !p.HasLearnedCycleTime() {
		t.Fatal("product with learned data reports no learned cycle time")
	}
	if got := p.CycleTime(); got != 1.8 {
		t.Fatalf("CycleTime() = %v, want 1.8", got)
	}
}
