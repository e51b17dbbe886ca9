package money

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	t.Run("accepts strict wire format", func(t *testing.T) {
		for _, s := range []string{"0.00", "100.00", "0.01", "999999999.99"} {
			a, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", s, err)
			}
			if a.String() != s {
				t.Errorf("Parse(%q).String() = %q", s, a.String())
			}
		}
	})

	t.Run("rejects anything else", func(t *testing.T) {
		for _, s := range []string{"", "100", "100.0", "100.000", "-5.00", "+5.00", "1,000.00", "abc", "1e2", "100.00 "} {
			if _, err := Parse(s); err == nil {
				t.Errorf("Parse(%q) expected error", s)
			}
		}
	})
}

func TestParseLoose(t *testing.T) {
	a, err := ParseLoose("100.5")
	if err != nil {
		t.Fatalf("ParseLoose error: %v", err)
	}
	if a.String() != "100.50" {
		t.Errorf("got %q, want 100.50", a.String())
	}
}

func TestIsPositive(t *testing.T) {
	if MustParse("0.00").IsPositive() {
		t.Error("0.00 must not be positive")
	}
	if !MustParse("0.01").IsPositive() {
		t.Error("0.01 must be positive")
	}
}

func TestArithmetic(t *testing.T) {
	a := MustParse("10.10")
	b := MustParse("0.20")
	if got := a.Add(b).String(); got != "10.30" {
		t.Errorf("Add = %q", got)
	}
	if got := a.Sub(b).String(); got != "9.90" {
		t.Errorf("Sub = %q", got)
	}
	if a.Cmp(b) != 1 || b.Cmp(a) != -1 || a.Cmp(a) != 0 {
		t.Error("Cmp ordering wrong")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(MustParse("42.00"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"42.00"` {
		t.Errorf("marshal = %s, want string", raw)
	}
	var a Amount
	if err := json.Unmarshal(raw, &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.String() != "42.00" {
		t.Errorf("round trip = %q", a.String())
	}
}
