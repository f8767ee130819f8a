package number

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		full  string
		local string
	}{
		{"national", "0311234567", "+41311234567", "0311234567"},
		{"national with spaces", "031 123 45 67", "+41311234567", "0311234567"},
		{"international plus", "+41311234567", "+41311234567", "0311234567"},
		{"international zeros", "0041311234567", "+41311234567", "0311234567"},
		{"foreign plus", "+491701234567", "+491701234567", "+491701234567"},
		{"foreign zeros", "00491701234567", "+491701234567", "+491701234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Parse(tt.in)
			if n.Full != tt.full {
				t.Errorf("Full = %q, want %q", n.Full, tt.full)
			}
			if n.Local != tt.local {
				t.Errorf("Local = %q, want %q", n.Local, tt.local)
			}
			if !n.Valid {
				t.Error("Parse should not invalidate numbers")
			}
		})
	}
}

func TestParseValidated(t *testing.T) {
	if n := ParseValidated("0311234567"); !n.Valid {
		t.Errorf("expected %q to be valid", "0311234567")
	}
	if n := ParseValidated("abc"); n.Valid {
		t.Error("expected garbage input to be invalid")
	}
	if n := ParseValidated("0"); n.Valid {
		t.Error("expected a single digit to be invalid")
	}
}

func TestDisplayNameAndCallerID(t *testing.T) {
	n := Parse("0311234567")
	if got := n.DisplayName(); got != "0311234567" {
		t.Errorf("DisplayName = %q, want local number", got)
	}
	if got := n.CallerID(); got != "0311234567 <0311234567>" {
		t.Errorf("CallerID = %q", got)
	}

	n.Name = "Muster AG"
	if got := n.DisplayName(); got != "Muster AG" {
		t.Errorf("DisplayName = %q, want resolved name", got)
	}
	if got := n.CallerID(); got != "Muster AG <0311234567>" {
		t.Errorf("CallerID = %q", got)
	}
}

func TestAnonymous(t *testing.T) {
	if !Parse("anonymous").Anonymous() {
		t.Error("anonymous caller not detected")
	}
	if Parse("0311234567").Anonymous() {
		t.Error("regular number flagged anonymous")
	}
}
