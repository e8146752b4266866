package gap

import (
	"reflect"
	"testing"
)

var testVendors = map[string]string{
	"carrier":  "carrier.com",
	"trane":    "trane.com",
	"grundfos": "grundfos.com",
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Carrier   Chiller  E04 ", "carrier chiller e04"},
		{"PUMP\tNOISE\n", "pump noise"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVendorHint(t *testing.T) {
	lex := NewLexicon(testVendors)

	tests := []struct {
		text string
		want string
	}{
		{"Carrier chiller won't start", "carrier"},
		{"pump making noise", ""},
		{"is the trane unit ok", "trane"},
	}

	for _, tt := range tests {
		if got := lex.VendorHint(tt.text); got != tt.want {
			t.Errorf("VendorHint(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestEquipmentHint(t *testing.T) {
	lex := NewLexicon(testVendors)

	if got := lex.EquipmentHint("the chiller is down"); got != "chiller" {
		t.Errorf("EquipmentHint = %q, want chiller", got)
	}
	if got := lex.EquipmentHint("no hardware words here"); got != "" {
		t.Errorf("EquipmentHint = %q, want empty", got)
	}
}

func TestEntityTokens(t *testing.T) {
	lex := NewLexicon(testVendors)

	got := lex.EntityTokens("Carrier CVHE500 chiller alarm carrier")
	want := []string{"carrier", "cvhe500", "chiller"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EntityTokens = %v, want %v", got, want)
	}
}

func TestFaultCodeToken(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"e04", true},
		{"f-28", true},
		{"err12", true},
		{"chiller", false},
		{"e", false},
	}

	for _, tt := range tests {
		if got := isFaultCodeToken(tt.tok); got != tt.want {
			t.Errorf("isFaultCodeToken(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}

func TestModelNumberToken(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"rtac-140", true},
		{"cvhe500", true},
		{"chiller", false},
		{"x1", false},
	}

	for _, tt := range tests {
		if got := isModelNumberToken(tt.tok); got != tt.want {
			t.Errorf("isModelNumberToken(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}
