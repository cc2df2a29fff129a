package backoffice

import "testing"

func TestValidCPF(t *testing.T) {
	tests := map[string]bool{
		"529.982.247-25": true,
		"52998224725":    true,
		"390.533.447-05": true,
		"529.982.247-26": false,
		"111.111.111-11": false,
		"5299822472":     false,
		"":               false,
	}
	for in, want := range tests {
		if got := ValidCPF(in); got != want {
			t.Errorf("ValidCPF(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidCNPJ(t *testing.T) {
	tests := map[string]bool{
		"11.222.333/0001-81": true,
		"11444777000161":     true,
		"11.222.333/0001-80": false,
		"00.000.000/0000-00": false,
		"529.982.247-25":     false,
	}
	for in, want := range tests {
		if got := ValidCNPJ(in); got != want {
			t.Errorf("ValidCNPJ(%q) = %v, want %v", in, got, want)
		}
	}
}
