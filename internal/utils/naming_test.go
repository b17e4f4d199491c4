package utils

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Shop", "shop"},
		{"spaces", "My Shop", "my_shop"},
		{"punctuation run", "My--Shop!!", "my_shop"},
		{"leading and trailing", "  __Acme Corp__ ", "acme_corp"},
		{"underscore kept", "acme_corp", "acme_corp"},
		{"digits", "Project 2024", "project_2024"},
		{"unicode collapses", "Café Ünïcode", "caf_n_code"},
		{"only punctuation", "!!!", ""},
		{"empty", "", ""},
		{"only underscores", "___", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{"My Shop", "A--B__C", "  x  ", "Ünï", "already_normal", "___x___"}
	for _, in := range inputs {
		once := NormalizeName(in)
		twice := NormalizeName(once)
		if once != twice {
			t.Errorf("NormalizeName not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeName_Collisions(t *testing.T) {
	if NormalizeName("My Shop") != NormalizeName("my-shop") {
		t.Error("\"My Shop\" and \"my-shop\" should map to the same identifier")
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Users Table", "users_table"},
		{"v1.2.3", "v1_2_3"},
		{"20240101_120000", "20240101_120000"},
		{"../../etc/passwd", "etc_passwd"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeLabel(tt.input); got != tt.expected {
			t.Errorf("SanitizeLabel(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
