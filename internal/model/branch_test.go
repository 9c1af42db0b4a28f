package model

import "testing"

func TestValidateBranchName(t *testing.T) {
	cases := map[string]bool{
		"main":           true,
		"feature/x":      false, // path separator
		"release-1.2":    false, // dot not in allowed charset
		"release-1_2":    true,
		"_private":       true,
		"bad name":       false,
		"name.lock":      false,
		"":                false,
		"-leading-dash":  false,
	}
	for name, want := range cases {
		err := ValidateBranchName(name)
		if got := err == nil; got != want {
			t.Errorf("ValidateBranchName(%q) valid=%v, want %v (err=%v)", name, got, want, err)
		}
	}
}
