package gen_test

import (
	"testing"

	"speck/speck-go/pkg/gen"
)

func TestMangle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"makes organizing tests easy", "makes_organizing_tests_easy"},
		{"Already_Snake", "already_snake"},
		{"punctuation, everywhere!", "punctuation_everywhere"},
		{"  leading and trailing  ", "leading_and_trailing"},
		{"many   separators --- collapse", "many_separators_collapse"},
		{"MiXeD CaSe", "mixed_case"},
		{"2 plus 2", "_2_plus_2"},
		{"underscores_kept", "underscores_kept"},
		{"", "_"},
		{"!!!", "_"},
	}
	for _, tc := range cases {
		if got := gen.Mangle(tc.in); got != tc.want {
			t.Fatalf("Mangle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMangleDeterministic(t *testing.T) {
	for _, in := range []string{"some description", "Ußer input", "a-b-c"} {
		first := gen.Mangle(in)
		for i := 0; i < 10; i++ {
			if got := gen.Mangle(in); got != first {
				t.Fatalf("Mangle(%q) unstable: %q then %q", in, first, got)
			}
		}
	}
}
