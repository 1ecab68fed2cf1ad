package metadata

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Yellow", "yellow"},
		{"OOOOOO mmmmm   ZZZZZZZZZZ", "oooooo_mmmmm_zzzzzzzzzz"},
		{"  leading and trailing  ", "leading_and_trailing"},
		{"already_slugged", "already_slugged"},
		{"Mixed-Case With.Dots", "mixed_case_with_dots"},
		{"123 numbers first", "123_numbers_first"},
		{"!!!", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{"Yellow Model", "a--b__c", "OOOOOO mmmmm   ZZZZZZZZZZ"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
