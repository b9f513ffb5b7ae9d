package domain

import "testing"

func TestTransform(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"john@mail.ru:qwerty", "john:qwerty", true},
		{"john@mail.ru;qwerty", "john:qwerty", true},
		{"john:qwerty", "john:qwerty", true},
		{"john@a@b:p:q", "john:p:q", true},
		{"@mail.ru:pw", ":pw", true},
		{"nosep", "", false},
		{":pw", "", false},
		{"john@mail.ru:", "", false},
	}
	tr := New()
	for _, tc := range cases {
		got, ok := tr.Transform(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%q => %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if tr.Name() != "domain" {
		t.Fatalf("name %s", tr.Name())
	}
}
