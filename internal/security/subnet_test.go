package security

import "testing"

func TestAnonymizeSubnet(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"203.0.113.42", "203.0.113.0"},
		{"203.0.113.0", "203.0.113.0"},
		{"10.1.2.3", "10.1.2.0"},
		{"2001:db8:abcd:1234::1", "2001:db8:abcd::"},
		{"  203.0.113.42 ", "203.0.113.0"},
		// Unparseable input passes through untouched.
		{"not-an-ip", "not-an-ip"},
	}
	for _, tc := range cases {
		if got := AnonymizeSubnet(tc.in); got != tc.want {
			t.Errorf("AnonymizeSubnet(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
