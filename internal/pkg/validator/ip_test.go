package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIP(t *testing.T) {
	assert.Equal(t, "fe80::1", NormalizeIP("fe80::1%eth0"))
	assert.Equal(t, "10.0.0.1", NormalizeIP(" 10.0.0.1 "))
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.7", "203.0.113.7"},
		{" 203.0.113.7 ", "203.0.113.7"},
		{"::ffff:203.0.113.7", "203.0.113.7"},
		{"2001:db8:1:2:3:4:5:6", "2001:db8:1:2::/64"},
		{"2001:db8:1:2:ffff::1", "2001:db8:1:2::/64"},
		{"fe80::1%eth0", "fe80::/64"},
		{"", UnknownClient},
		{"garbage", UnknownClient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClientKey(tt.in), "input %q", tt.in)
	}
}
