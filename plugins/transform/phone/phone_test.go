package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9161234567", "79161234567", true},      // RU 10 位
		{"8 (916) 123-45-67", "79161234567", true}, // RU 8 前缀
		{"79161234567", "79161234567", true},
		{"0501234567", "380501234567", true}, // UA 0 前缀
		{"380501234567", "380501234567", true},
		{"375291234567", "375291234567", true}, // BY
		{"37368123456", "37368123456", true},   // MD
		{"+4915112345678", "4915112345678", true},
		{"4915112345678", "", false},      // 未知国别且无 '+'
		{"1234567", "", false},            // 过短
		{"1234567890123456", "", false},   // 过长
		{"user@9161234567", "", false},    // 邮箱
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTransform(t *testing.T) {
	tr := New()
	got, ok := tr.Transform("+7 916 123 45 67;pass")
	assert.True(t, ok)
	assert.Equal(t, "79161234567:pass", got)

	_, ok = tr.Transform("9161234567:")
	assert.False(t, ok)
	assert.Equal(t, "phone", tr.Name())
}
