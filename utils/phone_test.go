package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "5511999990000", DigitsOnly("+55 (11) 99999-0000"))
	assert.Equal(t, "", DigitsOnly("abc"))
	assert.Equal(t, "123", DigitsOnly("123"))
}

func TestCanonicalNumber(t *testing.T) {
	// National number gets the country code prefixed
	assert.Equal(t, "5511999990000", CanonicalNumber("(11) 99999-0000", "55"))
	// Already prefixed numbers are left alone
	assert.Equal(t, "5511999990000", CanonicalNumber("+55 11 99999-0000", "55"))
	assert.Equal(t, "", CanonicalNumber(" - ", "55"))
}

func TestCanonicalNumberLongForeignNumber(t *testing.T) {
	// Numbers longer than a national significant number keep their own
	// country code even when it differs from ours.
	assert.Equal(t, "4915123456789", CanonicalNumber("4915123456789", "55"))
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t, "5511999990000@c.us", CanonicalAddress("11 99999-0000", "55", "@c.us"))
	// Re-canonicalizing an already canonical address is a no-op
	assert.Equal(t, "5511999990000@c.us", CanonicalAddress("5511999990000@c.us", "55", "@c.us"))
	assert.Equal(t, "", CanonicalAddress("", "55", "@c.us"))
}
