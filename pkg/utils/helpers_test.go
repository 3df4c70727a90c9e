package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, 42, ParseValue("42"))
	assert.Equal(t, 3.5, ParseValue(" 3.5 "))
	assert.Equal(t, "BUY", ParseValue("BUY"))
	assert.Nil(t, ParseValue(""))
	assert.Nil(t, ParseValue("   "))
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, 42.0, Numeric(42))
	assert.Equal(t, 42.0, Numeric(int64(42)))
	assert.Equal(t, 3.5, Numeric(3.5))
	assert.Equal(t, 0.0, Numeric("not a number"))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, ParseDuration("2m"))
	assert.Equal(t, 5*time.Minute, ParseDuration(""))
	assert.Equal(t, 5*time.Minute, ParseDuration("soon"))
}
