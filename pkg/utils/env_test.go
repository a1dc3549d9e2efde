package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("REGIONLEDGER_TEST_STR", "")
	assert.Equal(t, "fallback", Env("REGIONLEDGER_TEST_STR", "fallback"))

	t.Setenv("REGIONLEDGER_TEST_STR", "set")
	assert.Equal(t, "set", Env("REGIONLEDGER_TEST_STR", "fallback"))
}

func TestEnvIntRejectsNonPositive(t *testing.T) {
	t.Setenv("REGIONLEDGER_TEST_INT", "0")
	assert.Equal(t, 5, EnvInt("REGIONLEDGER_TEST_INT", 5))

	t.Setenv("REGIONLEDGER_TEST_INT", "abc")
	assert.Equal(t, 5, EnvInt("REGIONLEDGER_TEST_INT", 5))

	t.Setenv("REGIONLEDGER_TEST_INT", "12")
	assert.Equal(t, 12, EnvInt("REGIONLEDGER_TEST_INT", 5))
}

func TestEnvInt64AcceptsZero(t *testing.T) {
	t.Setenv("REGIONLEDGER_TEST_INT64", "0")
	assert.Equal(t, int64(0), EnvInt64("REGIONLEDGER_TEST_INT64", 10000))

	t.Setenv("REGIONLEDGER_TEST_INT64", "-1")
	assert.Equal(t, int64(10000), EnvInt64("REGIONLEDGER_TEST_INT64", 10000))
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("REGIONLEDGER_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, EnvDuration("REGIONLEDGER_TEST_DUR", time.Minute))

	t.Setenv("REGIONLEDGER_TEST_DUR", "soon")
	assert.Equal(t, time.Minute, EnvDuration("REGIONLEDGER_TEST_DUR", time.Minute))
}

func TestEnvBool(t *testing.T) {
	t.Setenv("REGIONLEDGER_TEST_BOOL", "true")
	assert.True(t, EnvBool("REGIONLEDGER_TEST_BOOL", false))

	t.Setenv("REGIONLEDGER_TEST_BOOL", "nope")
	assert.False(t, EnvBool("REGIONLEDGER_TEST_BOOL", false))
}
