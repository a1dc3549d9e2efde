package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/regionledger/pkg/core"
)

func testDefaults() Defaults {
	return Defaults{
		Authority:          "settings",
		RegionFee:          10000,
		TxLimitMin:         7,
		TxLimitPlanted:     21,
		RejoinDelaySeconds: 60,
		BatchSize:          2,
	}
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv("BIO_FEE", "20000")
	t.Setenv("BATCHSIZE", "2")

	d, err := LoadDefaults()
	require.NoError(t, err)
	assert.Equal(t, int64(20000), d.RegionFee)
	assert.Equal(t, int64(2), d.BatchSize)
	assert.Equal(t, int64(7), d.TxLimitMin)
	assert.Equal(t, "settings", d.Authority)
}

func TestTypedAccessors(t *testing.T) {
	s, err := New(testDefaults(), zaptest.NewLogger(t))
	require.NoError(t, err)

	lower, planted := s.TxLimits()
	assert.Equal(t, int64(7), lower)
	assert.Equal(t, int64(21), planted)
	assert.Equal(t, int64(10000), s.RegionFee())
	assert.Equal(t, time.Minute, s.RejoinDelay())
	assert.Equal(t, 2, s.BatchSize())
	assert.Len(t, s.Snapshot(), len(Keys()))
}

func TestSetRequiresAuthority(t *testing.T) {
	s, err := New(testDefaults(), zaptest.NewLogger(t))
	require.NoError(t, err)

	err = s.Set("seedsuseraaa", KeyRejoinDelay, 0)
	assert.ErrorIs(t, err, core.ErrNotAuthorized)
	assert.Equal(t, time.Minute, s.RejoinDelay())

	require.NoError(t, s.Set("settings", KeyRejoinDelay, 0))
	assert.Equal(t, time.Duration(0), s.RejoinDelay())
}

func TestSetValidates(t *testing.T) {
	s, err := New(testDefaults(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Set("settings", "no.such.key", 1), core.ErrInvalidInput)
	assert.ErrorIs(t, s.Set("settings", KeyBatchSize, 0), core.ErrInvalidInput)
	assert.ErrorIs(t, s.Set("settings", KeyRegionFee, -1), core.ErrInvalidInput)
	assert.Equal(t, 2, s.BatchSize())
}

func TestNewRejectsBadDefaults(t *testing.T) {
	d := testDefaults()
	d.TxLimitPlanted = 0
	_, err := New(d, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	d = testDefaults()
	d.Authority = ""
	_, err = New(d, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
