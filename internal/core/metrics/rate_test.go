package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestRateMeter_Window(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeter(clk)

	r.Add(60)
	assert.Equal(t, int64(60), r.Total())
	assert.InDelta(t, 1.0, r.Rate(), 0.0001)

	clk.Add(10 * time.Second)
	r.Add(60)
	assert.Equal(t, int64(120), r.Total())

	// 第一个桶滑出窗口
	clk.Add(55 * time.Second)
	assert.Equal(t, int64(60), r.Total())

	clk.Add(2 * time.Minute)
	assert.Equal(t, int64(0), r.Total())
}

func TestRateMeter_Reset(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeter(clk)
	r.Add(5)
	r.Reset()
	assert.Equal(t, int64(0), r.Total())
}
