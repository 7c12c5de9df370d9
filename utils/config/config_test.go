package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
	"gopkg.in/yaml.v2"
)

func TestDefaultIsValid(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Default())
	require.NoError(t, err)
	assert.Equal(t, 45., rc.Step)
	assert.Equal(t, 200*time.Millisecond, rc.TickDelay)
	assert.Equal(t, 4*time.Second, rc.MinSwitchInterval)
	assert.Equal(t, 8*time.Second, rc.Dwell)
	assert.Len(t, rc.All.Lanes, 5)
}

func TestYamlOverridesDefault(t *testing.T) {
	data := `
signal:
  count_weight_A: 2
  count_weight_B: 1
  time_weight_A: 0
  time_weight_B: 0
  min_switch_interval: 1
  holding_duration_ticks: 3
control:
  tick_delay: 0.1
  total: 100
`
	c := config.Default()
	require.NoError(t, yaml.UnmarshalStrict([]byte(data), &c))
	assert.Equal(t, 2., c.Signal.CountWeightA)
	assert.Equal(t, int32(3), c.Signal.HoldingDurationTicks)
	assert.Equal(t, int32(100), c.Control.Total)
	// 未出现的字段保持默认值
	assert.Equal(t, 40., c.Vehicle.VehicleSize)
	assert.Len(t, c.Lanes, 5)
	assert.NoError(t, c.Validate())
}

func TestYamlUnknownFieldRejected(t *testing.T) {
	c := config.Default()
	err := yaml.UnmarshalStrict([]byte("signal:\n  count_weight_C: 1\n"), &c)
	assert.Error(t, err)
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"negative weight":     func(c *config.Config) { c.Signal.TimeWeightB = -1 },
		"zero tick delay":     func(c *config.Config) { c.Control.TickDelay = 0 },
		"zero vehicle size":   func(c *config.Config) { c.Vehicle.VehicleSize = 0 },
		"negative gap":        func(c *config.Config) { c.Vehicle.FollowGap = -5 },
		"probability above 1": func(c *config.Config) { c.Vehicle.SpawnProbability = 1.5 },
		"zero dwell":          func(c *config.Config) { c.Vehicle.DwellDuration = 0 },
		"negative holding":    func(c *config.Config) { c.Signal.HoldingDurationTicks = -1 },
		"no lanes":            func(c *config.Config) { c.Lanes = nil },
		"bad direction":       func(c *config.Config) { c.Lanes[0].Direction = "south" },
		"bad group":           func(c *config.Config) { c.Lanes[0].Group = "C" },
		"west past stop":      func(c *config.Config) { c.Lanes[0].SpawnX = 800 },
		"east past stop":      func(c *config.Config) { c.Lanes[2].SpawnX = 700 },
		"north past stop":     func(c *config.Config) { c.Lanes[4].SpawnY = 100 },
		"east edge past stop": func(c *config.Config) { c.Lanes[2].SpawnX = 640 },
		"west edge past stop": func(c *config.Config) { c.Lanes[0].SpawnX = 860 },
		"north edge on stop":  func(c *config.Config) { c.Lanes[4].SpawnY = 320 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := config.Default()
			mutate(&c)
			assert.Error(t, c.Validate())
			_, err := config.NewRuntimeConfig(c)
			assert.Error(t, err)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	c := config.Default()
	c.Signal.CountWeightA = -1
	c.Control.TickDelay = 0
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count_weight_A")
	assert.Contains(t, err.Error(), "tick_delay")

	c = config.Default()
	c.Lanes = nil
	assert.ErrorIs(t, c.Validate(), config.ErrNoLane)
}

// 车头恰好在停车线之前的车道是合法的
func TestValidateLeadingEdgeBeforeStop(t *testing.T) {
	c := config.Default()
	c.Lanes = []config.Lane{
		{SpawnX: 629, SpawnY: 206.5, StopCoordinate: 650, Direction: "east", Group: "A"},
		{SpawnX: 871, SpawnY: 81.5, StopCoordinate: 850, Direction: "west", Group: "A"},
		{SpawnX: 800, SpawnY: 321, StopCoordinate: 300, Direction: "north", Group: "B"},
	}
	assert.NoError(t, c.Validate())

	c.Vehicle.VehicleSize = 44
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lane 0")
	assert.Contains(t, err.Error(), "lane 1")
	assert.Contains(t, err.Error(), "lane 2")
}
