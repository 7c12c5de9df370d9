package task_test

import (
	"context"
	"testing"
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-sim/clock"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/lane"
	"github.com/tsinghua-fib-lab/intersection-sim/render"
	"github.com/tsinghua-fib-lab/intersection-sim/task"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
)

var epoch = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

const tick = 200 * time.Millisecond

type sim struct {
	*task.Context
	src *clock.VirtualSource
	rec *render.Recorder
}

func newSim(t *testing.T, cfg config.Config) *sim {
	rc, err := config.NewRuntimeConfig(cfg)
	require.NoError(t, err)
	src := clock.NewVirtualSource(epoch)
	rec := render.NewRecorder()
	ctx := task.NewContext("test", rc, rec, src, nil)
	require.NoError(t, ctx.Init())
	return &sim{Context: ctx, src: src, rec: rec}
}

// tick 推进虚拟时间后执行一步
func (s *sim) tick() {
	s.src.Advance(tick)
	s.Step()
}

func (s *sim) lane(id int32) *lane.Lane {
	return s.Lanes().Get(id).(*lane.Lane)
}

func (s *sim) crossings() int {
	return len(s.rec.CallsOf("fill"))
}

// 红灯下单车道、每步必生成车辆，10步后恰好10辆排队，头车车头压在停车线上，没有车辆越线
func TestRedLightQueue(t *testing.T) {
	cfg := config.Default()
	cfg.Vehicle.SpawnProbability = 1
	cfg.Signal.MinSwitchInterval = 1000
	cfg.Lanes = []config.Lane{{SpawnX: 0, SpawnY: 206.5, StopCoordinate: 200, Direction: "east", Group: "B"}}
	s := newSim(t, cfg)

	for i := 0; i < 10; i++ {
		s.tick()
		assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, s.lane(0).Light())
	}
	vs := s.lane(0).Vehicles()
	require.Len(t, vs, 10)
	assert.Equal(t, 200., vs[0].Position().X+vs[0].Size())
	assert.Equal(t, 0., vs[0].DistanceToLine(200))
	for i := 1; i < len(vs); i++ {
		assert.Equal(t, 5., vs[i].Gap(vs[i-1]))
	}
	assert.Equal(t, 0, s.crossings())
	assert.Equal(t, 0, s.Tracker().Len())
	assert.Len(t, s.rec.CallsOf("draw"), 10)
	assert.Equal(t, "10", s.rec.Label("num_B"))
	assert.Equal(t, "0", s.rec.Label("num_A"))
}

// B组放行后A组压力持续更高：超过最小间隔后切换到A，全红保持恰好holding_duration_ticks+1步，保持期间没有车辆越线
func TestSwitchWithHolding(t *testing.T) {
	cfg := config.Default()
	cfg.Vehicle.SpawnProbability = 0
	cfg.Lanes = []config.Lane{
		{SpawnX: 0, SpawnY: 206.5, StopCoordinate: 650, Direction: "east", Group: "A"},
		{SpawnX: 800, SpawnY: 800, StopCoordinate: 300, Direction: "north", Group: "B"},
	}
	s := newSim(t, cfg)

	var switches []int
	holding := map[int]bool{}
	for i := 1; i <= 59; i++ {
		s.src.Advance(tick)
		if i == 1 {
			s.Lanes().SpawnAt(1, s.src.Now())
		}
		if i == 21 {
			for j := 0; j < 3; j++ {
				s.Lanes().SpawnAt(0, s.src.Now())
			}
		}
		before := s.crossings()
		s.Step()
		stats := s.Junction().Stats()
		if stats.Switched {
			switches = append(switches, i)
		}
		if stats.Holding {
			holding[i] = true
			assert.Equal(t, before, s.crossings(), "crossing during holding at tick %d", i)
			for _, l := range s.Lanes().Lanes() {
				assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light())
			}
		}
	}

	assert.Equal(t, []int{20, 40}, switches)
	for _, start := range switches {
		for i := start; i <= start+5; i++ {
			assert.True(t, holding[i], "tick %d should hold", i)
		}
		assert.False(t, holding[start+6])
	}
	assert.Len(t, holding, 12)
	assert.Equal(t, entity.GroupA, s.Junction().Stats().Active)
	assert.Equal(t, 2, s.Junction().TrafficLight().Switches())
	// B组一辆车与A组三辆车都已通过
	assert.Equal(t, 4, s.crossings())
	assert.Equal(t, 0, s.lane(0).QueueLen())
}

func TestLabels(t *testing.T) {
	cfg := config.Default()
	cfg.Vehicle.SpawnProbability = 0
	s := newSim(t, cfg)
	s.Lanes().SpawnAt(0, epoch)
	s.Lanes().SpawnAt(2, epoch)
	s.Lanes().SpawnAt(4, epoch)
	s.src.Advance(2500 * time.Millisecond)
	s.Step()

	// A: 2辆，各等待2.5秒；B: 1辆，等待2.5秒
	assert.Equal(t, "2", s.rec.Label("num_A"))
	assert.Equal(t, "1", s.rec.Label("num_B"))
	assert.Equal(t, "5", s.rec.Label("time_A"))
	assert.Equal(t, "2", s.rec.Label("time_B"))
	assert.Equal(t, "3.2000", s.rec.Label("A_weighted_total"))
	assert.Equal(t, "3.1250", s.rec.Label("B_weighted_total"))
	assert.Len(t, s.rec.CallsOf("label"), 6)
}

func TestLabelFailureDoesNotStopSimulation(t *testing.T) {
	cfg := config.Default()
	cfg.Vehicle.SpawnProbability = 1
	s := newSim(t, cfg)
	s.rec.FailLabels = true
	for i := 0; i < 5; i++ {
		s.tick()
	}
	assert.Len(t, s.rec.CallsOf("draw"), 5)
	assert.Equal(t, int32(5), s.Clock().Steps())
}

// 越线车辆在保留时间后被移除且只移除一次
func TestCrossedVehicleRemovedAfterDwell(t *testing.T) {
	cfg := config.Default()
	cfg.Vehicle.SpawnProbability = 0
	cfg.Lanes = []config.Lane{{SpawnX: 0, SpawnY: 206.5, StopCoordinate: 100, Direction: "east", Group: "A"}}
	s := newSim(t, cfg)
	v := s.Lanes().SpawnAt(0, epoch)

	s.tick() // 车头65
	s.tick() // 车头110，越线
	require.True(t, v.Crossed())
	assert.Equal(t, 1, s.Tracker().Len())
	// 越线的这一步中继续前进
	assert.Equal(t, 115., v.Position().X)

	for i := 0; i < 39; i++ {
		s.tick()
	}
	assert.False(t, v.Removed())
	s.tick()
	assert.True(t, v.Removed())
	assert.Equal(t, 0, s.Tracker().Len())
	for i := 0; i < 50; i++ {
		s.tick()
	}
	assert.Len(t, s.rec.CallsOf("undraw"), 1)
}

// 随机到达下的不变量：不超车、最小间距、红灯不越线、两次切换间隔不小于最小间隔
func TestInvariantsUnderRandomArrivals(t *testing.T) {
	cfg := config.Default()
	cfg.Control.Seed = 11
	s := newSim(t, cfg)
	var last time.Time
	for i := 0; i < 1500; i++ {
		s.tick()
		stats := s.Junction().Stats()
		if stats.Switched {
			if !last.IsZero() {
				assert.GreaterOrEqual(t, s.src.Now().Sub(last), 4*time.Second)
			}
			last = s.src.Now()
		}
		for _, il := range s.Lanes().Lanes() {
			l := il.(*lane.Lane)
			vs := l.Vehicles()
			for j, v := range vs {
				assert.False(t, v.Beyond(l.StopCoordinate()))
				if j > 0 {
					assert.GreaterOrEqual(t, v.Gap(vs[j-1]), 5.)
				}
			}
		}
	}
	assert.Greater(t, s.Junction().TrafficLight().Switches(), 0)
	assert.Greater(t, s.crossings(), 0)
}

func TestRunStopsAtTotal(t *testing.T) {
	cfg := config.Default()
	cfg.Control.TickDelay = 0.001
	cfg.Control.Total = 20
	rc, err := config.NewRuntimeConfig(cfg)
	require.NoError(t, err)
	ctx := task.NewContext("", rc, render.NewLogRenderer(), nil, nil)
	assert.NotEmpty(t, ctx.Job())
	require.NoError(t, ctx.Run(context.Background()))
	assert.Equal(t, int32(20), ctx.Clock().Steps())
	ctx.Close()
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Control.TickDelay = 0.001
	rc, err := config.NewRuntimeConfig(cfg)
	require.NoError(t, err)
	ctx := task.NewContext("cancel", rc, render.NewLogRenderer(), nil, nil)
	c, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ctx.Run(c) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Greater(t, ctx.Clock().Steps(), int32(0))
}
