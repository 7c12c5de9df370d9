package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoLane = errors.New("config: no lane")
)

// RuntimeConfig 运行时配置
// 功能：存储校验通过后的配置以及由配置派生的运行时参数
// 说明：只能通过NewRuntimeConfig创建，保证仿真不会在非法配置下运行
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置

	Step              float64       // 每步移动距离 = 车身长度 + 跟车间隙
	TickDelay         time.Duration // 两次更新之间的等待时间
	MinSwitchInterval time.Duration // 两次切换之间的最小间隔
	Dwell             time.Duration // 过线车辆保留时间
}

// NewRuntimeConfig 校验配置并生成运行时配置
// 功能：校验配置合法性并计算派生参数
// 参数：config-原始配置对象
// 返回：运行时配置指针；配置非法时返回错误，调用方应拒绝启动
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rc := &RuntimeConfig{
		All:               config,
		C:                 config.Control,
		Step:              config.Vehicle.VehicleSize + config.Vehicle.FollowGap,
		TickDelay:         seconds(config.Control.TickDelay),
		MinSwitchInterval: seconds(config.Signal.MinSwitchInterval),
		Dwell:             seconds(config.Vehicle.DwellDuration),
	}
	return rc, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate 校验配置
// 功能：检查权重、时间参数、几何参数与车道定义
// 返回：所有错误合并后的error，合法时返回nil
// 说明：车辆以生成点为中心生成，其车头必须位于停车线之前（沿行驶方向），否则车辆一生成就已经越线
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("config: "+format, args...))
		}
	}

	s := c.Signal
	check(s.CountWeightA >= 0, "count_weight_A must be non-negative, got %v", s.CountWeightA)
	check(s.CountWeightB >= 0, "count_weight_B must be non-negative, got %v", s.CountWeightB)
	check(s.TimeWeightA >= 0, "time_weight_A must be non-negative, got %v", s.TimeWeightA)
	check(s.TimeWeightB >= 0, "time_weight_B must be non-negative, got %v", s.TimeWeightB)
	check(s.MinSwitchInterval >= 0, "min_switch_interval must be non-negative, got %v", s.MinSwitchInterval)
	check(s.HoldingDurationTicks >= 0, "holding_duration_ticks must be non-negative, got %v", s.HoldingDurationTicks)

	check(c.Control.TickDelay > 0, "tick_delay must be positive, got %v", c.Control.TickDelay)
	check(c.Control.Total >= 0, "total must be non-negative, got %v", c.Control.Total)
	check(c.Control.Start >= 0, "start must be non-negative, got %v", c.Control.Start)

	v := c.Vehicle
	check(v.SpawnProbability >= 0 && v.SpawnProbability <= 1, "spawn_probability must be in [0, 1], got %v", v.SpawnProbability)
	check(v.VehicleSize > 0, "vehicle_size must be positive, got %v", v.VehicleSize)
	check(v.FollowGap >= 0, "follow_gap must be non-negative, got %v", v.FollowGap)
	check(v.DwellDuration > 0, "dwell_duration must be positive, got %v", v.DwellDuration)

	if len(c.Lanes) == 0 {
		errs = append(errs, ErrNoLane)
	}
	half := v.VehicleSize / 2
	for i, l := range c.Lanes {
		check(l.Group == "A" || l.Group == "B", "lane %d: unknown group %q", i, l.Group)
		switch l.Direction {
		case "west":
			check(l.SpawnX-half > l.StopCoordinate, "lane %d: west lane must spawn with its leading edge east of its stop line (%v <= %v)", i, l.SpawnX-half, l.StopCoordinate)
		case "east":
			check(l.SpawnX+half < l.StopCoordinate, "lane %d: east lane must spawn with its leading edge west of its stop line (%v >= %v)", i, l.SpawnX+half, l.StopCoordinate)
		case "north":
			check(l.SpawnY-half > l.StopCoordinate, "lane %d: north lane must spawn with its leading edge south of its stop line (%v <= %v)", i, l.SpawnY-half, l.StopCoordinate)
		default:
			check(false, "lane %d: unknown direction %q", i, l.Direction)
		}
	}
	return errors.Join(errs...)
}
