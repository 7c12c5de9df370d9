// 提供两组自适应信号灯控制算法
// 每一步比较两组的压力分数，分数高的组获得通行权；切换后所有车道全红保持若干步，
// 且两次切换之间至少间隔min_switch_interval，防止信号来回振荡
package trafficlight

import (
	"sync"
	"sync/atomic"
	"time"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
)

// 相位索引，与Get返回的程序一致
const (
	PhaseAGreen int32 = iota // A组绿灯，B组红灯
	PhaseBGreen              // B组绿灯，A组红灯
	PhaseAllRed              // 切换后的全红保持
)

// adaptiveTlRuntime 自适应信号灯运行时数据
type adaptiveTlRuntime struct {
	active           entity.Group // 当前放行的信号组
	previous         entity.Group // 上一次切换前放行的信号组
	holding          bool         // 是否处于全红保持
	ticksSinceSwitch int32        // 全红保持已经持续的步数
	lastSwitch       time.Time    // 上一次切换的时间
	switches         int          // 累计切换次数
	now              time.Time    // 快照时间
}

// adaptiveTrafficLight 两组自适应信号灯控制器
// 功能：根据两组的排队数与等待时间决定放行哪一组，并在切换后插入全红保持
type adaptiveTrafficLight struct {
	junctionID  int32                            // 所属junction ID
	lanes       []entity.ILaneTrafficLightSetter // 车道数据
	signal      config.Signal                    // 权重与防抖参数
	minInterval time.Duration                    // 两次切换之间的最小间隔
	tickDelay   float64                          // 每步时长（秒），用于描述全红相位的时长

	runtime  adaptiveTlRuntime // 运行时数据，只在主循环中读写
	snapshot adaptiveTlRuntime // 快照，用于RPC读取
	mtx      sync.RWMutex      // 快照读写锁
	ok       atomic.Bool       // 信号灯状态，true为开启，false为关闭
}

// NewAdaptiveTrafficLight 创建自适应信号灯控制器
// 参数：junctionID-路口ID，lanes-车道列表，rc-运行时配置，start-仿真开始时间
// 返回：初始状态为A组放行、不处于全红保持、上一次切换时间为仿真开始时间的控制器
// 说明：由于上一次切换时间为开始时间，开始后min_switch_interval之内不会发生切换
func NewAdaptiveTrafficLight(junctionID int32, lanes []entity.ILaneTrafficLightSetter, rc *config.RuntimeConfig, start time.Time) *adaptiveTrafficLight {
	l := &adaptiveTrafficLight{
		junctionID:  junctionID,
		lanes:       lanes,
		signal:      rc.All.Signal,
		minInterval: rc.MinSwitchInterval,
		tickDelay:   rc.C.TickDelay,
		runtime: adaptiveTlRuntime{
			active:     entity.GroupA,
			previous:   entity.GroupA,
			lastSwitch: start,
			now:        start,
		},
	}
	l.ok.Store(true)
	l.snapshot = l.runtime
	return l
}

// Scores 计算两组的压力分数
// score = count_weight * 排队数 + time_weight * 总等待时间
func (l *adaptiveTrafficLight) Scores(a, b entity.GroupPressure) (float64, float64) {
	s := l.signal
	scoreA := s.CountWeightA*float64(a.Count) + s.TimeWeightA*a.Wait
	scoreB := s.CountWeightB*float64(b.Count) + s.TimeWeightB*b.Wait
	return scoreA, scoreB
}

// Update 更新阶段，执行自适应切换决策
// 功能：根据两组压力分数决定是否切换放行组，并维护全红保持计数
// 参数：now-当前时间，a/b-两组的排队压力
// 返回：本步是否发生了切换
// 算法说明：
// 1. 距离上一次切换不足min_switch_interval时不做决策
// 2. 不处于全红保持时，A组分数严格大于B组分数则期望A放行，否则期望B放行（平局B组优先）
// 3. 期望放行组与当前不同则切换，进入全红保持并记录切换时间
// 4. 每一步在决策之后维护保持计数：保持中且计数不超过holding_duration_ticks则计数加一，否则结束保持并清零
// 说明：因此全红保持恰好持续holding_duration_ticks+1步
func (l *adaptiveTrafficLight) Update(now time.Time, a, b entity.GroupPressure) bool {
	rt := &l.runtime
	switched := false
	if l.ok.Load() && now.Sub(rt.lastSwitch) >= l.minInterval && !rt.holding {
		scoreA, scoreB := l.Scores(a, b)
		desired := lo.Ternary(scoreA > scoreB, entity.GroupA, entity.GroupB)
		if desired != rt.active {
			log.Debugf("junction %d: switch %v -> %v (score A=%.4f, B=%.4f)", l.junctionID, rt.active, desired, scoreA, scoreB)
			rt.previous = rt.active
			rt.active = desired
			rt.holding = true
			rt.lastSwitch = now
			rt.switches++
			switched = true
		}
	}
	if rt.holding && rt.ticksSinceSwitch <= l.signal.HoldingDurationTicks {
		rt.ticksSinceSwitch++
	} else {
		rt.ticksSinceSwitch = 0
		rt.holding = false
	}
	return switched
}

// Publish 将信控结果写入车道
// 功能：放行组车道绿灯，其余车道红灯；全红保持中所有车道红灯；信控关闭时全绿
// 说明：自适应信控没有固定的相位时长，剩余时间写为INF
func (l *adaptiveTrafficLight) Publish(now time.Time) {
	l.runtime.now = now
	l.mtx.Lock()
	l.snapshot = l.runtime
	l.mtx.Unlock()

	ok := l.ok.Load()
	for _, lane := range l.lanes {
		state := mapv2.LightState_LIGHT_STATE_RED
		if !ok || (!l.runtime.holding && lane.Group() == l.runtime.active) {
			state = mapv2.LightState_LIGHT_STATE_GREEN
		}
		lane.SetLight(state, mathutil.INF, mathutil.INF)
	}
}

func (l *adaptiveTrafficLight) getSnapshot() adaptiveTlRuntime {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.snapshot
}

// Get 获取信控程序
// 功能：以三个相位描述自适应信控：A组绿灯、B组绿灯、全红保持
// 返回：信控程序，绿灯相位时长为最小切换间隔，全红相位时长为保持步数对应的时间
func (l *adaptiveTrafficLight) Get() *mapv2.TrafficLight {
	phase := func(duration float64, green func(g entity.Group) bool) *mapv2.Phase {
		return &mapv2.Phase{
			Duration: duration,
			States: lo.Map(l.lanes, func(lane entity.ILaneTrafficLightSetter, _ int) mapv2.LightState {
				return lo.Ternary(green(lane.Group()), mapv2.LightState_LIGHT_STATE_GREEN, mapv2.LightState_LIGHT_STATE_RED)
			}),
		}
	}
	interval := l.minInterval.Seconds()
	return &mapv2.TrafficLight{
		JunctionId: l.junctionID,
		Phases: []*mapv2.Phase{
			phase(interval, func(g entity.Group) bool { return g == entity.GroupA }),
			phase(interval, func(g entity.Group) bool { return g == entity.GroupB }),
			phase(float64(l.signal.HoldingDurationTicks+1)*l.tickDelay, func(entity.Group) bool { return false }),
		},
	}
}

// Step 获取当前相位索引
func (l *adaptiveTrafficLight) Step() int32 {
	s := l.getSnapshot()
	switch {
	case s.holding:
		return PhaseAllRed
	case s.active == entity.GroupA:
		return PhaseAGreen
	default:
		return PhaseBGreen
	}
}

// RemainingTime 距离允许下一次切换还有多久（秒），已经允许时为0
func (l *adaptiveTrafficLight) RemainingTime() float64 {
	s := l.getSnapshot()
	return lo.Max([]float64{0, (l.minInterval - s.now.Sub(s.lastSwitch)).Seconds()})
}

func (l *adaptiveTrafficLight) Ok() bool {
	return l.ok.Load()
}

// SetOk 设置信号灯状态，关闭时所有车道全绿且不再做切换决策
func (l *adaptiveTrafficLight) SetOk(ok bool) {
	l.ok.Store(ok)
}

func (l *adaptiveTrafficLight) ActiveGroup() entity.Group {
	return l.getSnapshot().active
}

// PreviousGroup 上一次切换前放行的信号组，未发生过切换时等于初始放行组
func (l *adaptiveTrafficLight) PreviousGroup() entity.Group {
	return l.getSnapshot().previous
}

func (l *adaptiveTrafficLight) Holding() bool {
	return l.getSnapshot().holding
}

// TicksSinceSwitch 全红保持已经持续的步数
func (l *adaptiveTrafficLight) TicksSinceSwitch() int32 {
	return l.getSnapshot().ticksSinceSwitch
}

func (l *adaptiveTrafficLight) LastSwitch() time.Time {
	return l.getSnapshot().lastSwitch
}

func (l *adaptiveTrafficLight) Switches() int {
	return l.getSnapshot().switches
}
