package clock

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真步数推进，并在每一步记录当前时间，供信号控制与等待时间计算使用
// 说明：步数与仿真时间T用于输出，墙钟时间（由TimeSource提供）用于所有等待时间与切换间隔的计算
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每步之间的等待时间（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)，END<=START表示不限步数

	T            float64 // 当前仿真时间（秒）
	InternalStep int32   // 当前步数

	source TimeSource
	start  time.Time // 仿真开始时的时间
	now    time.Time // 当前步开始时的时间

	snapshotT atomic.Uint64 // 供RPC读取的T，避免与主循环竞争
}

// New 根据配置创建时钟
// 功能：根据控制配置初始化时钟
// 参数：control-控制配置，source-时间源，为nil时使用系统时间
// 返回：初始化完成的时钟实例
func New(control config.Control, source TimeSource) *Clock {
	if source == nil {
		source = RealSource()
	}
	c := &Clock{
		DT:         control.TickDelay,
		START_STEP: control.Start,
		END_STEP:   control.Start + control.Total,
		source:     source,
	}
	if control.Total == 0 {
		c.END_STEP = c.START_STEP
	}
	c.Init()
	return c
}

// Init 初始化时钟状态
// 功能：重置步数为起始步，并以当前时间作为开始时间
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
	c.start = c.source.Now()
	c.now = c.start
	c.snapshotT.Store(math.Float64bits(c.T))
}

// Tick 推进一步
// 功能：步数加一并记录本步的当前时间
func (c *Clock) Tick() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
	c.now = c.source.Now()
	c.snapshotT.Store(math.Float64bits(c.T))
}

// CurrentTime 本步开始时的时间
func (c *Clock) CurrentTime() time.Time {
	return c.now
}

// Start 仿真开始时的时间
func (c *Clock) Start() time.Time {
	return c.start
}

// Source 时钟使用的时间源
func (c *Clock) Source() TimeSource {
	return c.source
}

// Delay 两步之间的等待时间
func (c *Clock) Delay() time.Duration {
	return time.Duration(c.DT * float64(time.Second))
}

// Finished 是否已经到达结束步
func (c *Clock) Finished() bool {
	return c.END_STEP > c.START_STEP && c.InternalStep >= c.END_STEP
}

// Steps 已经执行的步数
func (c *Clock) Steps() int32 {
	return c.InternalStep - c.START_STEP
}

// SnapshotT 线程安全地读取当前仿真时间
func (c *Clock) SnapshotT() float64 {
	return math.Float64frombits(c.snapshotT.Load())
}

// String 获取时钟的字符串表示
// 功能：将当前时间格式化为可读的字符串
// 返回：格式化的时间字符串（HH:MM:SS）
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 功能：将当前仿真时间分解为小时、分钟、秒三个部分
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
