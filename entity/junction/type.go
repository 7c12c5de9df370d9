package junction

import (
	"time"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
)

// 依赖倒置，表达junction对信号灯实现的接口需求

// 给RPC与统计输出提供的信控读取接口，读取的是上一次Publish时的快照
type ITrafficLightGetter interface {
	Get() *mapv2.TrafficLight // 当前程序
	Step() int32              // 当前相位
	RemainingTime() float64   // 距离允许下一次切换的时间
	Ok() bool                 // 当前信控开关情况

	ActiveGroup() entity.Group   // 当前放行的信号组
	PreviousGroup() entity.Group // 上一次切换前放行的信号组
	Holding() bool               // 是否处于切换后的全红保持
	LastSwitch() time.Time       // 上一次切换的时间
	Switches() int               // 累计切换次数
}

// 信号灯接口
type ITrafficLight interface {
	ITrafficLightGetter
	// 计算两组的压力分数
	Scores(a, b entity.GroupPressure) (scoreA, scoreB float64)
	// 更新阶段，根据两组压力做切换决策，返回本步是否发生切换
	Update(now time.Time, a, b entity.GroupPressure) bool
	// 将信控结果写入车道并更新快照
	Publish(now time.Time)
	// 设置信控开关情况（true信控工作|false信控失效-全绿）
	SetOk(ok bool)
}
