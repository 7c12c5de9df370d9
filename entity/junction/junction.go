package junction

import (
	"fmt"
	"sync"
	"time"

	"git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/junction/trafficlight"
)

// Stats 一步的排队统计与压力分数
type Stats struct {
	A, B           entity.GroupPressure
	ScoreA, ScoreB float64
	Active         entity.Group // 决策后的放行组
	Holding        bool         // 决策后是否处于全红保持
	Switched       bool         // 本步是否发生了切换
}

// Labels 统计文本，名称与格式为：num_A/num_B为排队数，time_A/time_B为等待时间的整数秒，
// A_weighted_total/B_weighted_total为保留4位小数的压力分数
func (s Stats) Labels() [][2]string {
	return [][2]string{
		{"num_A", fmt.Sprintf("%d", s.A.Count)},
		{"num_B", fmt.Sprintf("%d", s.B.Count)},
		{"time_A", fmt.Sprintf("%d", int(s.A.Wait))},
		{"time_B", fmt.Sprintf("%d", int(s.B.Wait))},
		{"A_weighted_total", fmt.Sprintf("%.4f", s.ScoreA)},
		{"B_weighted_total", fmt.Sprintf("%.4f", s.ScoreB)},
	}
}

// Junction 路口
// 功能：持有路口的所有进口车道与信号灯，每一步统计两组压力并执行信控决策
type Junction struct {
	mapv2connect.UnimplementedTrafficLightServiceHandler

	ctx entity.ITaskContext

	id           int32
	lanes        []entity.ILane
	trafficLight ITrafficLight // 信号灯模块，Init之前为nil
	tlMtx        sync.RWMutex  // 保护trafficLight的赋值，RPC可能在Init之前到达

	statsMtx sync.RWMutex
	stats    Stats
}

// NewJunction 创建路口
func NewJunction(ctx entity.ITaskContext, id int32) *Junction {
	return &Junction{
		ctx: ctx,
		id:  id,
	}
}

// Init 初始化路口
// 功能：收集所有进口车道，创建自适应信号灯并写入初始信号（A组绿灯）
// 参数：laneManager-车道管理器
func (j *Junction) Init(laneManager entity.ILaneManager) {
	j.lanes = laneManager.Lanes()
	setters := lo.Map(j.lanes, func(l entity.ILane, _ int) entity.ILaneTrafficLightSetter { return l })
	start := j.ctx.Clock().Start()
	tl := trafficlight.NewAdaptiveTrafficLight(j.id, setters, j.ctx.RuntimeConfig(), start)
	tl.Publish(start)
	j.tlMtx.Lock()
	j.trafficLight = tl
	j.tlMtx.Unlock()
	log.Infof("junction %d: %d lanes, group A active", j.id, len(j.lanes))
}

func (j *Junction) ID() int32 {
	return j.id
}

// TrafficLight 信号灯读取接口，Init之前返回nil
func (j *Junction) TrafficLight() ITrafficLightGetter {
	return j.loadTrafficLight()
}

func (j *Junction) loadTrafficLight() ITrafficLight {
	j.tlMtx.RLock()
	defer j.tlMtx.RUnlock()
	return j.trafficLight
}

// Update 更新阶段
// 功能：统计两组排队压力，执行切换决策，并把信控结果写入车道
// 参数：now-当前时间
// 返回：本步的统计结果
func (j *Junction) Update(now time.Time) Stats {
	lm := j.ctx.LaneManager()
	a := lm.Aggregate(entity.GroupA, now)
	b := lm.Aggregate(entity.GroupB, now)
	scoreA, scoreB := j.trafficLight.Scores(a, b)
	switched := j.trafficLight.Update(now, a, b)
	j.trafficLight.Publish(now)

	stats := Stats{
		A: a, B: b,
		ScoreA: scoreA, ScoreB: scoreB,
		Active:   j.trafficLight.ActiveGroup(),
		Holding:  j.trafficLight.Holding(),
		Switched: switched,
	}
	j.statsMtx.Lock()
	j.stats = stats
	j.statsMtx.Unlock()
	return stats
}

// Stats 最近一步的统计结果
func (j *Junction) Stats() Stats {
	j.statsMtx.RLock()
	defer j.statsMtx.RUnlock()
	return j.stats
}
