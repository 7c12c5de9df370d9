package lane

import (
	"fmt"
	"sync/atomic"
	"time"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/randengine"
)

// LaneManager Lane管理器
// 功能：管理所有进口车道，负责车辆生成、排队统计与逐车道推进
type LaneManager struct {
	ctx entity.ITaskContext
	rng *randengine.Engine

	data  map[int32]*Lane
	lanes []*Lane

	nextVehicleID atomic.Int32
}

// NewManager 创建Lane管理器实例
// 参数：ctx-任务上下文，rng-车辆生成使用的随机数引擎
func NewManager(ctx entity.ITaskContext, rng *randengine.Engine) *LaneManager {
	return &LaneManager{
		ctx:   ctx,
		rng:   rng,
		data:  make(map[int32]*Lane),
		lanes: make([]*Lane, 0),
	}
}

// Init 初始化所有Lane
// 功能：按配置顺序创建车道，车道ID为配置中的下标
// 参数：bases-车道配置列表
// 返回：车道配置非法时返回错误
func (m *LaneManager) Init(bases []config.Lane) error {
	m.lanes = make([]*Lane, 0, len(bases))
	for i, base := range bases {
		l, err := newLane(m.ctx, int32(i), base)
		if err != nil {
			return err
		}
		m.lanes = append(m.lanes, l)
	}
	m.data = lo.SliceToMap(m.lanes, func(l *Lane) (int32, *Lane) {
		return l.id, l
	})
	return nil
}

// Get 根据ID获取Lane实例，如果不存在则panic
func (m *LaneManager) Get(id int32) entity.ILane {
	if lane, ok := m.data[id]; !ok {
		log.Panicf("no id %d in lane data", id)
		return nil
	} else {
		return lane
	}
}

// GetOrError 根据ID获取Lane实例，如果不存在则返回错误
func (m *LaneManager) GetOrError(id int32) (*Lane, error) {
	if lane, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in lane data", id)
	} else {
		return lane, nil
	}
}

// Lanes 按ID顺序返回所有Lane
func (m *LaneManager) Lanes() []entity.ILane {
	return lo.Map(m.lanes, func(l *Lane, _ int) entity.ILane { return l })
}

// Spawn 车辆生成
// 功能：以spawn_probability的概率在一条随机选择的车道上生成一辆车
// 参数：now-生成时间
// 返回：生成的车辆，本步没有生成时返回nil
// 说明：绘制失败只记录日志，车辆仍然进入队列
func (m *LaneManager) Spawn(now time.Time) *vehicle.Vehicle {
	vc := m.ctx.RuntimeConfig().All.Vehicle
	if len(m.lanes) == 0 || !m.rng.PTrueSafe(vc.SpawnProbability) {
		return nil
	}
	l := m.lanes[m.rng.IntnSafe(len(m.lanes))]
	return m.SpawnAt(l.id, now)
}

// SpawnAt 在指定车道上生成一辆车
func (m *LaneManager) SpawnAt(laneID int32, now time.Time) *vehicle.Vehicle {
	l, err := m.GetOrError(laneID)
	if err != nil {
		log.Panic(err)
	}
	rc := m.ctx.RuntimeConfig()
	v := vehicle.New(m.nextVehicleID.Add(1), l.spawn, l.direction, rc.All.Vehicle.VehicleSize, rc.Step, now)
	l.addVehicle(v)
	if err := m.ctx.Renderer().Draw(v); err != nil {
		log.Warnf("draw %v failed: %v", v, err)
	}
	return v
}

// Prepare 准备阶段，将新生成的车辆加入各车道队尾
func (m *LaneManager) Prepare() {
	parallel.GoFor(m.lanes, func(l *Lane) { l.prepare() })
}

// Aggregate 统计信号组的排队压力
// 功能：计算信号组内所有车道的排队车辆数与等待时间之和
// 参数：group-信号组，now-当前时间
// 说明：没有车道的信号组压力为0
func (m *LaneManager) Aggregate(group entity.Group, now time.Time) entity.GroupPressure {
	lanes := lo.Filter(m.lanes, func(l *Lane, _ int) bool { return l.group == group })
	return entity.GroupPressure{
		Count: lo.SumBy(lanes, func(l *Lane) int { return l.QueueLen() }),
		Wait:  lo.SumBy(lanes, func(l *Lane) float64 { return l.totalWait(now) }),
	}
}

// Update 更新阶段
// 功能：并行推进所有车道的排队车辆
// 返回：本步越过停车线的车辆，按车道ID与车道内顺序排列
func (m *LaneManager) Update() []*vehicle.Vehicle {
	parallel.GoFor(m.lanes, func(l *Lane) { l.update() })
	crossed := make([]*vehicle.Vehicle, 0)
	for _, l := range m.lanes {
		crossed = append(crossed, l.crossed...)
	}
	return crossed
}

var _ entity.ILaneManager = (*LaneManager)(nil)
