package lane

import (
	"fmt"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
)

// Lane 进口车道
// 功能：维护一条进口车道的排队车辆，执行车辆推进、停车线约束与跟车约束
// 说明：车道是固定的，初始化后只有排队车辆与信号灯状态会变化
type Lane struct {
	ctx entity.ITaskContext

	id        int32
	spawn     geometry.Point   // 车辆生成点
	stop      float64          // 停车线坐标
	direction entity.Direction // 行驶方向
	group     entity.Group     // 所属信号组

	vehicles vehicleQueue
	crossed  []*vehicle.Vehicle // 本步越过停车线的车辆

	lightState              mapv2.LightState // 车道信号灯状态
	lightStateTotalTime     float64          // 车道信号灯本相位总时长
	lightStateRemainingTime float64          // 车道信号灯下一次切换时间
}

// newLane 根据配置创建车道
// 参数：ctx-任务上下文，id-车道ID，base-车道配置
// 返回：车道实例；方向或信号组非法时返回错误
func newLane(ctx entity.ITaskContext, id int32, base config.Lane) (*Lane, error) {
	direction, err := entity.ParseDirection(base.Direction)
	if err != nil {
		return nil, fmt.Errorf("lane %d: %w", id, err)
	}
	group, err := entity.ParseGroup(base.Group)
	if err != nil {
		return nil, fmt.Errorf("lane %d: %w", id, err)
	}
	return &Lane{
		ctx:        ctx,
		id:         id,
		spawn:      geometry.Point{X: base.SpawnX, Y: base.SpawnY},
		stop:       base.StopCoordinate,
		direction:  direction,
		group:      group,
		vehicles:   newVehicleQueue(fmt.Sprintf("lane-%d", id)),
		crossed:    make([]*vehicle.Vehicle, 0),
		lightState: mapv2.LightState_LIGHT_STATE_UNSPECIFIED,
	}, nil
}

// prepare 准备阶段，将新生成的车辆加入队尾
func (l *Lane) prepare() {
	l.vehicles.prepare(l.stop)
}

// update 更新阶段
// 功能：按从前到后的顺序推进本车道的每一辆车，然后取出越线车辆
// 算法说明：
// 1. 车辆前进一步
// 2. 停车线禁止通行时，把越线的车辆拉回停车线
// 3. 与前车间隙不足follow_gap时后移，前车停住时整条队列随之停住
// 4. 队首越过停车线的车辆离开队列，记录到crossed中
func (l *Lane) update() {
	gap := l.ctx.RuntimeConfig().All.Vehicle.FollowGap
	noEntry := l.IsNoEntry()

	for node := l.vehicles.list.First(); node != nil; node = node.Next() {
		v := node.Value
		v.Step()
		if noEntry {
			v.ClampToLine(l.stop)
		}
		if prev := node.Prev(); prev != nil {
			v.KeepDistance(prev.Value, gap)
		}
		node.S = v.DistanceToLine(l.stop)
	}
	if ok, bad := l.vehicles.list.Sorted(); !ok {
		log.Panicf("lane %d: %v overtook the vehicle ahead, keys=%v", l.id, bad.Value, l.vehicles.list.Keys())
	}
	l.crossed = l.dequeueCrossed()
}

// dequeueCrossed 取出越线车辆
// 功能：从队首开始依次取出车头已越过停车线的车辆
// 返回：按队列顺序排列的越线车辆
// 说明：队列有序，越线车辆只可能出现在队首
func (l *Lane) dequeueCrossed() []*vehicle.Vehicle {
	crossed := make([]*vehicle.Vehicle, 0)
	for node := l.vehicles.list.First(); node != nil && node.Value.Beyond(l.stop); node = l.vehicles.list.First() {
		l.vehicles.list.PopFront()
		crossed = append(crossed, node.Value)
		log.Debugf("%v crossed stop line of lane %d", node.Value, l.id)
	}
	return crossed
}

// addVehicle 将新车辆加入车道
func (l *Lane) addVehicle(v *vehicle.Vehicle) {
	l.vehicles.add(v)
}

// totalWait 所有排队车辆的等待时间之和（秒）
func (l *Lane) totalWait(now time.Time) float64 {
	return lo.SumBy(l.vehicles.list.Values(), func(v *vehicle.Vehicle) float64 {
		return v.WaitTime(now)
	})
}

func (l *Lane) String() string {
	return fmt.Sprintf("Lane{id=%d, dir=%v, group=%v, queue=%d, light=%v}", l.id, l.direction, l.group, l.QueueLen(), l.lightState)
}

func (l *Lane) ID() int32 {
	return l.id
}

func (l *Lane) Group() entity.Group {
	return l.group
}

func (l *Lane) Direction() entity.Direction {
	return l.direction
}

func (l *Lane) SpawnPoint() geometry.Point {
	return l.spawn
}

func (l *Lane) StopCoordinate() float64 {
	return l.stop
}

// QueueLen 排队车辆数
func (l *Lane) QueueLen() int {
	return l.vehicles.len()
}

// Vehicles 从停车线开始依次返回所有排队车辆
func (l *Lane) Vehicles() []*vehicle.Vehicle {
	return l.vehicles.list.Values()
}

// 信号灯

// 获取信号灯状态
func (l *Lane) Light() mapv2.LightState {
	return l.lightState
}

// 设置信号灯状态
func (l *Lane) SetLight(state mapv2.LightState, totalTime float64, remainingTime float64) {
	l.lightState = state
	l.lightStateTotalTime = totalTime
	l.lightStateRemainingTime = remainingTime
}

// 检查停车线是否禁止通行（不是绿灯）
func (l *Lane) IsNoEntry() bool {
	return l.lightState != mapv2.LightState_LIGHT_STATE_GREEN
}

var _ entity.ILane = (*Lane)(nil)
