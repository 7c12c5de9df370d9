// 过线车辆管理：车辆越过停车线后在路口内继续前进，保留dwell_duration后从场景中移除
package egress

import (
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim/clock"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/container"
)

type item struct {
	container.IncrementalItemBase
	vehicle *vehicle.Vehicle
	timer   clock.Timer
}

// Tracker 过线车辆集合
// 功能：每一步推进所有过线车辆（不受停车线与跟车约束），并在保留时间到期后移除车辆
// 说明：移除由定时器在独立协程中触发，只写入增量数组的缓冲区，
// 在下一次Prepare时才真正从数组中删除，因此不会破坏主循环正在进行的遍历
type Tracker struct {
	ctx entity.ITaskContext

	items *container.IncrementalArray[*item]

	mtx  sync.Mutex
	byID map[int32]*item
}

func NewTracker(ctx entity.ITaskContext) *Tracker {
	return &Tracker{
		ctx:   ctx,
		items: container.NewIncrementalArray[*item](),
		byID:  make(map[int32]*item),
	}
}

// Accept 接收一辆越过停车线的车辆
// 功能：标记车辆已过线并变色，加入集合，安排dwell_duration后的移除
// 参数：v-越线车辆
// 返回：移除定时器，可以用来取消移除
func (t *Tracker) Accept(v *vehicle.Vehicle) clock.Timer {
	v.MarkCrossed()
	if err := t.ctx.Renderer().SetFill(v, entity.FillCrossed); err != nil {
		log.Warnf("fill %v failed: %v", v, err)
	}
	it := &item{vehicle: v}
	t.items.Add(it)

	t.mtx.Lock()
	t.byID[v.ID()] = it
	it.timer = t.ctx.Clock().Source().AfterFunc(t.ctx.RuntimeConfig().Dwell, func() {
		t.Remove(v)
	})
	t.mtx.Unlock()
	return it.timer
}

// Remove 将车辆从场景中移除
// 功能：从集合中删除车辆并通知绘制后端移除
// 返回：是否由本次调用完成移除；车辆不在集合中或已经被移除时返回false
// 说明：可以与主循环并发调用，重复调用是无操作
func (t *Tracker) Remove(v *vehicle.Vehicle) bool {
	t.mtx.Lock()
	it, ok := t.byID[v.ID()]
	if ok {
		delete(t.byID, v.ID())
	}
	t.mtx.Unlock()
	if !ok || !v.MarkRemoved() {
		return false
	}
	if it.timer != nil {
		it.timer.Stop()
	}
	t.items.Remove(it)
	if err := t.ctx.Renderer().Undraw(v); err != nil {
		log.Warnf("undraw %v failed: %v", v, err)
	}
	log.Debugf("%v removed", v)
	return true
}

// Prepare 准备阶段，应用缓冲区中的添加与删除
// 说明：在本步的Accept之后调用，越线车辆在越线的这一步就会前进
func (t *Tracker) Prepare() {
	t.items.Prepare()
}

// Update 更新阶段，所有过线车辆前进一步
// 说明：已被移除但尚未从数组中删除的车辆不再移动
func (t *Tracker) Update() {
	for _, it := range t.items.Data() {
		if it.vehicle.Removed() {
			continue
		}
		it.vehicle.Step()
	}
}

// Len 集合中的车辆数（不含已移除但尚未Prepare的车辆）
func (t *Tracker) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.byID)
}

// Vehicles 当前集合中的车辆，顺序不固定
func (t *Tracker) Vehicles() []*vehicle.Vehicle {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return lo.MapToSlice(t.byID, func(_ int32, it *item) *vehicle.Vehicle { return it.vehicle })
}
