package vehicle

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
)

// Vehicle 车辆实体
// 功能：边长为size的正方形车辆，沿所在车道的方向前进
// 说明：pos为左上角坐标；位置可能被主循环与延迟移除任务同时访问，因此读写加锁
type Vehicle struct {
	id        int32
	direction entity.Direction
	size      float64
	step      float64 // 每步前进的距离
	spawnTime time.Time

	mtx sync.RWMutex
	pos geometry.Point

	crossed atomic.Bool
	removed atomic.Bool
}

// New 创建车辆
// 功能：以spawn为中心点创建车辆
// 参数：id-车辆ID，spawn-生成点（车辆中心），direction-行驶方向，size-车身边长，step-每步前进距离，now-生成时间
func New(id int32, spawn geometry.Point, direction entity.Direction, size, step float64, now time.Time) *Vehicle {
	return &Vehicle{
		id:        id,
		direction: direction,
		size:      size,
		step:      step,
		spawnTime: now,
		pos:       geometry.Point{X: spawn.X - size/2, Y: spawn.Y - size/2},
	}
}

func (v *Vehicle) String() string {
	p := v.Position()
	return fmt.Sprintf("Vehicle{id=%d, dir=%v, x=%.1f, y=%.1f}", v.id, v.direction, p.X, p.Y)
}

func (v *Vehicle) ID() int32 {
	return v.id
}

func (v *Vehicle) Size() float64 {
	return v.size
}

func (v *Vehicle) Direction() entity.Direction {
	return v.direction
}

func (v *Vehicle) SpawnTime() time.Time {
	return v.spawnTime
}

// Position 左上角坐标
func (v *Vehicle) Position() geometry.Point {
	v.mtx.RLock()
	defer v.mtx.RUnlock()
	return v.pos
}

// WaitTime 自生成以来的等待时间（秒）
func (v *Vehicle) WaitTime(now time.Time) float64 {
	return now.Sub(v.spawnTime).Seconds()
}

func (v *Vehicle) Crossed() bool {
	return v.crossed.Load()
}

// MarkCrossed 标记车辆已越过停车线
func (v *Vehicle) MarkCrossed() {
	v.crossed.Store(true)
}

func (v *Vehicle) Removed() bool {
	return v.removed.Load()
}

// MarkRemoved 标记车辆已移除
// 返回：是否是本次调用完成的标记，重复调用返回false
func (v *Vehicle) MarkRemoved() bool {
	return v.removed.CompareAndSwap(false, true)
}

var _ entity.IVehicle = (*Vehicle)(nil)
