package entity

import (
	"fmt"
	"time"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// Direction 行驶方向
// 说明：取值等于沿行驶坐标轴前进时坐标变化的符号，北向为y减小，因此单独编码
type Direction int32

const (
	West  Direction = -1 // 向西，x减小
	North Direction = 0  // 向北，y减小
	East  Direction = 1  // 向东，x增大
)

// ParseDirection 将配置中的方向字符串转换为Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "west":
		return West, nil
	case "north":
		return North, nil
	case "east":
		return East, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case West:
		return "west"
	case North:
		return "north"
	case East:
		return "east"
	}
	return fmt.Sprintf("Direction(%d)", int32(d))
}

// Axis 行驶所在的坐标轴
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (d Direction) Axis() Axis {
	if d == North {
		return AxisY
	}
	return AxisX
}

// Sign 沿行驶方向前进时坐标的变化符号
func (d Direction) Sign() float64 {
	if d == East {
		return 1
	}
	return -1
}

// Group 信号组
type Group int32

const (
	GroupA Group = iota
	GroupB
)

func ParseGroup(s string) (Group, error) {
	switch s {
	case "A":
		return GroupA, nil
	case "B":
		return GroupB, nil
	}
	return 0, fmt.Errorf("unknown group %q", s)
}

func (g Group) String() string {
	switch g {
	case GroupA:
		return "A"
	case GroupB:
		return "B"
	}
	return fmt.Sprintf("Group(%d)", int32(g))
}

// Other 另一个信号组
func (g Group) Other() Group {
	if g == GroupA {
		return GroupB
	}
	return GroupA
}

// FillState 车辆的绘制颜色状态
type FillState int32

const (
	FillQueued  FillState = iota // 排队中
	FillCrossed                  // 已越过停车线
)

func (f FillState) String() string {
	if f == FillCrossed {
		return "red"
	}
	return "blue"
}

// GroupPressure 信号组的排队压力
type GroupPressure struct {
	Count int     // 排队车辆数
	Wait  float64 // 所有排队车辆的等待时间之和（秒）
}

// entity/vehicle/vehicle.go的依赖倒置
type IVehicle interface {
	ID() int32
	Position() geometry.Point // 左上角坐标
	Direction() Direction
	Size() float64
	SpawnTime() time.Time
	Crossed() bool // 是否已越过停车线
	Removed() bool // 是否已从场景中移除

	String() string
}

// 绘制接口，仿真核心只通过该接口输出
// 所有方法都可能失败，失败由调用方记录日志后继续仿真
type IRenderer interface {
	Draw(v IVehicle) error                    // 绘制新生成的车辆
	Undraw(v IVehicle) error                  // 移除车辆
	SetFill(v IVehicle, fill FillState) error // 修改车辆颜色
	SetLabel(name, text string) error         // 修改统计文本
}

// 信号控制对车道的写接口
type ILaneTrafficLightSetter interface {
	ID() int32
	Group() Group
	SetLight(state mapv2.LightState, totalTime float64, remainingTime float64) // 设置信号灯状态
}

// entity/lane/lane.go的依赖倒置
type ILane interface {
	ILaneTrafficLightSetter

	String() string

	Direction() Direction
	SpawnPoint() geometry.Point
	StopCoordinate() float64
	Light() mapv2.LightState
	IsNoEntry() bool // 停车线是否禁止通行
	QueueLen() int   // 排队车辆数
}
