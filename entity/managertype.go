package entity

import "time"

// Manager依赖倒置

// entity/lane/manager.go的依赖倒置
type ILaneManager interface {
	// 输入Lane ID，查找Lane，如果不存在则panic
	Get(id int32) ILane
	// 按ID顺序返回所有Lane
	Lanes() []ILane
	// 统计信号组的排队压力
	Aggregate(group Group, now time.Time) GroupPressure
}
