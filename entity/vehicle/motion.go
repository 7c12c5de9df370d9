package vehicle

import (
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
)

// 运动计算统一在“进度坐标”下进行：
// progress = Sign * 行驶轴上的中心坐标，沿行驶方向前进时progress增大，
// 车头进度 = progress + size/2，停车线进度 = Sign * 停车线坐标。
// 这样西向、北向、东向三种车道共用同一套比较逻辑。

// progress 车辆中心的进度坐标，调用方需持有锁
func (v *Vehicle) progress() float64 {
	center := v.pos.X + v.size/2
	if v.direction.Axis() == entity.AxisY {
		center = v.pos.Y + v.size/2
	}
	return v.direction.Sign() * center
}

// setProgress 根据进度坐标设置车辆位置，调用方需持有写锁
func (v *Vehicle) setProgress(p float64) {
	center := v.direction.Sign() * p
	if v.direction.Axis() == entity.AxisY {
		v.pos.Y = center - v.size/2
	} else {
		v.pos.X = center - v.size/2
	}
}

// stopProgress 停车线的进度坐标
func (v *Vehicle) stopProgress(stop float64) float64 {
	return v.direction.Sign() * stop
}

// Step 沿行驶方向前进一步
func (v *Vehicle) Step() {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	v.setProgress(v.progress() + v.step)
}

// LeadingProgress 车头的进度坐标
func (v *Vehicle) LeadingProgress() float64 {
	v.mtx.RLock()
	defer v.mtx.RUnlock()
	return v.progress() + v.size/2
}

// Beyond 车头是否已越过停车线
// 说明：车头恰好压线不算越线
// 西向：左边缘x < stop；北向：上边缘y < stop；东向：右边缘x > stop
func (v *Vehicle) Beyond(stop float64) bool {
	return v.LeadingProgress() > v.stopProgress(stop)
}

// DistanceToLine 车头到停车线的距离，越线后为负
func (v *Vehicle) DistanceToLine(stop float64) float64 {
	return v.stopProgress(stop) - v.LeadingProgress()
}

// ClampToLine 停车线约束
// 功能：如果车头越过停车线，将车辆拉回到车头恰好压线的位置
// 返回：是否发生了修正
func (v *Vehicle) ClampToLine(stop float64) bool {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	stopP := v.stopProgress(stop)
	if v.progress()+v.size/2 <= stopP {
		return false
	}
	v.setProgress(stopP - v.size/2)
	return true
}

// KeepDistance 跟车约束
// 功能：如果与前车相邻边缘的间隙小于gap，将本车后移使间隙恰好为gap
// 参数：ahead-同一车道上的前车，gap-最小间隙
// 返回：是否发生了修正
func (v *Vehicle) KeepDistance(ahead *Vehicle, gap float64) bool {
	if ahead == nil || ahead == v {
		return false
	}
	aheadTail := ahead.LeadingProgress() - ahead.size
	v.mtx.Lock()
	defer v.mtx.Unlock()
	if aheadTail-(v.progress()+v.size/2) >= gap {
		return false
	}
	v.setProgress(aheadTail - gap - v.size/2)
	return true
}

// Gap 本车车头与前车车尾之间的间隙
func (v *Vehicle) Gap(ahead *Vehicle) float64 {
	return ahead.LeadingProgress() - ahead.size - v.LeadingProgress()
}
