// 绘制后端，仿真核心只依赖entity.IRenderer接口
package render

import (
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
)

// LogRenderer 以日志形式输出绘制命令
// 功能：车辆的绘制、移除与变色输出为Debug日志，统计文本的变化输出为Info日志
// 说明：可能在延迟移除的协程中被调用，内部状态加锁保护
type LogRenderer struct {
	mtx    sync.Mutex
	labels map[string]string
	drawn  map[int32]struct{}
}

func NewLogRenderer() *LogRenderer {
	return &LogRenderer{
		labels: make(map[string]string),
		drawn:  make(map[int32]struct{}),
	}
}

func (r *LogRenderer) Draw(v entity.IVehicle) error {
	r.mtx.Lock()
	r.drawn[v.ID()] = struct{}{}
	r.mtx.Unlock()
	p := v.Position()
	log.WithFields(logrus.Fields{"vehicle": v.ID(), "x": p.X, "y": p.Y}).Debug("draw")
	return nil
}

func (r *LogRenderer) Undraw(v entity.IVehicle) error {
	r.mtx.Lock()
	delete(r.drawn, v.ID())
	r.mtx.Unlock()
	log.WithField("vehicle", v.ID()).Debug("undraw")
	return nil
}

func (r *LogRenderer) SetFill(v entity.IVehicle, fill entity.FillState) error {
	log.WithFields(logrus.Fields{"vehicle": v.ID(), "fill": fill}).Debug("fill")
	return nil
}

// SetLabel 更新统计文本，只有内容变化时才输出
func (r *LogRenderer) SetLabel(name, text string) error {
	r.mtx.Lock()
	old, ok := r.labels[name]
	r.labels[name] = text
	r.mtx.Unlock()
	if !ok || old != text {
		log.Infof("%s=%s", name, text)
	}
	return nil
}

// Labels 当前所有统计文本的副本
func (r *LogRenderer) Labels() map[string]string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return lo.Assign(r.labels)
}

// Drawn 当前场景中的车辆数
func (r *LogRenderer) Drawn() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.drawn)
}

var _ entity.IRenderer = (*LogRenderer)(nil)
