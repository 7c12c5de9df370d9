package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
)

var ErrInjected = errors.New("render: injected failure")

// Call 一次绘制调用
type Call struct {
	Op      string // draw|undraw|fill|label
	Vehicle int32
	Fill    entity.FillState
	Name    string
	Text    string
}

func (c Call) String() string {
	switch c.Op {
	case "label":
		return fmt.Sprintf("label(%s=%s)", c.Name, c.Text)
	case "fill":
		return fmt.Sprintf("fill(%d,%v)", c.Vehicle, c.Fill)
	}
	return fmt.Sprintf("%s(%d)", c.Op, c.Vehicle)
}

// Recorder 记录所有绘制调用
// 功能：用于检查仿真核心对绘制接口的调用顺序与内容，也可以注入失败
type Recorder struct {
	mtx        sync.Mutex
	calls      []Call
	labels     map[string]string
	FailLabels bool // 为true时SetLabel返回ErrInjected
	FailDraw   bool // 为true时Draw返回ErrInjected
}

func NewRecorder() *Recorder {
	return &Recorder{labels: make(map[string]string)}
}

func (r *Recorder) record(c Call) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) Draw(v entity.IVehicle) error {
	r.record(Call{Op: "draw", Vehicle: v.ID()})
	if r.FailDraw {
		return ErrInjected
	}
	return nil
}

func (r *Recorder) Undraw(v entity.IVehicle) error {
	r.record(Call{Op: "undraw", Vehicle: v.ID()})
	return nil
}

func (r *Recorder) SetFill(v entity.IVehicle, fill entity.FillState) error {
	r.record(Call{Op: "fill", Vehicle: v.ID(), Fill: fill})
	return nil
}

func (r *Recorder) SetLabel(name, text string) error {
	r.record(Call{Op: "label", Name: name, Text: text})
	if r.FailLabels {
		return ErrInjected
	}
	r.mtx.Lock()
	r.labels[name] = text
	r.mtx.Unlock()
	return nil
}

// Calls 所有调用的副本
func (r *Recorder) Calls() []Call {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf 指定类型的调用
func (r *Recorder) CallsOf(op string) []Call {
	return lo.Filter(r.Calls(), func(c Call, _ int) bool { return c.Op == op })
}

// Label 最近一次成功设置的统计文本
func (r *Recorder) Label(name string) string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.labels[name]
}

var _ entity.IRenderer = (*Recorder)(nil)
