package task

import (
	"context"
	"fmt"
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/intersection-sim/clock"
	"github.com/tsinghua-fib-lab/intersection-sim/entity"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/egress"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/junction"
	"github.com/tsinghua-fib-lab/intersection-sim/entity/lane"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/config"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/randengine"
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态，替代全局变量
// 说明：只有主循环修改仿真状态；延迟移除与RPC通过各组件自己的同步机制访问
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，提供RPC服务并与syncer交互，为nil时不提供RPC
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 绘制后端
	renderer entity.IRenderer

	// Lane管理器
	laneManager *lane.LaneManager
	// 路口与信号灯
	junction *junction.Junction
	// 过线车辆
	tracker *egress.Tracker
}

// NewContext 创建新的仿真任务上下文
// 参数：
//   - job: 任务名称，为空时生成随机名称
//   - rc: 运行时配置
//   - renderer: 绘制后端
//   - source: 时间源，为nil时使用系统时间
//   - sidecar: 外部sidecar实例，为nil时不提供RPC服务
//
// 返回：创建完成的Context实例，需要调用Init或Run后才能推进
func NewContext(
	job string,
	rc *config.RuntimeConfig,
	renderer entity.IRenderer,
	source clock.TimeSource,
	sidecar *syncer.Sidecar,
) *Context {
	if job == "" {
		job = uuid.NewString()
	}
	ctx := &Context{
		job:            job,
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}),
		runtimeConfig:  rc,
		renderer:       renderer,
	}
	ctx.clock = clock.New(rc.C, source)
	ctx.laneManager = lane.NewManager(ctx, randengine.New(rc.C.Seed))
	ctx.junction = junction.NewJunction(ctx, 0)
	ctx.tracker = egress.NewTracker(ctx)

	if ctx.sidecar != nil {
		ctx.clock.Register(ctx.sidecar)
		ctx.junction.Register(ctx.sidecar)
		// sidecar协程，用于提供RPC服务
		go func() {
			err := ctx.sidecar.Serve()
			if err != nil {
				log.Panicf("failed to serve: %v", err)
			}
			ctx.sidecarCloseCh <- struct{}{}
		}()
	}
	return ctx
}

func (ctx *Context) Job() string {
	return ctx.job
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Renderer() entity.IRenderer {
	return ctx.renderer
}

func (ctx *Context) LaneManager() entity.ILaneManager {
	return ctx.laneManager
}

func (ctx *Context) Lanes() *lane.LaneManager {
	return ctx.laneManager
}

func (ctx *Context) Junction() *junction.Junction {
	return ctx.junction
}

func (ctx *Context) Tracker() *egress.Tracker {
	return ctx.tracker
}

// Init 初始化
// 功能：重置时钟，创建车道，创建信号灯并写入初始信号
// 返回：车道配置非法时返回错误
func (ctx *Context) Init() error {
	ctx.clock.Init()
	lanes := ctx.runtimeConfig.All.Lanes
	if err := ctx.laneManager.Init(lanes); err != nil {
		return fmt.Errorf("init lanes: %w", err)
	}
	ctx.junction.Init(ctx.laneManager)
	log.Infof("job %s: %d lanes, start at %v", ctx.job, len(lanes), ctx.clock.Start())
	return nil
}

// Step 同步执行一步
func (ctx *Context) Step() {
	ctx.prepare()
	ctx.update()
}

// Run 运行
// 功能：初始化后循环执行仿真步，每步之间等待tick_delay
// 参数：c-取消后在当前步结束时退出
// 返回：初始化失败时返回错误
// 说明：达到control.total步或sidecar要求关闭时也会退出
func (ctx *Context) Run(c context.Context) error {
	if err := ctx.Init(); err != nil {
		return err
	}
	if ctx.sidecar != nil {
		// init syncer
		ctx.sidecar.Step(false)
	}
loop:
	for {
		ctx.prepare()
		if ctx.sidecar != nil {
			ctx.sidecar.NotifyStepReady()
		}
		ctx.update()

		finished := ctx.clock.Finished()
		close := false
		if ctx.sidecar != nil {
			close = ctx.sidecar.Step(finished)
		}
		if finished || close || ctx.closed.Load() {
			break
		}
		select {
		case <-c.Done():
			break loop
		case <-ctx.clock.Source().After(ctx.clock.Delay()):
		}
	}
	log.Infof("engine complete after %d steps, %d switches", ctx.clock.Steps(), ctx.junction.TrafficLight().Switches())
	ctx.Close()
	return nil
}

// Close 关闭sidecar，可以重复调用
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}
