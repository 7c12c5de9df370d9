package task

import (
	"flag"
)

const (
	SelfName = "intersection" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：推进时钟，定期输出心跳日志
func (ctx *Context) prepare() {
	ctx.clock.Tick()
	if *heartBeatInterval > 0 && ctx.clock.Steps()%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		stats := ctx.junction.Stats()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) queued A=%d B=%d crossed=%d",
			ctx.clock.InternalStep,
			hour, minute, second,
			stats.A.Count, stats.B.Count, ctx.tracker.Len(),
		)
	}
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 以spawn_probability的概率在随机车道上生成车辆，并加入队尾
// 2. 统计两组压力，执行信控决策，把信号写入车道
// 3. 输出统计文本
// 4. 逐车道推进排队车辆，越线车辆交给过线车辆集合
// 5. 过线车辆前进一步
// 说明：越线车辆在越线的这一步也会在第5步中前进
func (ctx *Context) update() {
	now := ctx.clock.CurrentTime()

	ctx.laneManager.Spawn(now)
	ctx.laneManager.Prepare()

	stats := ctx.junction.Update(now)
	for _, label := range stats.Labels() {
		if err := ctx.renderer.SetLabel(label[0], label[1]); err != nil {
			log.Warnf("set label %s failed: %v", label[0], err)
		}
	}

	for _, v := range ctx.laneManager.Update() {
		ctx.tracker.Accept(v)
	}
	ctx.tracker.Prepare()
	ctx.tracker.Update()
}
