package junction

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"git.fiblab.net/sim/syncer/v3"
)

var (
	ErrNoJunction     = errors.New("junction id does not exist")
	ErrNotInitialized = errors.New("junction is not initialized")
)

// Register 将信号灯服务注册到sidecar
func (j *Junction) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		mapv2connect.TrafficLightServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return mapv2connect.NewTrafficLightServiceHandler(j, opts...)
		},
	)
}

// GetTrafficLight RPC接口：获取信号灯状态
// 功能：返回自适应信控的三相位描述、当前相位索引与距离允许下一次切换的时间
func (j *Junction) GetTrafficLight(
	ctx context.Context, in *connect.Request[mapv2.GetTrafficLightRequest],
) (*connect.Response[mapv2.GetTrafficLightResponse], error) {
	if in.Msg.JunctionId != j.id {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrNoJunction)
	}
	tl := j.loadTrafficLight()
	if tl == nil {
		return nil, connect.NewError(connect.CodeUnavailable, ErrNotInitialized)
	}
	return connect.NewResponse(&mapv2.GetTrafficLightResponse{
		TrafficLight:  tl.Get(),
		PhaseIndex:    tl.Step(),
		TimeRemaining: tl.RemainingTime(),
	}), nil
}

// SetTrafficLightStatus RPC接口：设置信控开关
// 说明：关闭后所有车道全绿且不再做切换决策，重新打开后恢复自适应控制
func (j *Junction) SetTrafficLightStatus(
	ctx context.Context, in *connect.Request[mapv2.SetTrafficLightStatusRequest],
) (*connect.Response[mapv2.SetTrafficLightStatusResponse], error) {
	if in.Msg.JunctionId != j.id {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrNoJunction)
	}
	tl := j.loadTrafficLight()
	if tl == nil {
		return nil, connect.NewError(connect.CodeUnavailable, ErrNotInitialized)
	}
	tl.SetOk(in.Msg.Ok)
	log.Infof("junction %d: traffic light ok=%v", j.id, in.Msg.Ok)
	return connect.NewResponse(&mapv2.SetTrafficLightStatusResponse{}), nil
}
