package lane

import (
	"sync"

	"github.com/tsinghua-fib-lab/intersection-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/container"
)

type (
	vehicleNode = container.ListNode[*vehicle.Vehicle]
	vehicleList = container.List[*vehicle.Vehicle]
)

// vehicleQueue 车道排队队列
// 功能：链表头为最靠近停车线的车辆，新车辆先写入缓冲区，在prepare中追加到队尾
// 说明：add可以在任意协程中调用，其余方法只能在主循环中调用
type vehicleQueue struct {
	list           *vehicleList
	addBuffer      []*vehicleNode
	addBufferMutex sync.Mutex
}

func newVehicleQueue(id string) vehicleQueue {
	return vehicleQueue{
		list:      &vehicleList{ID: id},
		addBuffer: make([]*vehicleNode, 0),
	}
}

// prepare 将缓冲区中的车辆按加入顺序追加到队尾
func (q *vehicleQueue) prepare(stop float64) {
	q.addBufferMutex.Lock()
	defer q.addBufferMutex.Unlock()
	for _, node := range q.addBuffer {
		node.S = node.Value.DistanceToLine(stop)
		q.list.PushBack(node)
	}
	q.addBuffer = q.addBuffer[:0]
}

// add 添加车辆到缓冲区
func (q *vehicleQueue) add(v *vehicle.Vehicle) {
	q.addBufferMutex.Lock()
	q.addBuffer = append(q.addBuffer, &vehicleNode{Value: v})
	q.addBufferMutex.Unlock()
}

func (q *vehicleQueue) len() int {
	return q.list.Len()
}
