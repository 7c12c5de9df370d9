package container_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/intersection-sim/utils/container"
)

type arrayItem struct {
	container.IncrementalItemBase
	id int
}

func ids(a *container.IncrementalArray[*arrayItem]) []int {
	res := make([]int, 0, a.Len())
	for _, x := range a.Data() {
		res = append(res, x.id)
	}
	return res
}

func TestIncrementalArrayAddRemove(t *testing.T) {
	a := container.NewIncrementalArray[*arrayItem]()
	items := []*arrayItem{{id: 0}, {id: 1}, {id: 2}, {id: 3}}
	for _, x := range items {
		a.Add(x)
	}
	// 缓冲区中的元素在Prepare之前不可见
	assert.Equal(t, 0, a.Len())
	a.Prepare()
	assert.Equal(t, 4, a.Len())
	for i, x := range a.Data() {
		assert.Equal(t, i, x.Index())
	}

	a.Remove(items[1])
	a.Prepare()
	assert.ElementsMatch(t, []int{0, 2, 3}, ids(a))
	assert.Equal(t, -1, items[1].Index())
	for i, x := range a.Data() {
		assert.Equal(t, i, x.Index())
	}
}

func TestIncrementalArrayRemoveIsIdempotent(t *testing.T) {
	a := container.NewIncrementalArray[*arrayItem]()
	x, y := &arrayItem{id: 1}, &arrayItem{id: 2}
	a.Add(x)
	a.Add(y)
	a.Prepare()

	a.Remove(x)
	a.Remove(x)
	a.Prepare()
	assert.Equal(t, []int{2}, ids(a))

	// 已经删除的元素再次删除不影响其他元素
	a.Remove(x)
	a.Prepare()
	assert.Equal(t, []int{2}, ids(a))
	assert.Equal(t, 0, y.Index())
}

func TestIncrementalArrayAddThenRemoveInSameCycle(t *testing.T) {
	a := container.NewIncrementalArray[*arrayItem]()
	x := &arrayItem{id: 7}
	a.Add(x)
	a.Remove(x)
	a.Prepare()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, -1, x.Index())
}

func TestIncrementalArrayConcurrentRemoveDuringIteration(t *testing.T) {
	a := container.NewIncrementalArray[*arrayItem]()
	items := make([]*arrayItem, 100)
	for i := range items {
		items[i] = &arrayItem{id: i}
		a.Add(items[i])
	}
	a.Prepare()

	var wg sync.WaitGroup
	for i := 0; i < len(items); i += 2 {
		wg.Add(1)
		go func(x *arrayItem) {
			defer wg.Done()
			a.Remove(x)
		}(items[i])
	}
	// 遍历期间的删除只写缓冲区
	seen := 0
	for range a.Data() {
		seen++
	}
	wg.Wait()
	assert.Equal(t, 100, seen)

	a.Prepare()
	assert.Equal(t, 50, a.Len())
	for _, x := range a.Data() {
		assert.Equal(t, 1, x.id%2)
	}
}
