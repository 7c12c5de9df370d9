package container

import (
	"sync"
)

// IIncrementalItem 支持增量更新的元素接口
// 功能：定义支持增量更新的元素必须实现的方法
// 说明：元素自己记录在数组中的位置，-1表示不在数组中
type IIncrementalItem interface {
	Index() int         // 获取元素的索引
	SetIndex(index int) // 设置元素的索引
}

// IncrementalItemBase 增量元素基类
// 功能：提供增量元素的基础实现，包含索引管理功能
// 说明：作为嵌入字段使用，新元素在Add时索引被置为-1
type IncrementalItemBase struct {
	index int // 元素在数组中的索引
}

// Index 获取元素的索引
func (b *IncrementalItemBase) Index() int {
	return b.index
}

// SetIndex 设置元素的索引
func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组，支持增量维护元素的数组
// 功能：主数据只在Prepare中修改，Add/Remove只写入缓冲区
// 说明：Add/Remove可以在任意协程中调用，遍历Data的协程必须与Prepare是同一个，
// 这样并发删除不会破坏正在进行的遍历
type IncrementalArray[T IIncrementalItem] struct {
	data        []T        // 主数据数组
	add         []T        // 待添加的元素列表
	remove      []T        // 待删除的元素列表
	addMutex    sync.Mutex // 添加操作的互斥锁
	removeMutex sync.Mutex // 删除操作的互斥锁
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

// Len 获取当前数组长度（不含缓冲区中的元素）
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 获取已应用所有增量操作的数据
// 说明：返回内部切片，调用方不可修改，且只能在Prepare所在协程中使用
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 增加元素（等到Prepare时才会真正增加）
func (a *IncrementalArray[T]) Add(value T) {
	value.SetIndex(-1)
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.add = append(a.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
// 说明：重复删除或删除不存在的元素在Prepare时被忽略
func (a *IncrementalArray[T]) Remove(value T) {
	a.removeMutex.Lock()
	defer a.removeMutex.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 执行增量操作
// 功能：统一执行所有待处理的添加和删除操作
// 算法说明：
// 1. 加锁取出两个缓冲区
// 2. 先追加所有新元素并设置索引，使同一周期内先加后删的元素也能被删除
// 3. 逐个删除：用末尾元素填补被删除的位置，并把被删除元素索引置为-1
// 4. 索引为-1的元素已不在数组中，直接跳过
func (a *IncrementalArray[T]) Prepare() {
	a.addMutex.Lock()
	adds := a.add
	a.add = []T{}
	a.addMutex.Unlock()

	a.removeMutex.Lock()
	removes := a.remove
	a.remove = []T{}
	a.removeMutex.Unlock()

	for _, x := range adds {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	for _, x := range removes {
		ind := x.Index()
		if ind < 0 || ind >= len(a.data) {
			continue
		}
		last := len(a.data) - 1
		// 从后面拿一项填过来
		a.data[ind] = a.data[last]
		a.data[ind].SetIndex(ind)
		var zero T
		a.data[last] = zero
		a.data = a.data[:last]
		x.SetIndex(-1)
	}
}
