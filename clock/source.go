package clock

import (
	"sort"
	"sync"
	"time"
)

// TimeSource 时间源
// 功能：为时钟、信号控制与过线车辆的延迟移除提供当前时间与定时器
// 说明：运行时使用系统时间，测试中使用VirtualSource手动推进时间
type TimeSource interface {
	// 当前时间
	Now() time.Time
	// d之后执行f，返回可取消的定时器
	AfterFunc(d time.Duration, f func()) Timer
	// d之后向返回的channel发送时间
	After(d time.Duration) <-chan time.Time
}

// Timer 可取消的定时器
type Timer interface {
	Stop() bool // 取消定时器，如果定时器已触发或已取消则返回false
}

type realSource struct{}

// RealSource 返回基于系统时间的时间源
func RealSource() TimeSource {
	return realSource{}
}

func (realSource) Now() time.Time {
	return time.Now()
}

func (realSource) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realSource) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// VirtualSource 虚拟时间源
// 功能：只有调用Advance时时间才会前进，到期的定时器在Advance中同步执行
// 说明：用于让依赖墙钟时间的逻辑（切换间隔、延迟移除）在测试中可复现
type VirtualSource struct {
	mtx    sync.Mutex
	now    time.Time
	seq    int
	timers []*virtualTimer
}

type virtualTimer struct {
	source *VirtualSource
	at     time.Time
	seq    int
	f      func()
	done   bool
}

// NewVirtualSource 创建以start为初始时间的虚拟时间源
func NewVirtualSource(start time.Time) *VirtualSource {
	return &VirtualSource{now: start}
}

func (s *VirtualSource) Now() time.Time {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.now
}

func (s *VirtualSource) AfterFunc(d time.Duration, f func()) Timer {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.seq++
	t := &virtualTimer{source: s, at: s.now.Add(d), seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *VirtualSource) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	s.AfterFunc(d, func() {
		ch <- s.Now()
	})
	return ch
}

// Advance 将虚拟时间前进d
// 功能：推进时间并按到期时间顺序执行所有到期的定时器
// 说明：定时器回调在锁外执行，回调中可以再次注册定时器或取消其他定时器
func (s *VirtualSource) Advance(d time.Duration) {
	s.mtx.Lock()
	s.now = s.now.Add(d)
	var due, rest []*virtualTimer
	for _, t := range s.timers {
		if t.done {
			continue
		}
		if !t.at.After(s.now) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.timers = rest
	sort.Slice(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	s.mtx.Unlock()

	for _, t := range due {
		s.mtx.Lock()
		fire := !t.done
		t.done = true
		s.mtx.Unlock()
		if fire {
			t.f()
		}
	}
}

// Pending 返回尚未触发且未取消的定时器数量
func (s *VirtualSource) Pending() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (t *virtualTimer) Stop() bool {
	t.source.mtx.Lock()
	defer t.source.mtx.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
