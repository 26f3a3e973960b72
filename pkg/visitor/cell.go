package visitor

import (
	"sync"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// Cell 是一个可整体替换的值容器，访问时透明转发到内部值。
type Cell[T any] struct {
	value T
}

func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

func (c *Cell[T]) Get() T {
	return c.value
}

func (c *Cell[T]) Set(value T) {
	c.value = value
}

// VisitCell 透明访问 Cell 的内部值。
func VisitCell[T any](v *Visitor, name string, c *Cell[T], fn VisitFunc[T]) error {
	value := c.value
	if err := fn(v, name, &value); err != nil {
		return err
	}
	c.value = value
	return nil
}

// RefCell 在单线程内跟踪可变借用，重复借用视为编程错误。
type RefCell[T any] struct {
	value    T
	borrowed bool
}

func NewRefCell[T any](value T) *RefCell[T] {
	return &RefCell[T]{value: value}
}

// TryBorrowMut 尝试取得可变借用，成功时返回的 release 必须被调用以归还借用。
func (c *RefCell[T]) TryBorrowMut() (value *T, release func(), ok bool) {
	if c.borrowed {
		return nil, nil, false
	}
	c.borrowed = true
	return &c.value, func() { c.borrowed = false }, true
}

// VisitRefCell 借用 RefCell 后转发访问，已被借用时返回 ErrRefCellAlreadyMutableBorrowed。
func VisitRefCell[T any](v *Visitor, name string, c *RefCell[T], fn VisitFunc[T]) error {
	value, release, ok := c.TryBorrowMut()
	if !ok {
		return merr.WrapErrRefCellAlreadyMutableBorrowed(name)
	}
	defer release()
	return fn(v, name, value)
}

// Mutex 是带有中毒标记的互斥容器：持锁期间发生 panic 后，后续加锁都会失败。
type Mutex[T any] struct {
	mu       sync.Mutex
	value    T
	poisoned bool
}

func NewMutex[T any](value T) *Mutex[T] {
	return &Mutex[T]{value: value}
}

// With 在持锁状态下执行 fn。
func (m *Mutex[T]) With(fn func(value *T) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poisoned {
		return merr.ErrPoisonedMutex
	}
	return poisonOnPanic(&m.poisoned, func() error { return fn(&m.value) })
}

func (m *Mutex[T]) IsPoisoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poisoned
}

// VisitMutex 在持锁期间转发访问，锁已中毒时返回 ErrPoisonedMutex。
func VisitMutex[T any](v *Visitor, name string, m *Mutex[T], fn VisitFunc[T]) error {
	err := m.With(func(value *T) error {
		return fn(v, name, value)
	})
	if err == merr.ErrPoisonedMutex {
		return merr.WrapErrPoisonedMutex(name)
	}
	return err
}

// RwLock 是带有中毒标记的读写锁容器。只有写锁期间的 panic 会使其中毒。
type RwLock[T any] struct {
	mu       sync.RWMutex
	value    T
	poisoned bool
}

func NewRwLock[T any](value T) *RwLock[T] {
	return &RwLock[T]{value: value}
}

func (l *RwLock[T]) Read(fn func(value *T) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.poisoned {
		return merr.ErrPoisonedMutex
	}
	return fn(&l.value)
}

func (l *RwLock[T]) Write(fn func(value *T) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.poisoned {
		return merr.ErrPoisonedMutex
	}
	return poisonOnPanic(&l.poisoned, func() error { return fn(&l.value) })
}

// VisitRwLock 以写锁转发访问，读模式下需要修改内部值。
func VisitRwLock[T any](v *Visitor, name string, l *RwLock[T], fn VisitFunc[T]) error {
	err := l.Write(func(value *T) error {
		return fn(v, name, value)
	})
	if err == merr.ErrPoisonedMutex {
		return merr.WrapErrPoisonedMutex(name)
	}
	return err
}

func poisonOnPanic(poisoned *bool, fn func() error) error {
	panicking := true
	defer func() {
		if panicking {
			*poisoned = true
		}
	}()
	err := fn()
	panicking = false
	return err
}
