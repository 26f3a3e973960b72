// Package pool 提供按 (index, generation) 句柄寻址的泛型对象池。
//
// 池中每个槽位都记录一个世代号，槽位被释放后再次分配时世代号递增，
// 旧句柄因此自动失效，不会误指向新对象。
package pool

import (
	"fmt"
	"iter"
)

// Handle 是指向 Pool[T] 中某个槽位的句柄。
// 零值表示空句柄，不指向任何对象。
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// NewHandle 按给定下标与世代号构造句柄，generation 为 0 时等价于空句柄。
func NewHandle[T any](index, generation uint32) Handle[T] {
	return Handle[T]{index: index, generation: generation}
}

// None 返回空句柄。
func None[T any]() Handle[T] {
	return Handle[T]{}
}

func (h Handle[T]) IsNone() bool {
	return h.generation == 0
}

func (h Handle[T]) IsSome() bool {
	return h.generation != 0
}

func (h Handle[T]) Index() uint32 {
	return h.index
}

func (h Handle[T]) Generation() uint32 {
	return h.generation
}

func (h Handle[T]) String() string {
	if h.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%d:%d", h.index, h.generation)
}

type record[T any] struct {
	generation uint32
	payload    *T
}

// Pool 是基于槽位与世代号的对象池。
//
// 对象以指针形式保存，Borrow 返回的指针在对象被释放前始终有效，
// 不受后续 Spawn 触发的扩容影响。Pool 不是并发安全的。
type Pool[T any] struct {
	records   []record[T]
	freeStack []uint32
	alive     int
}

// New 创建一个空的对象池。
func New[T any]() *Pool[T] {
	return &Pool[T]{}
}

// Spawn 将 payload 放入池中并返回其句柄，优先复用已释放的槽位。
func (p *Pool[T]) Spawn(payload T) Handle[T] {
	p.alive++
	if n := len(p.freeStack); n > 0 {
		index := p.freeStack[n-1]
		p.freeStack = p.freeStack[:n-1]
		rec := &p.records[index]
		rec.generation++
		rec.payload = &payload
		return Handle[T]{index: index, generation: rec.generation}
	}

	p.records = append(p.records, record[T]{generation: 1, payload: &payload})
	return Handle[T]{index: uint32(len(p.records) - 1), generation: 1}
}

// TryBorrow 返回句柄指向的对象，句柄无效时返回 false。
func (p *Pool[T]) TryBorrow(h Handle[T]) (*T, bool) {
	if h.IsNone() || int(h.index) >= len(p.records) {
		return nil, false
	}
	rec := &p.records[h.index]
	if rec.generation != h.generation || rec.payload == nil {
		return nil, false
	}
	return rec.payload, true
}

// Borrow 返回句柄指向的对象，句柄无效时 panic。
func (p *Pool[T]) Borrow(h Handle[T]) *T {
	obj, ok := p.TryBorrow(h)
	if !ok {
		panic(fmt.Sprintf("pool: invalid handle %s", h))
	}
	return obj
}

// IsValidHandle 判断句柄当前是否指向存活对象。
func (p *Pool[T]) IsValidHandle(h Handle[T]) bool {
	_, ok := p.TryBorrow(h)
	return ok
}

// Free 释放句柄指向的对象并返回它，句柄无效时返回 false。
func (p *Pool[T]) Free(h Handle[T]) (T, bool) {
	var zero T
	obj, ok := p.TryBorrow(h)
	if !ok {
		return zero, false
	}
	payload := *obj
	p.records[h.index].payload = nil
	p.freeStack = append(p.freeStack, h.index)
	p.alive--
	return payload, true
}

// AliveCount 返回当前存活对象数量。
func (p *Pool[T]) AliveCount() int {
	return p.alive
}

// Capacity 返回槽位总数，包括已释放的槽位。
func (p *Pool[T]) Capacity() int {
	return len(p.records)
}

// Clear 清空池中所有对象，之前发放的句柄全部失效。
// 槽位本身保留，世代号在复用时继续递增。
func (p *Pool[T]) Clear() {
	for i := range p.records {
		if p.records[i].payload != nil {
			p.records[i].payload = nil
			p.freeStack = append(p.freeStack, uint32(i))
		}
	}
	p.alive = 0
}

// Pairs 按槽位顺序遍历所有存活对象及其句柄。
func (p *Pool[T]) Pairs() iter.Seq2[Handle[T], *T] {
	return func(yield func(Handle[T], *T) bool) {
		for i := range p.records {
			rec := &p.records[i]
			if rec.payload == nil {
				continue
			}
			if !yield(Handle[T]{index: uint32(i), generation: rec.generation}, rec.payload) {
				return
			}
		}
	}
}
