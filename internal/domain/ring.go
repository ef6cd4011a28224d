package domain

// Ring 固定容量的环形缓冲区，写满后覆盖最旧的元素
// 底层数组一次分配，Push 不会重新分配内存
type Ring[T any] struct {
	data []T
	head int // 最旧元素的位置
	size int
}

// NewRing 创建容量为 capacity 的环形缓冲区
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push 追加一个元素；缓冲区已满时淘汰最旧的元素
func (r *Ring[T]) Push(v T) {
	c := len(r.data)
	if r.size < c {
		r.data[(r.head+r.size)%c] = v
		r.size++
		return
	}
	r.data[r.head] = v
	r.head = (r.head + 1) % c
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.data) }

// At 按插入顺序访问，0 为最旧的元素
func (r *Ring[T]) At(i int) T {
	return r.data[(r.head+i)%len(r.data)]
}

// Last 返回最新的元素
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.At(r.size - 1), true
}

// SetLast 原地替换最新的元素，缓冲区为空时等同于 Push
func (r *Ring[T]) SetLast(v T) {
	if r.size == 0 {
		r.Push(v)
		return
	}
	r.data[(r.head+r.size-1)%len(r.data)] = v
}

// Slice 按插入顺序复制出所有元素
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(i)
	}
	return out
}
