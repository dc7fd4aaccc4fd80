package core

const minDequeCapacity = 16

// Deque is the ring buffer behind a context's ready queue. Only the owning
// context mutates it, except during a steal hand-off when the victim writes the
// thief's (empty, waiting) deque under both locks.
type Deque struct {
	buf  []*Task
	head int
	size int
}

// NewDeque creates an empty deque.
func NewDeque() *Deque {
	return &Deque{buf: make([]*Task, minDequeCapacity)}
}

func (d *Deque) mask() int {
	return len(d.buf) - 1
}

func (d *Deque) grow() {
	if d.size < len(d.buf) {
		return
	}
	buf := make([]*Task, len(d.buf)*2)
	for i := 0; i < d.size; i++ {
		buf[i] = d.buf[(d.head+i)&d.mask()]
	}
	d.buf = buf
	d.head = 0
}

// PushHead queues t to run before everything already queued.
func (d *Deque) PushHead(t *Task) {
	d.grow()
	d.head = (d.head - 1) & d.mask()
	d.buf[d.head] = t
	d.size++
}

// PushTail queues t to run after everything already queued.
func (d *Deque) PushTail(t *Task) {
	d.grow()
	d.buf[(d.head+d.size)&d.mask()] = t
	d.size++
}

// PopHead removes and returns the next task, or nil when empty.
func (d *Deque) PopHead() *Task {
	if d.size == 0 {
		return nil
	}
	t := d.buf[d.head]
	d.buf[d.head] = nil
	d.head = (d.head + 1) & d.mask()
	d.size--
	return t
}

// PopTail removes and returns the last task, or nil when empty.
func (d *Deque) PopTail() *Task {
	if d.size == 0 {
		return nil
	}
	i := (d.head + d.size - 1) & d.mask()
	t := d.buf[i]
	d.buf[i] = nil
	d.size--
	return t
}

// Len returns the number of queued tasks.
func (d *Deque) Len() int {
	return d.size
}

// IsEmpty reports whether nothing is queued.
func (d *Deque) IsEmpty() bool {
	return d.size == 0
}

// At returns the i-th task from the head without removing it.
func (d *Deque) At(i int) *Task {
	if i < 0 || i >= d.size {
		return nil
	}
	return d.buf[(d.head+i)&d.mask()]
}

// StealHalf moves the last ⌊Len/2⌋ tasks onto the tail of dst, keeping their
// relative order, and calls fn on each moved task before it is appended. It
// returns the number of tasks moved.
func (d *Deque) StealHalf(dst *Deque, fn func(*Task)) int {
	n := d.size / 2
	if n == 0 {
		return 0
	}
	start := d.size - n
	for i := 0; i < n; i++ {
		j := (d.head + start + i) & d.mask()
		t := d.buf[j]
		d.buf[j] = nil
		if fn != nil {
			fn(t)
		}
		dst.PushTail(t)
	}
	d.size = start
	return n
}

// Drain removes every task, calling fn on each in queue order.
func (d *Deque) Drain(fn func(*Task)) {
	for t := d.PopHead(); t != nil; t = d.PopHead() {
		if fn != nil {
			fn(t)
		}
	}
	if len(d.buf) > minDequeCapacity*64 {
		d.buf = make([]*Task, minDequeCapacity)
		d.head = 0
	}
}
