package sim

import "sync"

// Interrupts simulates the host's global interrupt flag and vector table.
// Interrupts raised while the flag is cleared stay pending until Enable.
type Interrupts struct {
	mx       sync.Mutex
	enabled  bool
	disables int
	enables  int
	handlers map[int]func()
	pending  map[int]bool
}

func NewInterrupts() *Interrupts {
	return &Interrupts{
		enabled:  true,
		handlers: make(map[int]func()),
		pending:  make(map[int]bool),
	}
}

func (i *Interrupts) Disable() {
	i.mx.Lock()
	defer i.mx.Unlock()
	i.enabled = false
	i.disables++
}

func (i *Interrupts) Enable() {
	i.mx.Lock()
	i.enabled = true
	i.enables++
	var run []func()
	for index := range i.pending {
		if h, ok := i.handlers[index]; ok {
			run = append(run, h)
		}
		delete(i.pending, index)
	}
	i.mx.Unlock()
	for _, h := range run {
		h()
	}
}

func (i *Interrupts) Attach(index int, handler func()) {
	i.mx.Lock()
	defer i.mx.Unlock()
	i.handlers[index] = handler
}

func (i *Interrupts) Detach(index int) {
	i.mx.Lock()
	defer i.mx.Unlock()
	delete(i.handlers, index)
	delete(i.pending, index)
}

// Raise fires interrupt index. The handler runs on the caller's goroutine,
// or later from Enable if interrupts are currently disabled. It reports
// whether a handler is attached.
func (i *Interrupts) Raise(index int) bool {
	i.mx.Lock()
	h, ok := i.handlers[index]
	if !ok {
		i.mx.Unlock()
		return false
	}
	if !i.enabled {
		i.pending[index] = true
		i.mx.Unlock()
		return true
	}
	i.mx.Unlock()
	h()
	return true
}

func (i *Interrupts) Enabled() bool {
	i.mx.Lock()
	defer i.mx.Unlock()
	return i.enabled
}

// Counts returns how many times the flag was cleared and set.
func (i *Interrupts) Counts() (disables, enables int) {
	i.mx.Lock()
	defer i.mx.Unlock()
	return i.disables, i.enables
}

func (i *Interrupts) Attached(index int) bool {
	i.mx.Lock()
	defer i.mx.Unlock()
	_, ok := i.handlers[index]
	return ok
}
