package hardware

import (
	"sync"
)

// SimPWM records what would have been written to a PWM channel. Used by the simulator mode and
// tests.
type SimPWM struct {
	lock   sync.Mutex
	freq   int
	duty   float64
	low    bool
	writes int
}

func NewSimPWM() *SimPWM {
	return &SimPWM{low: true}
}

func (p *SimPWM) SetDuty(duty float64) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.duty = duty
	p.low = false
	p.writes++
	return nil
}

func (p *SimPWM) SetLow() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.duty = 0
	p.low = true
	p.writes++
	return nil
}

// Freq is the frequency the channel was bound at, zero when created directly.
func (p *SimPWM) Freq() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.freq
}

func (p *SimPWM) Duty() float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.duty
}

// IsLow reports whether the output was forced low rather than set to a duty.
func (p *SimPWM) IsLow() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.low
}

func (p *SimPWM) Writes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writes
}

type SimPin struct {
	lock   sync.Mutex
	high   bool
	writes int
}

func NewSimPin() *SimPin {
	return new(SimPin)
}

func (p *SimPin) Set(high bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.high = high
	p.writes++
	return nil
}

func (p *SimPin) High() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.high
}

func (p *SimPin) Writes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writes
}

// SimBridge hands out simulated outputs and keeps them for inspection.
type SimBridge struct {
	lock sync.Mutex
	PWMs map[int]*SimPWM
	Pins map[int]*SimPin
}

func NewSimBridge() *SimBridge {
	return &SimBridge{
		PWMs: make(map[int]*SimPWM),
		Pins: make(map[int]*SimPin),
	}
}

func (b *SimBridge) PWM(pin, freq int) PWMOutput {
	b.lock.Lock()
	defer b.lock.Unlock()
	p := NewSimPWM()
	p.freq = freq
	b.PWMs[pin] = p
	return p
}

func (b *SimBridge) Pin(pin int) DigitalOutput {
	b.lock.Lock()
	defer b.lock.Unlock()
	p := NewSimPin()
	b.Pins[pin] = p
	return p
}
