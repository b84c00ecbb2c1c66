package service

import (
	"math/rand"
	"sync"
)

const (
	progressCeiling = 98.0
	progressDone    = 100.0
)

// Progress is a cosmetic completion estimate. It only moves forward
// and stays below 100 until Complete is called.
type Progress struct {
	mu    sync.Mutex
	value float64
	rnd   *rand.Rand
}

func NewProgress(rnd *rand.Rand) *Progress {
	return &Progress{rnd: rnd}
}

// Step advances by a random amount in [1, 3), capped at 98.
func (p *Progress) Step() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value >= progressCeiling {
		return p.value
	}
	p.value += 1 + p.rnd.Float64()*2
	if p.value > progressCeiling {
		p.value = progressCeiling
	}
	return p.value
}

func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = progressDone
}

func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = 0
}

func (p *Progress) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}
