package service

import (
	"math/rand"
	"sync"
)

var DefaultTips = []string{
	"Tailor your resume for each job application.",
	"Highlight your projects and internships.",
	"Keep learning new technologies!",
	"Networking is key—connect with professionals.",
	"Showcase your GitHub and portfolio.",
	"Stay positive and persistent—your dream job is waiting!",
	"Practice coding interviews regularly.",
	"Be confident in your skills and achievements.",
	"Soft skills matter—communication is important!",
	"Apply to jobs even if you don't meet 100% of the requirements.",
}

// TipRotator hands out tips in random order without repeating one before every tip has been shown.
type TipRotator struct {
	mu    sync.Mutex
	tips  []string
	shown map[int]bool
	rnd   *rand.Rand
}

func NewTipRotator(tips []string, rnd *rand.Rand) *TipRotator {
	if len(tips) == 0 {
		tips = DefaultTips
	}
	return &TipRotator{tips: tips, shown: make(map[int]bool), rnd: rnd}
}

func (r *TipRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.shown) >= len(r.tips) {
		r.shown = make(map[int]bool)
	}
	remaining := make([]int, 0, len(r.tips)-len(r.shown))
	for i := range r.tips {
		if !r.shown[i] {
			remaining = append(remaining, i)
		}
	}
	idx := remaining[r.rnd.Intn(len(remaining))]
	r.shown[idx] = true
	return r.tips[idx]
}
