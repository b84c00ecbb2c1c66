package domain_test

import (
	"errors"
	"testing"

	"applyai/domain"
)

func TestCanTransition_Forward(t *testing.T) {
	cases := []struct {
		from, to domain.ApplicationStatus
	}{
		{domain.StatusApplied, domain.StatusReviewing},
		{domain.StatusReviewing, domain.StatusInterview},
		{domain.StatusInterview, domain.StatusOffer},
		{domain.StatusOffer, domain.StatusHired},
	}
	for _, tc := range cases {
		if !domain.CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectFromAnyOpenStatus(t *testing.T) {
	for _, s := range []domain.ApplicationStatus{
		domain.StatusApplied,
		domain.StatusReviewing,
		domain.StatusInterview,
		domain.StatusOffer,
	} {
		if !domain.CanTransition(s, domain.StatusRejected) {
			t.Errorf("CanTransition(%s, rejected) = false, want true", s)
		}
	}
}

func TestCanTransition_TerminalAndSkips(t *testing.T) {
	cases := []struct {
		from, to domain.ApplicationStatus
	}{
		{domain.StatusHired, domain.StatusRejected},
		{domain.StatusRejected, domain.StatusApplied},
		{domain.StatusApplied, domain.StatusOffer},
		{domain.StatusOffer, domain.StatusReviewing},
		{domain.StatusApplied, domain.StatusApplied},
	}
	for _, tc := range cases {
		if domain.CanTransition(tc.from, tc.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tc.from, tc.to)
		}
	}
	if !domain.StatusHired.IsTerminal() || !domain.StatusRejected.IsTerminal() {
		t.Error("hired and rejected must be terminal")
	}
}

func TestValidStatus(t *testing.T) {
	if domain.ValidStatus("archived") {
		t.Error("ValidStatus(archived) should be false")
	}
	if !domain.ValidStatus(domain.StatusInterview) {
		t.Error("ValidStatus(interview) should be true")
	}
}

func TestAppErrorIs(t *testing.T) {
	err := domain.ErrQuotaExhausted.WithDetails(map[string]string{"prompt": "upgrade"})
	if !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Error("copy with details should still match ErrQuotaExhausted")
	}
	if errors.Is(err, domain.ErrJobNotFound) {
		t.Error("quota error must not match ErrJobNotFound")
	}
	wrapped := domain.AsAppError(errors.New("boom"))
	if wrapped.HTTPCode != 500 {
		t.Errorf("AsAppError(unknown).HTTPCode = %d, want 500", wrapped.HTTPCode)
	}
}
