package onboarding

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/miboda/internal/guard"
	"github.com/iliyamo/miboda/internal/model"
)

// Step of the wizard, 1 through 4.
type Step int

const (
	StepDate Step = iota + 1
	StepBudget
	StepGuests
	StepCity
)

// DefaultPartnerName is used as partner1 when the identity carries no name.
const DefaultPartnerName = "Reina"

var ErrIncomplete = errors.New("onboarding: current step is incomplete")

// ProfileSaver upserts the caller's wedding profile.
type ProfileSaver interface {
	SaveWeddingProfile(ctx context.Context, in model.WeddingProfileInput) (*model.WeddingProfile, error)
}

// Answers collected so far. Zero values mean unanswered.
type Answers struct {
	Date   time.Time
	Budget float64
	Guests int
	City   string
}

// Wizard is the linear four-step setup: wedding date, total budget, guest
// count and city. It is not safe for concurrent use.
type Wizard struct {
	step    Step
	answers Answers
}

func NewWizard() *Wizard { return &Wizard{step: StepDate} }

func (w *Wizard) Step() Step          { return w.step }
func (w *Wizard) Answers() Answers    { return w.answers }
func (w *Wizard) SetDate(t time.Time) { w.answers.Date = t }
func (w *Wizard) SetBudget(v float64) { w.answers.Budget = v }
func (w *Wizard) SetGuests(n int)     { w.answers.Guests = n }
func (w *Wizard) SetCity(c string)    { w.answers.City = NormalizeCity(c) }

// CanProceed reports whether the current step has a usable answer.
func (w *Wizard) CanProceed() bool { return w.complete(w.step) }

func (w *Wizard) complete(s Step) bool {
	switch s {
	case StepDate:
		return !w.answers.Date.IsZero()
	case StepBudget:
		return w.answers.Budget > 0
	case StepGuests:
		return w.answers.Guests > 0
	case StepCity:
		return w.answers.City != ""
	}
	return false
}

// Next advances one step. It stays on the last step.
func (w *Wizard) Next() error {
	if !w.CanProceed() {
		return ErrIncomplete
	}
	if w.step < StepCity {
		w.step++
	}
	return nil
}

// Back returns one step. It stays on the first step.
func (w *Wizard) Back() {
	if w.step > StepDate {
		w.step--
	}
}

// Input builds the profile write from the answers. partner1 is the first
// word of the identity's name.
func (w *Wizard) Input(identity *model.Identity) (model.WeddingProfileInput, error) {
	for s := StepDate; s <= StepCity; s++ {
		if !w.complete(s) {
			return model.WeddingProfileInput{}, ErrIncomplete
		}
	}
	date := w.answers.Date.Format(model.DateLayout)
	budget := w.answers.Budget
	guests := w.answers.Guests
	city := w.answers.City
	partner := identity.FirstName(DefaultPartnerName)
	return model.WeddingProfileInput{
		WeddingDate:  &date,
		TotalBudget:  &budget,
		GuestCount:   &guests,
		City:         &city,
		Partner1Name: &partner,
	}, nil
}

// Complete saves the profile from the last step and returns the redirect to
// home. On failure the wizard stays where it is.
func (w *Wizard) Complete(ctx context.Context, saver ProfileSaver, identity *model.Identity) (guard.Decision, error) {
	if w.step != StepCity {
		return guard.Decision{}, ErrIncomplete
	}
	in, err := w.Input(identity)
	if err != nil {
		return guard.Decision{}, err
	}
	if _, err := saver.SaveWeddingProfile(ctx, in); err != nil {
		return guard.Decision{}, err
	}
	return guard.Decision{Kind: guard.Redirect, To: guard.HomeRoute}, nil
}
