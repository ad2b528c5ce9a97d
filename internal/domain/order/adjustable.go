package order

import "slices"

// Adjustable is anything that owns a set of adjustments. Both *Order and
// *Item implement it through the same embedded bookkeeping.
type Adjustable interface {
	// Adjustments returns the owner's adjustments, filtered by type when
	// typ is non-empty. The returned slice is a copy.
	Adjustments(typ string) []*Adjustment
	AddAdjustment(a *Adjustment)
	RemoveAdjustment(a *Adjustment)
	RemoveAdjustments(typ string)
	HasAdjustment(a *Adjustment) bool
	// AdjustmentsTotal returns the cached total when typ is empty and
	// sums the matching non-neutral adjustments otherwise.
	AdjustmentsTotal(typ string) int64
	RecalculateAdjustmentsTotal()
}

// adjustments is the adjustment bookkeeping shared by Order and Item.
//
// total always equals the sum of non-neutral amounts in list. Every
// change to total is followed by a call to onChange, which recomputes the
// owner's own total.
type adjustments struct {
	owner    Adjustable
	list     []*Adjustment
	total    int64
	onChange func()
}

func (s *adjustments) bind(owner Adjustable, onChange func()) {
	s.owner = owner
	s.onChange = onChange
}

func (s *adjustments) Adjustments(typ string) []*Adjustment {
	if typ == "" {
		return slices.Clone(s.list)
	}
	out := make([]*Adjustment, 0, len(s.list))
	for _, a := range s.list {
		if a.typ == typ {
			out = append(out, a)
		}
	}
	return out
}

func (s *adjustments) HasAdjustment(a *Adjustment) bool {
	return s.indexOf(a) >= 0
}

func (s *adjustments) AddAdjustment(a *Adjustment) {
	if a == nil || s.HasAdjustment(a) {
		return
	}
	if prev := a.adjustable; prev != nil {
		// Moving between owners. A locked adjustment cannot leave its
		// current owner, so it cannot join this one either.
		prev.RemoveAdjustment(a)
		if a.adjustable != nil {
			return
		}
		// The old owner's item total changed behind its order's back.
		if it, ok := prev.(*Item); ok && it.order != nil {
			it.order.RecalculateItemsTotal()
		}
	}

	s.list = append(s.list, a)
	a.adjustable = s.owner
	if !a.neutral {
		s.total += a.amount
		s.onChange()
	}
}

func (s *adjustments) RemoveAdjustment(a *Adjustment) {
	if a == nil || a.locked {
		return
	}
	i := s.indexOf(a)
	if i < 0 {
		return
	}

	s.list = slices.Delete(s.list, i, i+1)
	a.adjustable = nil
	if !a.neutral {
		s.total -= a.amount
		s.onChange()
	}
}

func (s *adjustments) RemoveAdjustments(typ string) {
	for _, a := range s.Adjustments(typ) {
		if a.locked {
			continue
		}
		s.RemoveAdjustment(a)
	}
}

func (s *adjustments) AdjustmentsTotal(typ string) int64 {
	if typ == "" {
		return s.total
	}
	return sumNonNeutral(s.Adjustments(typ))
}

func (s *adjustments) RecalculateAdjustmentsTotal() {
	s.total = sumNonNeutral(s.list)
	s.onChange()
}

func (s *adjustments) indexOf(a *Adjustment) int {
	for i, cur := range s.list {
		if cur == a {
			return i
		}
	}
	return -1
}

func sumNonNeutral(list []*Adjustment) int64 {
	var total int64
	for _, a := range list {
		if !a.neutral {
			total += a.amount
		}
	}
	return total
}
