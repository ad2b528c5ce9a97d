package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator prices a coupon code against cart items. Redeem records one use
// and is called once per order at checkout, never during validation.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
	Redeem(ctx context.Context, code string) error
}

// RepoValidator is a Validator over a rule Repository.
type RepoValidator struct {
	repo Repository
	exp  int32
	now  func() time.Time
}

var _ Validator = (*RepoValidator)(nil)

// NewRepoValidator returns a validator pricing discounts with exp minor unit
// digits.
func NewRepoValidator(repo Repository, exp int32) *RepoValidator {
	return &RepoValidator{repo: repo, exp: exp, now: time.Now}
}

// Validate implements Validator.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	switch {
	case errors.Is(err, ErrInvalidCoupon):
		return nil, ErrInvalidCoupon
	case err != nil:
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	if err := rule.Usable(v.now()); err != nil {
		return nil, err
	}

	d, err := Apply(rule, items, v.exp)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Redeem implements Validator.
func (v *RepoValidator) Redeem(ctx context.Context, code string) error {
	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrapf(err, "redeem coupon %q", code)
	}
	return nil
}
