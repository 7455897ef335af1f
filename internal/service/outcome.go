package service

import (
	"context"
	"errors"

	"nftmarket/internal/models"
	"nftmarket/internal/pricing"
)

type OutcomeKind string

const (
	OutcomePriced      OutcomeKind = "priced"
	OutcomeNotListed   OutcomeKind = "not_listed"
	OutcomeMalformed   OutcomeKind = "malformed"
	OutcomeUnavailable OutcomeKind = "unavailable"
	OutcomeAborted     OutcomeKind = "aborted"
)

// PricingOutcome is the result of pricing one listing on one marketplace.
// Only OutcomeAborted stops the page walk; every other failure skips the record.
type PricingOutcome struct {
	Kind   OutcomeKind
	Market models.MarketInfo
	Err    error
}

func (o PricingOutcome) Skipped() bool {
	return o.Kind != OutcomePriced && o.Kind != OutcomeAborted
}

func classifyPricingError(ctx context.Context, err error) OutcomeKind {
	switch {
	case err == nil:
		return OutcomePriced
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return OutcomeAborted
	case errors.Is(err, pricing.ErrNotListed):
		return OutcomeNotListed
	case errors.Is(err, pricing.ErrUnexpectedShape):
		return OutcomeMalformed
	default:
		return OutcomeUnavailable
	}
}
