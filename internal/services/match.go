package services

import "meetuphere/internal/domain"

// Decide picks the best candidate for a check-in and decides whether it is
// worth a notification. The directory already orders candidates nearest
// first, so the first one is taken as-is without re-sorting.
func Decide(candidates []domain.CandidateEvent, threshold float64) domain.MatchDecision {
	if len(candidates) == 0 {
		return domain.MatchDecision{}
	}
	event := candidates[0]
	return domain.MatchDecision{
		Matched: true,
		Event:   &event,
		Notify:  event.Distance <= threshold && event.Status.Notifiable(),
	}
}
