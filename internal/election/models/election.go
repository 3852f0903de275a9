// Package models defines elections, candidates and the single-use vote
// ledger entries.
package models

import (
	"time"

	id "civitas/pkg/domain"
	dErrors "civitas/pkg/domain-errors"
)

// Election has a fixed voting window and an activity flag; both gate vote
// acceptance.
type Election struct {
	ID          id.ElectionID `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Open reports whether the election accepts votes at the given instant.
func (e *Election) Open(now time.Time) bool {
	return e.IsActive && !now.Before(e.StartDate) && !now.After(e.EndDate)
}

func NewElection(electionID id.ElectionID, title, description string, start, end, now time.Time) (*Election, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "election title cannot be empty")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "election end date must be after start date")
	}
	return &Election{
		ID:          electionID,
		Title:       title,
		Description: description,
		StartDate:   start,
		EndDate:     end,
		IsActive:    true,
		CreatedAt:   now,
	}, nil
}

// Candidate is one ballot line. Position records insertion order and is the
// stable tie-break for result ordering; VoteCount is derived, incremented
// exactly once per accepted vote and never decremented.
type Candidate struct {
	ID         id.CandidateID `json:"id"`
	ElectionID id.ElectionID  `json:"election_id"`
	Name       string         `json:"name"`
	Party      string         `json:"party,omitempty"`
	Position   int            `json:"position"`
	VoteCount  int            `json:"vote_count"`
}

// Vote is one ledger entry. The (ElectionID, CitizenID) key is unique
// forever; a second vote attempt is rejected, never merged.
type Vote struct {
	ID          id.VoteID      `json:"id"`
	ElectionID  id.ElectionID  `json:"election_id"`
	CandidateID id.CandidateID `json:"candidate_id"`
	CitizenID   id.CitizenID   `json:"citizen_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CandidateResult pairs a candidate with its share of the total vote.
type CandidateResult struct {
	Candidate  *Candidate `json:"candidate"`
	Percentage float64    `json:"percentage"`
}

// Results is the computed outcome view, candidates ordered by descending
// vote count with ties kept in ballot order.
type Results struct {
	ElectionID id.ElectionID      `json:"election_id"`
	TotalVotes int                `json:"total_votes"`
	Candidates []*CandidateResult `json:"candidates"`
}

// ListFilter selects elections relative to the current time.
type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterActive   ListFilter = "active"
	FilterUpcoming ListFilter = "upcoming"
	FilterFinished ListFilter = "finished"
)

func ParseListFilter(raw string) (ListFilter, error) {
	if raw == "" {
		return FilterAll, nil
	}
	switch ListFilter(raw) {
	case FilterAll, FilterActive, FilterUpcoming, FilterFinished:
		return ListFilter(raw), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown election filter")
}
