package store

import (
	"context"
	"strings"
	"sync"

	"civitas/internal/citizen/models"
	id "civitas/pkg/domain"
	"civitas/pkg/platform/sentinel"
)

// Memory is an in-memory citizen store for tests and local development.
// Uniqueness of username and email is case-insensitive, matching the
// Postgres schema.
type Memory struct {
	mu       sync.RWMutex
	citizens map[id.CitizenID]*models.Citizen
	byName   map[string]id.CitizenID
	byEmail  map[string]id.CitizenID
}

func NewMemory() *Memory {
	return &Memory{
		citizens: make(map[id.CitizenID]*models.Citizen),
		byName:   make(map[string]id.CitizenID),
		byEmail:  make(map[string]id.CitizenID),
	}
}

func (s *Memory) Create(_ context.Context, citizen *models.Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameKey := strings.ToLower(citizen.Username)
	emailKey := strings.ToLower(citizen.Email)
	if _, exists := s.byName[nameKey]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byEmail[emailKey]; exists {
		return sentinel.ErrConflict
	}

	clone := *citizen
	s.citizens[citizen.ID] = &clone
	s.byName[nameKey] = citizen.ID
	s.byEmail[emailKey] = citizen.ID
	return nil
}

func (s *Memory) FindByID(_ context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	citizen, ok := s.citizens[citizenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *citizen
	return &clone, nil
}

func (s *Memory) FindByUsername(_ context.Context, username string) (*models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	citizenID, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.citizens[citizenID]
	return &clone, nil
}

func (s *Memory) IncrementReputation(_ context.Context, citizenID id.CitizenID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	citizen, ok := s.citizens[citizenID]
	if !ok {
		return sentinel.ErrNotFound
	}
	citizen.ReputationScore += delta
	if citizen.ReputationScore < 0 {
		citizen.ReputationScore = 0
	}
	return nil
}

func (s *Memory) SetVerificationLevel(_ context.Context, citizenID id.CitizenID, level id.VerificationLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	citizen, ok := s.citizens[citizenID]
	if !ok {
		return sentinel.ErrNotFound
	}
	citizen.VerificationLevel = level
	return nil
}
