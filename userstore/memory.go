package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rotor-auth/rotor"
)

// Memory is an in-process UserProvider. IDs are random UUIDs; emails are
// unique case-sensitively, so normalize before calling (the engine does).
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]rotor.UserRecord
	byEmail map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]rotor.UserRecord),
		byEmail: make(map[string]string),
	}
}

// GetUserByEmail implements rotor.UserProvider.
func (m *Memory) GetUserByEmail(_ context.Context, email string) (rotor.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return rotor.UserRecord{}, rotor.ErrUserNotFound
	}
	return m.byID[id], nil
}

// GetUserByID implements rotor.UserProvider.
func (m *Memory) GetUserByID(_ context.Context, userID string) (rotor.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byID[userID]
	if !ok {
		return rotor.UserRecord{}, rotor.ErrUserNotFound
	}
	return user, nil
}

// CreateUser implements rotor.UserProvider.
func (m *Memory) CreateUser(_ context.Context, input rotor.CreateUserInput) (rotor.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[input.Email]; ok {
		return rotor.UserRecord{}, rotor.ErrEmailTaken
	}

	user := rotor.UserRecord{
		UserID:       uuid.NewString(),
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: input.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.byID[user.UserID] = user
	m.byEmail[user.Email] = user.UserID
	return user, nil
}

// Delete removes an account. Dev-mode convenience; not part of
// rotor.UserProvider.
func (m *Memory) Delete(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.byID[userID]; ok {
		delete(m.byEmail, user.Email)
		delete(m.byID, userID)
	}
}
