// Package wallet is the balance collaborator the round engine settles
// against. The engine itself never touches balances; the API and scheduler
// debit stakes, credit payouts and refund voided rounds through this
// interface.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Service debits and credits participant balances in integer cents.
type Service interface {
	Debit(ctx context.Context, participantID string, amountCents int64) error
	Credit(ctx context.Context, participantID string, amountCents int64) error
	Balance(ctx context.Context, participantID string) (int64, error)
}

// Memory is an in-process ledger. It backs tests and single-node deploys;
// a payments integration replaces it behind the same interface.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64

	// Participants unknown to the ledger start at this balance on first
	// touch, so demo clients don't need a funding flow.
	InitialBalance int64
}

func NewMemory(initialBalance int64) *Memory {
	return &Memory{
		balances:       make(map[string]int64),
		InitialBalance: initialBalance,
	}
}

func (m *Memory) get(participantID string) int64 {
	if _, ok := m.balances[participantID]; !ok {
		m.balances[participantID] = m.InitialBalance
	}
	return m.balances[participantID]
}

func (m *Memory) Debit(_ context.Context, participantID string, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("negative debit: %d", amountCents)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.get(participantID)
	if bal < amountCents {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, participantID, bal, amountCents)
	}
	m.balances[participantID] = bal - amountCents
	return nil
}

func (m *Memory) Credit(_ context.Context, participantID string, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("negative credit: %d", amountCents)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[participantID] = m.get(participantID) + amountCents
	return nil
}

func (m *Memory) Balance(_ context.Context, participantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(participantID), nil
}
