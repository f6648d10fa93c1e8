// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package devmem accounts device memory against a budget.
//
// Device buffers cannot be evicted behind a vector's back, so the manager
// never frees anything itself: a reservation either fits in the budget or
// fails with ErrBudgetExceeded.
package devmem

import (
	"errors"
	"fmt"
	"sync"
)

// Memory management errors.
var (
	// ErrBudgetExceeded is returned when a reservation would exceed the budget.
	ErrBudgetExceeded = errors.New("devmem: memory budget exceeded")

	// ErrClosed is returned when reserving from a closed manager.
	ErrClosed = errors.New("devmem: manager closed")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default device memory budget (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the smallest budget SetBudget accepts.
	MinMemoryMB = 1
)

const mb = 1024 * 1024

// Stats contains device memory usage statistics.
type Stats struct {
	// TotalBytes is the memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the memory currently reserved.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Reservations is the number of live reservations.
	Reservations int

	// Rejected counts reservations refused for lack of budget.
	Rejected uint64

	// Utilization is the fraction of the budget in use (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s Stats) String() string {
	return fmt.Sprintf("DeviceMemory[%.1f%% used, %d/%d bytes, %d buffers, peak %d, %d rejected]",
		s.Utilization*100,
		s.UsedBytes,
		s.TotalBytes,
		s.Reservations,
		s.PeakBytes,
		s.Rejected)
}

// Config holds configuration for creating a Manager.
type Config struct {
	// MaxMemoryMB is the budget in megabytes.
	// Defaults to DefaultMaxMemoryMB if <= 0.
	MaxMemoryMB int
}

// Manager tracks device memory reservations and enforces a budget.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	budgetBytes uint64
	usedBytes   uint64
	peakBytes   uint64
	live        int
	rejected    uint64

	closed bool
}

// NewManager creates a manager with the configured budget.
func NewManager(config Config) *Manager {
	maxMB := config.MaxMemoryMB
	if maxMB <= 0 {
		maxMB = DefaultMaxMemoryMB
	}
	//nolint:gosec // G115: maxMB is positive
	return &Manager{budgetBytes: uint64(maxMB) * mb}
}

// Reservation is budget held by one device buffer.
type Reservation struct {
	m        *Manager
	size     uint64
	released bool
}

// Size returns the reserved byte count.
func (r *Reservation) Size() uint64 {
	return r.size
}

// Release returns the bytes to the budget. Further calls do nothing.
func (r *Reservation) Release() {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.released {
		return
	}
	r.released = true
	if r.m.closed {
		return
	}
	r.m.usedBytes -= r.size
	r.m.live--
}

// Reserve claims size bytes of the budget.
func (m *Manager) Reserve(size uint64) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if size > m.budgetBytes-m.usedBytes {
		m.rejected++
		return nil, fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrBudgetExceeded, size, m.budgetBytes-m.usedBytes)
	}

	m.usedBytes += size
	m.live++
	if m.usedBytes > m.peakBytes {
		m.peakBytes = m.usedBytes
	}
	return &Reservation{m: m, size: size}, nil
}

// Stats returns current memory usage statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}

	return Stats{
		TotalBytes:     m.budgetBytes,
		UsedBytes:      m.usedBytes,
		PeakBytes:      m.peakBytes,
		AvailableBytes: m.budgetBytes - m.usedBytes,
		Reservations:   m.live,
		Rejected:       m.rejected,
		Utilization:    utilization,
	}
}

// SetBudget changes the budget. It fails with ErrBudgetExceeded, leaving the
// budget unchanged, when current usage does not fit the new one.
func (m *Manager) SetBudget(megabytes int) error {
	if megabytes < MinMemoryMB {
		megabytes = MinMemoryMB
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
	budget := uint64(megabytes) * mb
	if budget < m.usedBytes {
		return fmt.Errorf("%w: %d bytes in use, new budget %d bytes",
			ErrBudgetExceeded, m.usedBytes, budget)
	}
	m.budgetBytes = budget
	return nil
}

// Close stops accepting reservations. Outstanding reservations may still be
// released; they no longer affect the counters.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.usedBytes = 0
	m.live = 0
	m.closed = true
}
