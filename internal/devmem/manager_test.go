package devmem

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewManagerDefaults(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   uint64
	}{
		{"zero uses default", Config{}, DefaultMaxMemoryMB * mb},
		{"negative uses default", Config{MaxMemoryMB: -4}, DefaultMaxMemoryMB * mb},
		{"explicit", Config{MaxMemoryMB: 8}, 8 * mb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.config)
			if got := m.Stats().TotalBytes; got != tt.want {
				t.Errorf("TotalBytes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReserveAndRelease(t *testing.T) {
	m := NewManager(Config{MaxMemoryMB: 1})

	a, err := m.Reserve(600 * 1024)
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if a.Size() != 600*1024 {
		t.Errorf("Size() = %d", a.Size())
	}

	_, err = m.Reserve(600 * 1024)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Reserve() over budget error = %v, want ErrBudgetExceeded", err)
	}

	s := m.Stats()
	if s.UsedBytes != 600*1024 || s.Reservations != 1 || s.Rejected != 1 {
		t.Errorf("Stats() = %+v", s)
	}

	a.Release()
	a.Release()
	s = m.Stats()
	if s.UsedBytes != 0 || s.Reservations != 0 {
		t.Errorf("after release Stats() = %+v, want empty", s)
	}
	if s.PeakBytes != 600*1024 {
		t.Errorf("PeakBytes = %d, want %d", s.PeakBytes, 600*1024)
	}

	if _, err := m.Reserve(mb); err != nil {
		t.Errorf("Reserve(full budget) error = %v", err)
	}
}

func TestSetBudget(t *testing.T) {
	m := NewManager(Config{MaxMemoryMB: 4})
	r, _ := m.Reserve(3 * mb)

	if err := m.SetBudget(2); !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("SetBudget(below usage) error = %v, want ErrBudgetExceeded", err)
	}
	if got := m.Stats().TotalBytes; got != 4*mb {
		t.Errorf("budget changed to %d on failure", got)
	}

	r.Release()
	if err := m.SetBudget(0); err != nil {
		t.Fatalf("SetBudget(0) error = %v", err)
	}
	if got := m.Stats().TotalBytes; got != MinMemoryMB*mb {
		t.Errorf("TotalBytes = %d, want clamped to minimum", got)
	}
}

func TestClose(t *testing.T) {
	m := NewManager(Config{MaxMemoryMB: 1})
	r, _ := m.Reserve(100)
	m.Close()
	m.Close()

	if _, err := m.Reserve(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Reserve() after Close error = %v, want ErrClosed", err)
	}
	if err := m.SetBudget(2); !errors.Is(err, ErrClosed) {
		t.Errorf("SetBudget() after Close error = %v, want ErrClosed", err)
	}
	r.Release()
	if s := m.Stats(); s.UsedBytes != 0 || s.Reservations != 0 {
		t.Errorf("Stats() after Close = %+v", s)
	}
}

func TestStatsString(t *testing.T) {
	m := NewManager(Config{MaxMemoryMB: 1})
	_, _ = m.Reserve(mb / 2)
	s := m.Stats().String()
	if !strings.Contains(s, "50.0% used") || !strings.Contains(s, "1 buffers") {
		t.Errorf("String() = %q", s)
	}
}

func TestConcurrentReserve(t *testing.T) {
	m := NewManager(Config{MaxMemoryMB: 1})
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				r, err := m.Reserve(1024)
				if err != nil {
					t.Errorf("Reserve() error = %v", err)
					return
				}
				r.Release()
			}
		}()
	}
	wg.Wait()
	if s := m.Stats(); s.UsedBytes != 0 || s.PeakBytes > 32*1024 {
		t.Errorf("Stats() = %+v", s)
	}
}
