package device

import (
	"context"
	"sync"
)

// Torch is the device capability behind the flashlight demo.
type Torch interface {
	IsOn(ctx context.Context) (bool, error)
	SwitchOn(ctx context.Context) error
	SwitchOff(ctx context.Context) error
}

// VirtualTorch is an in-memory torch for hosts without one.
type VirtualTorch struct {
	mu sync.Mutex
	on bool
}

// IsOn reports the torch state.
func (t *VirtualTorch) IsOn(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on, ctx.Err()
}

// SwitchOn turns the torch on.
func (t *VirtualTorch) SwitchOn(ctx context.Context) error {
	return t.set(ctx, true)
}

// SwitchOff turns the torch off.
func (t *VirtualTorch) SwitchOff(ctx context.Context) error {
	return t.set(ctx, false)
}

func (t *VirtualTorch) set(ctx context.Context, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	t.on = on
	t.mu.Unlock()
	return nil
}

// Flashlight toggles a torch and remembers the last commanded state. The state is what
// was asked for, not a live reading of the torch.
type Flashlight struct {
	torch Torch

	mu sync.Mutex
	on bool
}

// NewFlashlight builds a Flashlight.
func NewFlashlight(torch Torch) *Flashlight {
	return &Flashlight{torch: torch}
}

// On returns the last commanded state.
func (f *Flashlight) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Toggle queries the torch and commands the opposite state.
func (f *Flashlight) Toggle(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	isOn, err := f.torch.IsOn(ctx)
	if err != nil {
		return f.on, err
	}
	if isOn {
		err = f.torch.SwitchOff(ctx)
	} else {
		err = f.torch.SwitchOn(ctx)
	}
	if err != nil {
		return f.on, err
	}
	f.on = !isOn
	return f.on, nil
}
