package device

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Permission is the orientation permission state.
type Permission string

const (
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ErrPermissionDenied is returned for readings sent before permission was granted.
var ErrPermissionDenied = errors.New("device: orientation permission not granted")

// Reading is a raw orientation sample. Components the device did not report are nil.
type Reading struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Gyroscope gates orientation readings behind a permission step and forwards accepted
// readings to the hub.
type Gyroscope struct {
	hub *Hub

	mu         sync.Mutex
	permission Permission
}

// NewGyroscope builds a Gyroscope. When requirePermission is false readings are accepted
// immediately, as on platforms that never prompt.
func NewGyroscope(hub *Hub, requirePermission bool) *Gyroscope {
	p := PermissionGranted
	if requirePermission {
		p = PermissionPrompt
	}
	return &Gyroscope{hub: hub, permission: p}
}

// Permission returns the current permission state.
func (g *Gyroscope) Permission() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.permission
}

// RequestPermission records the user's answer to the permission prompt. Any answer other
// than granted or denied leaves the prompt pending.
func (g *Gyroscope) RequestPermission(answer string) Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch Permission(answer) {
	case PermissionGranted, PermissionDenied:
		g.permission = Permission(answer)
	}
	return g.permission
}

// Record publishes a reading. Missing components read as zero.
func (g *Gyroscope) Record(r Reading) (Orientation, error) {
	if g.Permission() != PermissionGranted {
		return Orientation{}, ErrPermissionDenied
	}
	o := Orientation{Alpha: orZero(r.Alpha), Beta: orZero(r.Beta), Gamma: orZero(r.Gamma)}
	g.hub.SetOrientation(o)
	return o, nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Filter is the cosmetic image filter derived from an orientation.
type Filter struct {
	Brightness float64 `json:"brightness"`
	Saturate   float64 `json:"saturate"`
	Contrast   float64 `json:"contrast"`
	Rotate     float64 `json:"rotate_deg"`
}

// ImageFilter maps beta to brightness, gamma to saturation and alpha to contrast and
// rotation.
func ImageFilter(o Orientation) Filter {
	return Filter{
		Brightness: 1 + o.Beta/100,
		Saturate:   1 + o.Gamma/100,
		Contrast:   1 + o.Alpha/200,
		Rotate:     o.Alpha / 10,
	}
}

// CSS renders the filter as an inline style declaration.
func (f Filter) CSS() string {
	return fmt.Sprintf("filter: brightness(%s) saturate(%s) contrast(%s); transform: rotate(%sdeg); transition: filter 0.3s ease, transform 0.3s ease;",
		num(f.Brightness), num(f.Saturate), num(f.Contrast), num(f.Rotate))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
