package device

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubPublishesOnChangeOnly(t *testing.T) {
	h := NewHub()
	var got []Event
	unsubscribe, err := h.Subscribe(TopicConnectivity, func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	h.SetOnline(true)
	h.SetOnline(false)
	h.SetOnline(false)
	h.SetOnline(true)
	require.Len(t, got, 2)
	assert.False(t, got[0].Online)
	assert.True(t, got[1].Online)

	unsubscribe()
	unsubscribe()
	h.SetOnline(false)
	assert.Len(t, got, 2)
	assert.Equal(t, 0, h.Subscribers(TopicConnectivity))
}

func TestHubUnsubscribeLeavesOthers(t *testing.T) {
	h := NewHub()
	var a, b int
	unsubA, err := h.Subscribe(TopicOrientation, func(Event) { a++ })
	require.NoError(t, err)
	_, err = h.Subscribe(TopicOrientation, func(Event) { b++ })
	require.NoError(t, err)

	h.SetOrientation(Orientation{Alpha: 1})
	unsubA()
	h.SetOrientation(Orientation{Alpha: 2})
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, Orientation{Alpha: 2}, h.Orientation())

	_, err = h.Subscribe("device:smell", func(Event) {})
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestProbeDebouncesOffline(t *testing.T) {
	var failing atomic.Bool
	target := PingFunc(func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	})
	h := NewHub()
	p := NewConnectivityProbe(target, h, ProbeConfig{FailureThreshold: 2}, quietLogger())
	ctx := context.Background()

	assert.True(t, p.Check(ctx))
	failing.Store(true)
	assert.True(t, p.Check(ctx), "one failure is not enough")
	assert.True(t, h.Online())
	assert.False(t, p.Check(ctx))
	assert.False(t, h.Online())

	failing.Store(false)
	assert.True(t, p.Check(ctx))
	assert.True(t, h.Online())
}

func TestEnvironmentSubscribeThroughInterface(t *testing.T) {
	var env Environment = NewHub()
	var got []Event
	unsubscribe, err := env.Subscribe(TopicConnectivity, func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)

	env.(*Hub).SetOnline(false)
	unsubscribe()
	env.(*Hub).SetOnline(true)
	require.Len(t, got, 1)
	assert.False(t, got[0].Online)
}

func TestProbeIgnoresCallerCancellation(t *testing.T) {
	target := PingFunc(func(ctx context.Context) error { return ctx.Err() })
	h := NewHub()
	p := NewConnectivityProbe(target, h, ProbeConfig{FailureThreshold: 2}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, p.Check(ctx))
	assert.True(t, p.Check(ctx))
	assert.True(t, h.Online())
}

func TestProbeTimeoutCountsAsFailure(t *testing.T) {
	target := PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h := NewHub()
	p := NewConnectivityProbe(target, h, ProbeConfig{FailureThreshold: 1, Timeout: 10 * time.Millisecond}, quietLogger())

	assert.False(t, p.Check(context.Background()))
	assert.False(t, h.Online())
}

func TestProbeCoalescesConcurrentChecks(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	target := PingFunc(func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})
	p := NewConnectivityProbe(target, NewHub(), ProbeConfig{}, quietLogger())

	var wg sync.WaitGroup
	started := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			p.Check(context.Background())
		}()
	}
	for i := 0; i < 5; i++ {
		<-started
	}
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

type stuckTorch struct{ VirtualTorch }

func (s *stuckTorch) SwitchOn(context.Context) error { return errors.New("torch unavailable") }

func TestFlashlightToggle(t *testing.T) {
	torch := &VirtualTorch{}
	f := NewFlashlight(torch)
	ctx := context.Background()

	on, err := f.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	isOn, _ := torch.IsOn(ctx)
	assert.True(t, isOn)

	on, err = f.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	broken := NewFlashlight(&stuckTorch{})
	_, err = broken.Toggle(ctx)
	assert.Error(t, err)
	assert.False(t, broken.On())
}

func TestGyroscopePermissionGate(t *testing.T) {
	h := NewHub()
	g := NewGyroscope(h, true)
	beta := 20.0
	assert.Equal(t, PermissionPrompt, g.Permission())

	_, err := g.Record(Reading{Beta: &beta})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Equal(t, PermissionPrompt, g.RequestPermission("maybe"))
	assert.Equal(t, PermissionDenied, g.RequestPermission("denied"))
	_, err = g.Record(Reading{Beta: &beta})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Equal(t, PermissionGranted, g.RequestPermission("granted"))
	o, err := g.Record(Reading{Beta: &beta})
	require.NoError(t, err)
	assert.Equal(t, Orientation{Beta: 20}, o)
	assert.Equal(t, o, h.Orientation())

	assert.Equal(t, PermissionGranted, NewGyroscope(h, false).Permission())
}

func TestImageFilter(t *testing.T) {
	f := ImageFilter(Orientation{Alpha: 90, Beta: 50, Gamma: -20})
	assert.InDelta(t, 1.5, f.Brightness, 1e-9)
	assert.InDelta(t, 0.8, f.Saturate, 1e-9)
	assert.InDelta(t, 1.45, f.Contrast, 1e-9)
	assert.InDelta(t, 9, f.Rotate, 1e-9)

	flat := ImageFilter(Orientation{})
	assert.Equal(t, "filter: brightness(1) saturate(1) contrast(1); transform: rotate(0deg); transition: filter 0.3s ease, transform 0.3s ease;", flat.CSS())
}
