package frame_test

import (
	"errors"
	"testing"
	"time"

	"github.com/momentics/hioload-frames/api"
	"github.com/momentics/hioload-frames/fake"
	"github.com/momentics/hioload-frames/frame"
)

var testShape = api.ShapeDescriptor{Width: 640, Height: 480, Format: api.FormatRGBA8}

func newTestFrame(t *testing.T, dev *fake.Device) *frame.Frame {
	t.Helper()
	backing, err := dev.CreateFrameBacking(testShape)
	if err != nil {
		t.Fatalf("create backing: %v", err)
	}
	return frame.New(testShape, backing)
}

func TestFrame_StateTransitions(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)

	if f.InUse() {
		t.Error("new frame must start free")
	}
	before := f.LastAccess()
	time.Sleep(time.Millisecond)
	f.MarkInUse()
	if !f.InUse() {
		t.Error("MarkInUse must set in-use state")
	}
	if !f.LastAccess().After(before) {
		t.Error("MarkInUse must stamp last access time")
	}
	if !f.MarkUnused() {
		t.Error("MarkUnused on an in-use frame must report the transition")
	}
	if f.InUse() {
		t.Error("MarkUnused must clear in-use state")
	}
	if f.MarkUnused() {
		t.Error("MarkUnused on a free frame must report no transition")
	}
}

func TestFrame_MapUnmapIdempotent(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)

	for i := 0; i < 2; i++ {
		if err := f.MapForInterop(dev); err != nil {
			t.Fatalf("map %d: %v", i, err)
		}
	}
	if !f.Mapped() {
		t.Error("frame must be mapped after MapForInterop")
	}
	if got := dev.MapCount(); got != 1 {
		t.Errorf("device saw %d map calls, want 1", got)
	}

	for i := 0; i < 2; i++ {
		if err := f.UnmapForInterop(dev); err != nil {
			t.Fatalf("unmap %d: %v", i, err)
		}
	}
	if f.Mapped() {
		t.Error("frame must be unmapped after UnmapForInterop")
	}
	if got := dev.UnmapCount(); got != 1 {
		t.Errorf("device saw %d unmap calls, want 1", got)
	}
}

func TestFrame_DestroyOnce(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)

	if err := f.Destroy(dev); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if dev.LiveCount() != 0 {
		t.Error("destroy must release the backing")
	}
	if err := f.Destroy(dev); !errors.Is(err, api.ErrLifetimeViolation) {
		t.Errorf("second destroy: got %v, want lifetime violation", err)
	}
	if got := dev.DestroyedCount(); got != 1 {
		t.Errorf("device saw %d destroys, want 1", got)
	}
}

func TestFrame_DestroyWhileInUse(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)
	f.MarkInUse()

	if err := f.Destroy(dev); !errors.Is(err, api.ErrLifetimeViolation) {
		t.Fatalf("destroy while in use: got %v, want lifetime violation", err)
	}
	if dev.LiveCount() != 1 {
		t.Error("backing must stay untouched after a refused destroy")
	}

	// After a legal release the destroy must go through.
	f.MarkUnused()
	if err := f.Destroy(dev); err != nil {
		t.Fatalf("destroy after release: %v", err)
	}
}

func TestFrame_DestroyWhileMapped(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)
	if err := f.MapForInterop(dev); err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := f.Destroy(dev); !errors.Is(err, api.ErrLifetimeViolation) {
		t.Fatalf("destroy while mapped: got %v, want lifetime violation", err)
	}
}

func TestFrame_StrictChecksPanics(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)
	f.MarkInUse()

	frame.StrictChecks = true
	defer func() {
		frame.StrictChecks = false
		if recover() == nil {
			t.Error("expected panic under StrictChecks")
		}
	}()
	_ = f.Destroy(dev)
}

func TestFrame_Metadata(t *testing.T) {
	dev := fake.NewDevice()
	f := newTestFrame(t, dev)

	if got := f.Metadata(); got != (frame.Metadata{}) {
		t.Errorf("fresh frame metadata = %+v, want zero", got)
	}
	m := frame.Metadata{PTS: 40 * time.Millisecond, Kind: "decoded"}
	f.SetMetadata(m)
	if got := f.Metadata(); got != m {
		t.Errorf("metadata = %+v, want %+v", got, m)
	}
}
