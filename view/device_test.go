package view

import (
	"errors"
	"testing"

	"github.com/notargets/dynview/layout"
	"github.com/notargets/dynview/memory"
	"github.com/notargets/dynview/utils"
)

func TestDeviceViews(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()
	space := memory.NewDeviceSpace(device)
	defer space.Close()

	newDev := func(t *testing.T, name string, kind layout.Kind) *View {
		t.Helper()
		v, err := New(space, Config{Name: name, Type: memory.Float64, Kind: kind, Extents: []int{4, 4, 3}})
		if err != nil {
			t.Fatalf("device view: %v", err)
		}
		return v
	}

	t.Run("RoundTrip", func(t *testing.T) {
		src := newSeeded(t, layout.RowMajor)
		dev := newDev(t, "dev", layout.RowMajor)
		defer dev.Free()

		// Matching layouts cross spaces on the bulk path
		if err := DeepCopy(dev, src); err != nil {
			t.Fatalf("host to device: %v", err)
		}
		back, err := New(memory.Host(), Config{Name: "back", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{4, 4, 3}})
		if err != nil {
			t.Fatalf("new view: %v", err)
		}
		if err := DeepCopy(back, dev); err != nil {
			t.Fatalf("device to host: %v", err)
		}
		viewsEqual(t, back, src)
	})

	t.Run("Fill", func(t *testing.T) {
		dev := newDev(t, "fill", layout.RowMajor)
		defer dev.Free()
		if err := FillDeriv(dev, 2.0, []float64{1, 0.5}); err != nil {
			t.Fatalf("device fill: %v", err)
		}

		back, err := New(memory.Host(), Config{Name: "back", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{4, 4, 3}})
		if err != nil {
			t.Fatalf("new view: %v", err)
		}
		if err := DeepCopy(back, dev); err != nil {
			t.Fatalf("device to host: %v", err)
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if back.At(i, j) != 2.0 || back.DerivAt(0, i, j) != 1 || back.DerivAt(1, i, j) != 0.5 {
					t.Fatalf("(%d,%d): got %g / %g,%g", i, j, back.At(i, j), back.DerivAt(0, i, j), back.DerivAt(1, i, j))
				}
			}
		}
	})

	t.Run("FillSubviewStaged", func(t *testing.T) {
		dev := newDev(t, "parent", layout.RowMajor)
		defer dev.Free()
		if err := Fill(dev, -1); err != nil {
			t.Fatalf("device fill: %v", err)
		}
		// The window rewrite stages the parent storage back intact
		if err := Fill(dev.Subview("w", All(), Range(0, 2)), 7); err != nil {
			t.Fatalf("subview fill: %v", err)
		}

		back, err := New(memory.Host(), Config{Name: "back", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{4, 4, 3}})
		if err != nil {
			t.Fatalf("new view: %v", err)
		}
		if err := DeepCopy(back, dev); err != nil {
			t.Fatalf("device to host: %v", err)
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				want := -1.0
				if j < 2 {
					want = 7.0
				}
				if back.At(i, j) != want {
					t.Fatalf("(%d,%d): got %g, want %g", i, j, back.At(i, j), want)
				}
			}
		}
	})

	t.Run("DeviceRemap", func(t *testing.T) {
		src := newSeeded(t, layout.RowMajor)
		devRow := newDev(t, "row", layout.RowMajor)
		defer devRow.Free()
		devCol := newDev(t, "col", layout.ColMajor)
		defer devCol.Free()

		if err := DeepCopy(devRow, src); err != nil {
			t.Fatalf("host to device: %v", err)
		}
		// Same device, different dense kinds: remap runs in a kernel
		if err := DeepCopy(devCol, devRow); err != nil {
			t.Fatalf("device remap: %v", err)
		}

		back, err := New(memory.Host(), Config{Name: "back", Type: memory.Float64, Kind: layout.ColMajor, Extents: []int{4, 4, 3}})
		if err != nil {
			t.Fatalf("new view: %v", err)
		}
		if err := DeepCopy(back, devCol); err != nil {
			t.Fatalf("device to host: %v", err)
		}
		viewsEqual(t, back, src)
	})

	t.Run("MismatchedLayoutsAreInaccessible", func(t *testing.T) {
		src := newSeeded(t, layout.RowMajor)
		dev := newDev(t, "colside", layout.ColMajor)
		defer dev.Free()

		err := DeepCopy(dev, src)
		if !errors.Is(err, ErrInaccessible) {
			t.Fatalf("expected ErrInaccessible, got %v", err)
		}

		if err := StageThroughHost(dev, src); err != nil {
			t.Fatalf("staged copy: %v", err)
		}
		back, err := New(memory.Host(), Config{Name: "back", Type: memory.Float64, Kind: layout.ColMajor, Extents: []int{4, 4, 3}})
		if err != nil {
			t.Fatalf("new view: %v", err)
		}
		if err := DeepCopy(back, dev); err != nil {
			t.Fatalf("device to host: %v", err)
		}
		viewsEqual(t, back, src)
	})
}
