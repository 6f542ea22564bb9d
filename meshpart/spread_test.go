package meshpart

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSpreadMeshFileMissingMesh(t *testing.T) {
	cfg := &Config{
		MeshFile:        filepath.Join(t.TempDir(), "absent.neu"),
		OutputBase:      "absent",
		SpreadExtension: ".par",
		NumProcessors:   4,
	}
	_, err := SpreadMeshFile(cfg)
	if err == nil {
		t.Fatal("expected error for missing mesh file")
	}
	if !strings.Contains(err.Error(), "absent.neu") {
		t.Errorf("error %q does not name the mesh file", err)
	}
}

func TestSpreadMeshFileValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"NoMeshFile", Config{OutputBase: "out", NumProcessors: 4}},
		{"NoProcessors", Config{MeshFile: "cube.neu", OutputBase: "out"}},
		{"NoOutputBase", Config{MeshFile: "cube.neu", NumProcessors: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := SpreadMeshFile(&tc.cfg); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
