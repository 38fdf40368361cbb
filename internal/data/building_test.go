package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/citysim/core/internal/core/errs"
	"github.com/citysim/core/internal/resource"
)

const sampleBuildings = `
buildings:
  - key: power_plant
    name: Powerplant
    prefab: Powerplant Future
    cost: 25000
    category: resource
    produces: electricity
    rate: 5
  - key: house
    name: House
    prefab: House Future
    cost: 1500
    category: residential
    comfort: 0.8
    usage: 0.5
`

func TestLoadBuildingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildings.yaml")
	if err := os.WriteFile(path, []byte(sampleBuildings), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadBuildingTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count = %d, want 2", tbl.Count())
	}
	pp := tbl.Get("power_plant")
	if pp == nil {
		t.Fatal("power_plant missing")
	}
	if pp.Cost != 25000 || pp.Rate != 5 || pp.Resource != resource.Electricity || pp.Prefab != "Powerplant Future" {
		t.Fatalf("power_plant = %+v", pp)
	}
	if h := tbl.Get("house"); h == nil || h.Comfort != 0.8 || h.Usage != 0.5 {
		t.Fatalf("house = %+v", h)
	}
	if keys := tbl.Keys(); len(keys) != 2 || keys[0] != "house" {
		t.Fatalf("keys = %v", keys)
	}
	if tbl.Get("castle") != nil {
		t.Fatal("unknown key resolved")
	}
}

func TestParseBuildingTableRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"missing key":   "buildings:\n  - name: x\n",
		"duplicate key": "buildings:\n  - key: a\n  - key: a\n",
		"bad resource":  "buildings:\n  - key: a\n    produces: plasma\n",
		"bad yaml":      "buildings: [",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseBuildingTable([]byte(raw)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, err := ParseBuildingTable([]byte("buildings:\n  - key: a\n    produces: plasma\n"))
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("bad resource error = %v, want configuration error", err)
	}
}

func TestLoadBuildingTableMissingFile(t *testing.T) {
	if _, err := LoadBuildingTable(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
