// internal/tile/types_test.go - Unit tests for tile value types
package tile

import "testing"

func TestNewBoundingBox(t *testing.T) {
	tests := []struct {
		name                   string
		minX, minY, maxX, maxY float64
		wantErr                bool
	}{
		{"valid", -10, -5, 10, 5, false},
		{"inverted x", 10, -5, -10, 5, true},
		{"inverted y", -10, 5, 10, -5, true},
		{"degenerate", 1, 1, 1, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoundingBox(tt.minX, tt.minY, tt.maxX, tt.maxY, CRSGeographic)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBoundingBox() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTileValidate(t *testing.T) {
	tests := []struct {
		name    string
		tile    Tile
		wantErr bool
	}{
		{"valid coordinates", Tile{14, 8362, 5956}, false},
		{"invalid zoom negative", Tile{-1, 0, 0}, true},
		{"invalid zoom too high", Tile{MaxZoom + 1, 0, 0}, true},
		{"invalid x negative", Tile{1, -1, 0}, true},
		{"invalid x too high", Tile{1, 2, 0}, true},
		{"invalid y negative", Tile{1, 0, -1}, true},
		{"invalid y too high", Tile{1, 0, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Tile.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTile(t *testing.T) {
	tl, err := ParseTile("14/8362/5956")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if tl.String() != "14/8362/5956" {
		t.Errorf("Expected 14/8362/5956, got %s", tl)
	}

	for _, bad := range []string{"", "1/2", "a/1/1", "1/5/0"} {
		if _, err := ParseTile(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestBoundingBoxString(t *testing.T) {
	b := BoundingBox{MinX: -179, MinY: -85, MaxX: 179.5, MaxY: 85}
	if got := b.String(); got != "-179,-85,179.5,85" {
		t.Errorf("Expected -179,-85,179.5,85, got %s", got)
	}
}

func TestCRSString(t *testing.T) {
	if CRS(3857).String() != "EPSG:3857" {
		t.Errorf("Unexpected CRS string %s", CRS(3857))
	}
}
