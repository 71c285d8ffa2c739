package tileset

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/skysift/dmgtiles/testing/testdata"
)

func TestParseCoord(t *testing.T) {
	cases := []struct {
		name string
		want Coord
		ok   bool
	}{
		{"12_40.png", Coord{12, 40}, true},
		{"0_0.png", Coord{0, 0}, true},
		{"-1_3.png", Coord{-1, 3}, true},
		{"12_40.jpg", Coord{}, false},
		{"1240.png", Coord{}, false},
		{"a_b.png", Coord{}, false},
	}
	for _, c := range cases {
		got, ok := ParseCoord(c.name)
		if ok != c.ok || got != c.want {
			t.Errorf("%s: got %v %v, want %v %v", c.name, got, ok, c.want, c.ok)
		}
		if ok && got.Name() != c.name {
			t.Errorf("%s: name round trip gave %s", c.name, got.Name())
		}
	}
}

func TestIndexMissing(t *testing.T) {
	l, err := Index(t.TempDir(), "nope", 18)
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Errorf("got %d tiles", l.Len())
	}
}

func TestIndexOrder(t *testing.T) {
	root := t.TempDir()
	dir := ZoomDir(root, "img", 18)
	for _, name := range []string{"2_2.png", "0_0.png", "1_0.png", "notes.txt"} {
		if err := os.MkdirAll(dir, 0770); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0660); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "3_3.png"), 0770); err != nil {
		t.Fatal(err)
	}

	l, err := Index(root, "img", 18)
	if err != nil {
		t.Fatal(err)
	}
	want := []Coord{{0, 0}, {1, 0}, {2, 2}}
	got := l.Coords()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("coord %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if !l.Has(Coord{1, 0}) || l.Has(Coord{3, 3}) {
		t.Error("membership mismatch")
	}
}

func TestCanonicalize(t *testing.T) {
	tilerDir := t.TempDir()
	root := t.TempDir()
	if err := testdata.WriteTilerTree(tilerDir, 3, 8, testdata.White, [2]int{1, 2}, [2]int{5, 0}, [2]int{7, 7}); err != nil {
		t.Fatal(err)
	}
	// Stray output from the tiler is ignored.
	if err := os.WriteFile(filepath.Join(tilerDir, "3", "tilemapresource.xml"), nil, 0660); err != nil {
		t.Fatal(err)
	}

	n, err := Canonicalize(3, 256, tilerDir, root, "img")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("moved %d, want 3", n)
	}
	for _, name := range []string{"5_1.png", "7_5.png", "0_7.png"} {
		if _, err := os.Stat(filepath.Join(ZoomDir(root, "img", 3), name)); err != nil {
			t.Errorf("missing canonical tile %s: %v", name, err)
		}
	}
	raw, err := RawTiles(tilerDir, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 0 {
		t.Errorf("raw tiles left behind: %v", raw)
	}
}

func TestCanonicalizeEmpty(t *testing.T) {
	n, err := Canonicalize(18, 256, t.TempDir(), t.TempDir(), "img")
	if err != nil || n != 0 {
		t.Errorf("got %d, %v", n, err)
	}
}

func TestCountBlank(t *testing.T) {
	fill := func(c color.Color) image.Image {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, c)
			}
		}
		return img
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range nrgba.Pix {
		if i%4 == 3 {
			nrgba.Pix[i] = 0xff
		}
	}

	cases := []struct {
		name    string
		img     image.Image
		samples int
		pixels  int
	}{
		{"black", fill(testdata.Black), 768, 256},
		{"white", fill(testdata.White), 0, 0},
		{"vegetation", fill(testdata.Vegetation), 256, 0},
		{"nrgba black", nrgba, 768, 256},
	}
	for _, c := range cases {
		if got := CountBlank(c.img, ZeroSamples); got != c.samples {
			t.Errorf("%s samples: got %d, want %d", c.name, got, c.samples)
		}
		if got := CountBlank(c.img, BlackPixels); got != c.pixels {
			t.Errorf("%s pixels: got %d, want %d", c.name, got, c.pixels)
		}
	}
}

func TestParseCriterion(t *testing.T) {
	for _, s := range []string{"samples", "pixels"} {
		c, err := ParseCriterion(s)
		if err != nil {
			t.Fatal(err)
		}
		if c.String() != s {
			t.Errorf("got %s, want %s", c, s)
		}
	}
	if _, err := ParseCriterion("white"); err == nil {
		t.Error("expected error")
	}
}

func TestPrune(t *testing.T) {
	root := t.TempDir()
	write := func(id string, c Coord, col color.Color) string {
		p := TilePath(root, id, 18, c)
		if err := testdata.WritePNG(p, 256, col); err != nil {
			t.Fatal(err)
		}
		return p
	}
	black := write("a", Coord{0, 0}, testdata.Black)
	white := write("a", Coord{0, 1}, testdata.White)
	green := write("a", Coord{0, 2}, testdata.Vegetation)
	other := write("b", Coord{0, 0}, testdata.Black)

	results, err := Prune(context.Background(), root, 18, []string{"a", "missing"}, 500, BlackPixels)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Pruned != 1 || results[0].Kept != 2 {
		t.Errorf("got %+v", results)
	}
	if _, err := os.Stat(black); !os.IsNotExist(err) {
		t.Error("black tile was kept")
	}
	for _, p := range []string{white, green, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s was removed", p)
		}
	}

	// One zero channel per pixel is blank under the sample criterion.
	if _, err := Prune(context.Background(), root, 18, []string{"a"}, 500, ZeroSamples); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(green); !os.IsNotExist(err) {
		t.Error("vegetation tile was kept")
	}
	if _, err := os.Stat(white); err != nil {
		t.Error("white tile was removed")
	}
}

func TestPruneTileUndecodable(t *testing.T) {
	p := filepath.Join(t.TempDir(), "0_0.png")
	if err := os.WriteFile(p, []byte("not a png"), 0660); err != nil {
		t.Fatal(err)
	}
	pruned, err := PruneTile(p, 0, ZeroSamples)
	if err != nil || pruned {
		t.Errorf("got %v, %v", pruned, err)
	}
}

func TestPruneCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Prune(ctx, t.TempDir(), 18, []string{"a"}, 0, ZeroSamples); err == nil {
		t.Error("expected context error")
	}
}
