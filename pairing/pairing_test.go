package pairing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/skysift/dmgtiles/testing/testdata"
	"github.com/skysift/dmgtiles/tileset"
)

const testZoom = 18

func writeTiles(t *testing.T, root, id string, coords ...tileset.Coord) {
	t.Helper()
	for _, c := range coords {
		p := tileset.TilePath(root, id, testZoom, c)
		if err := os.MkdirAll(filepath.Dir(p), 0770); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(id+" "+c.String()), 0640); err != nil {
			t.Fatal(err)
		}
	}
}

func readString(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func newTestPairer(t *testing.T) *Pairer {
	t.Helper()
	p, err := NewPairer(t.TempDir(), t.TempDir(), "quake", testZoom)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPairDirName(t *testing.T) {
	if got := PairDirName(3); got != "00000003" {
		t.Errorf("got %s", got)
	}
	if got := TileName("quake", 12, "post", 4); got != "quake_00000012_post_disaster_4.png" {
		t.Errorf("got %s", got)
	}
}

func TestPairIntersection(t *testing.T) {
	p := newTestPairer(t)
	writeTiles(t, p.Root, "pre", tileset.Coord{Row: 0, Col: 0}, tileset.Coord{Row: 0, Col: 1}, tileset.Coord{Row: 1, Col: 0})
	writeTiles(t, p.Root, "post", tileset.Coord{Row: 0, Col: 0}, tileset.Coord{Row: 1, Col: 0}, tileset.Coord{Row: 2, Col: 2})

	res, err := p.Pair(PrePost, Record{Pre: "pre", Post: "post"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Copied != 2 {
		t.Fatalf("copied %d, want 2", res.Copied)
	}

	dir := filepath.Join(p.Dest, "pre_post", "00000000")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("got %d files, want 4", len(entries))
	}
	want := map[string]string{
		"quake_00000000_pre_disaster_0.png":  "pre 0_0",
		"quake_00000000_post_disaster_0.png": "post 0_0",
		"quake_00000000_pre_disaster_1.png":  "pre 1_0",
		"quake_00000000_post_disaster_1.png": "post 1_0",
	}
	for name, content := range want {
		if got := readString(t, filepath.Join(dir, name)); got != content {
			t.Errorf("%s: got %q, want %q", name, got, content)
		}
	}
}

func TestPairMissingImage(t *testing.T) {
	p := newTestPairer(t)
	writeTiles(t, p.Root, "post", tileset.Coord{Row: 0, Col: 0})

	res, err := p.Pair(PrePost, Record{Pre: "gone", Post: "post"}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Copied != 0 {
		t.Errorf("copied %d", res.Copied)
	}
	fi, err := os.Stat(filepath.Join(p.Dest, "pre_post", "00000007"))
	if err != nil || !fi.IsDir() {
		t.Errorf("pair directory not allocated: %v", err)
	}
}

func TestCopyPreservesMetadata(t *testing.T) {
	p := newTestPairer(t)
	writeTiles(t, p.Root, "a", tileset.Coord{Row: 3, Col: 4})
	writeTiles(t, p.Root, "b", tileset.Coord{Row: 3, Col: 4})
	mtime := time.Date(2023, 2, 6, 1, 17, 0, 0, time.UTC)
	src := tileset.TilePath(p.Root, "a", testZoom, tileset.Coord{Row: 3, Col: 4})
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Pair(PrePre, Record{Pre: "a", Post: "b"}, 1); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(filepath.Join(p.Dest, "pre_pre", "00000001", "quake_00000001_pre_disaster_0.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(mtime) {
		t.Errorf("mtime %v, want %v", fi.ModTime(), mtime)
	}
	if fi.Mode().Perm() != 0640 {
		t.Errorf("mode %v, want 0640", fi.Mode().Perm())
	}
}

func TestPhaseCounterContinues(t *testing.T) {
	p := newTestPairer(t)
	writeTiles(t, p.Root, "a", tileset.Coord{Row: 0, Col: 0})
	writeTiles(t, p.Root, "b", tileset.Coord{Row: 0, Col: 0})
	writeTiles(t, p.Root, "c", tileset.Coord{Row: 0, Col: 0})

	ctx := context.Background()
	next, results, err := p.Phase(ctx, PrePost, []Record{{"a", "b"}, {"a", "c"}, {"x", "c"}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if next != 3 || len(results) != 3 {
		t.Fatalf("next %d, results %d", next, len(results))
	}
	next, results, err = p.Phase(ctx, PrePre, []Record{{"b", "a"}}, next)
	if err != nil {
		t.Fatal(err)
	}
	if next != 4 || results[0].Number != 3 {
		t.Errorf("next %d, number %d", next, results[0].Number)
	}
	if _, err := os.Stat(filepath.Join(p.Dest, "pre_pre", "00000003", "quake_00000003_post_disaster_0.png")); err != nil {
		t.Error(err)
	}
}

func TestPhaseCanceled(t *testing.T) {
	p := newTestPairer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next, results, err := p.Phase(ctx, PrePost, []Record{{"a", "b"}}, 5)
	if !errors.Is(err, context.Canceled) || next != 5 || len(results) != 0 {
		t.Errorf("got %d %v %v", next, results, err)
	}
}

func TestReadRecords(t *testing.T) {
	in := "10300100A,10500500B\n10300100C, 10500500D,extra\n"
	got, err := ReadRecords(strings.NewReader(in), "pre_post.csv")
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{{"10300100A", "10500500B"}, {"10300100C", "10500500D"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadRecordsMalformed(t *testing.T) {
	_, err := ReadRecords(strings.NewReader("a,b\nc\n"), "pre_pre.csv")
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "pre_pre.csv:2") {
		t.Errorf("error %q does not name the line", err)
	}
}

func TestLoadRecordsMissingFile(t *testing.T) {
	if _, err := LoadRecords(filepath.Join(t.TempDir(), "nope.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v", err)
	}
}

func TestImageIDs(t *testing.T) {
	got := ImageIDs(
		[]Record{{"a", "b"}, {"a", "c"}},
		[]Record{{"d", "a"}},
	)
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLoadRecordsFixture(t *testing.T) {
	got, err := LoadRecords(testdata.Path("pre_post.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := []Record{
		{"10300100E1C1E600", "10400100823D3D00"},
		{"1040010079E9A800", "10400100823D3D00"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if ids := ImageIDs(got); len(ids) != 3 {
		t.Errorf("ids %v", ids)
	}
}
