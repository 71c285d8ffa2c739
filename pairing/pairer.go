package pairing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/skysift/dmgtiles/params"
	"github.com/skysift/dmgtiles/tileset"
)

// FirstNumber is the number of the first pre/post pair.
const FirstNumber = 1

// PairDirName is the zero-padded directory name of pair n.
func PairDirName(n int) string {
	return fmt.Sprintf("%08d", n)
}

// TileName is the file name of one side of the i-th matched tile of pair n.
// Side is "pre" or "post".
func TileName(disaster string, n int, side string, i int) string {
	return fmt.Sprintf("%s_%08d_%s_disaster_%d.png", disaster, n, side, i)
}

// Result describes one resolved pair record.
type Result struct {
	Number int
	Kind   Kind
	Record Record
	// Copied is the number of matched tile pairs written.
	Copied int
}

type listingKey struct {
	id   string
	zoom int
}

// Pairer matches canonical tiles under Root and writes pairs under Dest.
// Listings are cached for the life of the Pairer, so tiles must not be
// added or pruned while it is in use.
type Pairer struct {
	Root     string
	Dest     string
	Disaster string
	Zoom     int

	logger   *slog.Logger
	listings *lru.Cache[listingKey, *tileset.Listing]
}

func NewPairer(root, dest, disaster string, zoom int) (*Pairer, error) {
	cache, err := lru.New[listingKey, *tileset.Listing](params.PairerListingCacheSize)
	if err != nil {
		return nil, err
	}
	return &Pairer{
		Root:     root,
		Dest:     dest,
		Disaster: disaster,
		Zoom:     zoom,
		logger:   slog.With("disaster", disaster, "zoom", zoom),
		listings: cache,
	}, nil
}

func (p *Pairer) listing(id string) (*tileset.Listing, error) {
	k := listingKey{id: id, zoom: p.Zoom}
	if l, ok := p.listings.Get(k); ok {
		return l, nil
	}
	l, err := tileset.Index(p.Root, id, p.Zoom)
	if err != nil {
		return nil, err
	}
	p.listings.Add(k, l)
	return l, nil
}

// Phase pairs every record in order, numbering pairs from n.
// It returns the next unused pair number.
// On error the results so far are returned with the number that failed.
func (p *Pairer) Phase(ctx context.Context, kind Kind, records []Record, n int) (next int, results []Result, err error) {
	results = make([]Result, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return n, results, err
		}
		res, err := p.Pair(kind, rec, n)
		if err != nil {
			return n, results, err
		}
		results = append(results, res)
		n++
	}
	p.logger.Info("Pair phase complete", "kind", kind, "pairs", len(results), "next", n)
	return n, results, nil
}

// Pair writes pair n for one record. The pair directory is created even
// when no tiles match. Matched tiles follow the post listing order.
func (p *Pairer) Pair(kind Kind, rec Record, n int) (Result, error) {
	res := Result{Number: n, Kind: kind, Record: rec}
	dir := filepath.Join(p.Dest, string(kind), PairDirName(n))
	if err := os.MkdirAll(dir, 0770); err != nil {
		return res, fmt.Errorf("pair %d: %w", n, err)
	}

	pre, err := p.listing(rec.Pre)
	if err != nil {
		return res, fmt.Errorf("pair %d: %w", n, err)
	}
	post, err := p.listing(rec.Post)
	if err != nil {
		return res, fmt.Errorf("pair %d: %w", n, err)
	}
	if pre.Len() == 0 {
		p.logger.Warn("No tiles for image", "pair", n, "image", rec.Pre)
	}
	if post.Len() == 0 {
		p.logger.Warn("No tiles for image", "pair", n, "image", rec.Post)
	}

	for _, c := range post.Coords() {
		if !pre.Has(c) {
			continue
		}
		i := res.Copied
		if err := copyFile(
			tileset.TilePath(p.Root, rec.Pre, p.Zoom, c),
			filepath.Join(dir, TileName(p.Disaster, n, "pre", i)),
		); err != nil {
			return res, fmt.Errorf("pair %d image %s tile %s: %w", n, rec.Pre, c, err)
		}
		if err := copyFile(
			tileset.TilePath(p.Root, rec.Post, p.Zoom, c),
			filepath.Join(dir, TileName(p.Disaster, n, "post", i)),
		); err != nil {
			return res, fmt.Errorf("pair %d image %s tile %s: %w", n, rec.Post, c, err)
		}
		res.Copied++
	}
	p.logger.Debug("Paired", "kind", kind, "pair", n, "pre", rec.Pre, "post", rec.Post, "copied", res.Copied)
	return res, nil
}

// copyFile copies src to dst, keeping the permission bits and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, fi.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}
