// Package openingbook loads precomputed good moves for early positions.
//
// A book file has one record per line, each a JSON object such as
//
//	{"pos":"3342","score":[-2,-1,0,1,0,-1,-2]},
//
// where pos is the sequence of columns played from the empty board and
// score holds one value per column for the side to move. Trailing commas
// and lines that are not objects (such as the brackets of a JSON array)
// are ignored.
package openingbook

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/cache"
	"github.com/domino14/connectfour/config"
)

var ErrMalformedLine = errors.New("malformed opening book line")

type Options struct {
	Width    int
	Height   int
	MaxPlies int
	// OneBased is set when pos numbers columns from 1.
	OneBased bool
}

// Book maps position keys to the columns that win or draw.
type Book struct {
	moves   map[uint64][]int
	opts    Options
	skipped int
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = board.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = board.DefaultHeight
	}
	return o
}

// Load reads a book. Positions longer than opts.MaxPlies are skipped; zero
// means no limit.
func Load(r io.Reader, opts Options) (*Book, error) {
	opts = opts.withDefaults()
	bk := &Book{moves: make(map[uint64][]int), opts: opts}
	b, err := board.NewGameWithDims(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimRight(line, ",")
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("%w %d: not valid JSON", ErrMalformedLine, lineNo)
		}
		res := gjson.GetMany(line, "pos", "score")
		pos, scores := res[0], res[1]
		if !pos.Exists() || !scores.IsArray() {
			return nil, fmt.Errorf("%w %d: need pos and score", ErrMalformedLine, lineNo)
		}
		if opts.MaxPlies > 0 && len(pos.String()) > opts.MaxPlies {
			bk.skipped++
			continue
		}
		key, err := bk.keyFor(b, pos.String())
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedLine, lineNo, err)
		}
		var good []int
		for col, s := range scores.Array() {
			// a win or a draw.
			if col < opts.Width && s.Int() >= 0 {
				good = append(good, col)
			}
		}
		bk.moves[key] = good
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Debug().Int("positions", len(bk.moves)).Int("skipped", bk.skipped).
		Msg("opening-book-loaded")
	return bk, nil
}

// keyFor replays pos on b, takes its key and resets b.
func (bk *Book) keyFor(b *board.Board, pos string) (uint64, error) {
	defer b.Reset()
	moves, err := board.ParseMoves(pos)
	if err != nil {
		return 0, err
	}
	for _, m := range moves {
		if bk.opts.OneBased {
			m--
		}
		if _, err := b.ApplyMove(m); err != nil {
			return 0, err
		}
	}
	return b.Key(), nil
}

func LoadFile(path string, opts Options) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts)
}

// Lookup returns the good moves for the position with the given key.
func (bk *Book) Lookup(key uint64) ([]int, bool) {
	m, ok := bk.moves[key]
	return m, ok
}

// Len is the number of positions in the book.
func (bk *Book) Len() int {
	return len(bk.moves)
}

// Skipped is the number of records dropped for being too long.
func (bk *Book) Skipped() int {
	return bk.skipped
}

func optionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:    cfg.GetInt(config.ConfigBoardWidth),
		Height:   cfg.GetInt(config.ConfigBoardHeight),
		MaxPlies: cfg.GetInt(config.ConfigOpeningBookPlies),
		OneBased: cfg.GetBool(config.ConfigOpeningBookOneBased),
	}
}

func cacheKey(cfg *config.Config, path string) string {
	o := optionsFromConfig(cfg)
	return fmt.Sprintf("openingbook:%s:%dx%d:%d:%t", path, o.Width, o.Height, o.MaxPlies, o.OneBased)
}

// Get loads the book at path once and shares it afterwards. Books are
// read-only, so every game and goroutine can use the same one.
func Get(cfg *config.Config, path string) (*Book, error) {
	obj, err := cache.Load(cfg, cacheKey(cfg, path), func(cfg *config.Config, _ string) (any, error) {
		return LoadFile(path, optionsFromConfig(cfg))
	})
	if err != nil {
		return nil, err
	}
	bk, ok := obj.(*Book)
	if !ok {
		return nil, errors.New("could not read opening book from cache")
	}
	return bk, nil
}
