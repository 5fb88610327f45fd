package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
	"github.com/contacteval/contact/tournament"
)

const (
	gamesDir    = "games"
	ratingsFile = "ratings.yaml"
)

// Dir keeps one YAML file per game under <root>/games and the rating
// snapshot in <root>/ratings.yaml. Every file is written atomically.
type Dir struct {
	root string
}

func OpenDir(root string) (*Dir, error) {
	if err := os.MkdirAll(filepath.Join(root, gamesDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func gameFileName(res *game.Result) string {
	word := strings.Map(func(r rune) rune {
		if r == '/' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, res.Config.Word)
	return fmt.Sprintf("%010d_%s_%s_%s.yaml", res.Seq, res.Timestamp.UTC().Format("20060102T150405.000000000"), word, res.ID)
}

// SaveGame writes the game once; saving a game id that is already on
// disk is a no-op.
func (d *Dir) SaveGame(ctx context.Context, res *game.Result) error {
	dir := filepath.Join(d.root, gamesDir)
	existing, err := filepath.Glob(filepath.Join(dir, "*_"+res.ID+".yaml"))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	bts, err := yaml.Marshal(res)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, gameFileName(res)), bts)
}

// LoadAllGames returns every saved game in commit order.
func (d *Dir) LoadAllGames(ctx context.Context) ([]*game.Result, error) {
	dir := filepath.Join(d.root, gamesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	out := make([]*game.Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bts, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		res := &game.Result{}
		if err := yaml.Unmarshal(bts, res); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		out = append(out, res)
	}
	tournament.SortResults(out)
	return out, nil
}

func (d *Dir) SaveRatings(ctx context.Context, snap *rating.Snapshot) error {
	bts, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(d.root, ratingsFile), bts)
}

func (d *Dir) LoadRatings(ctx context.Context) (*rating.Snapshot, error) {
	bts, err := os.ReadFile(filepath.Join(d.root, ratingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap := &rating.Snapshot{}
	if err := yaml.Unmarshal(bts, snap); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ratingsFile, err)
	}
	return snap, nil
}

func writeAtomic(path string, contents []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(contents); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
