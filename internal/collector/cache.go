package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"GreenLine/internal/model"
)

// CachedStore keeps one msgpack file per symbol and feed, reused when it covers the request.
type CachedStore struct {
	Inner BarStore
	Dir   string
}

// NewCachedStore wraps inner with an on-disk cache under dir.
func NewCachedStore(inner BarStore, dir string) *CachedStore {
	return &CachedStore{Inner: inner, Dir: dir}
}

type cacheEntry struct {
	Symbol    string        `msgpack:"symbol"`
	Feed      string        `msgpack:"feed"`
	Start     time.Time     `msgpack:"start"`
	End       time.Time     `msgpack:"end"`
	FetchedAt time.Time     `msgpack:"fetched_at"`
	Bars      []model.OHLCV `msgpack:"bars"`
}

func (c *CachedStore) Name() string { return c.Inner.Name() + "+cache" }

func (c *CachedStore) path(symbol, feed string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(symbol)
	if feed == "" {
		feed = "default"
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.msgpack", safe, feed))
}

func (c *CachedStore) GetBars(ctx context.Context, symbol string, start, end time.Time, feed string) (model.BarSeries, error) {
	start, end = model.Day(start), model.Day(end)
	path := c.path(symbol, feed)

	if entry, err := readCache(path); err == nil {
		if !entry.Start.After(start) && !entry.End.Before(end) {
			log.Debug().Str("symbol", symbol).Str("path", path).Msg("bar cache hit")
			return Window(Normalize(symbol, entry.Bars), start, end), nil
		}
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("unreadable bar cache, refetching")
	}

	series, err := c.Inner.GetBars(ctx, symbol, start, end, feed)
	if err != nil {
		return series, err
	}
	entry := cacheEntry{
		Symbol:    symbol,
		Feed:      feed,
		Start:     start,
		End:       end,
		FetchedAt: time.Now().UTC(),
		Bars:      series.Bars,
	}
	if err := writeCache(path, entry); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("write bar cache")
	}
	return series, nil
}

func readCache(path string) (*cacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	entry.Start, entry.End = model.Day(entry.Start), model.Day(entry.End)
	return &entry, nil
}

func writeCache(path string, entry cacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
