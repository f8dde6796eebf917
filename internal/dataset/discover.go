package dataset

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"
)

var shardRegexp = regexp.MustCompile(`^shard-[0-9]{6,}\.tar$`)

// DiscoverShards returns paths to shard tar files beneath root in sorted order.
func DiscoverShards(root string) ([]string, error) {
	entries := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if shardRegexp.MatchString(d.Name()) {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover shards")
	}
	sort.Strings(entries)
	return entries, nil
}

// LoadShards reads every shard beneath root, in discovery order.
func LoadShards(ctx context.Context, root string) (Dataset, error) {
	shards, err := DiscoverShards(root)
	if err != nil {
		return Dataset{}, err
	}
	if len(shards) == 0 {
		return Dataset{}, errors.Wrapf(ErrEmptyDataset, "no shards under %s", root)
	}
	ds := Dataset{Name: filepath.Base(root)}
	for _, shard := range shards {
		samples, err := ReadShard(ctx, shard, defaultPendingCap)
		if err != nil {
			return Dataset{}, errors.Wrapf(err, "shard %s", shard)
		}
		ds.Samples = append(ds.Samples, samples...)
	}
	return ds, nil
}
