package main

import (
	"context"
	"flag"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/treesync/repo"
)

func (c maincmd) watch(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		dir    = fs.String("dir", ".", "repository dir")
		settle = fs.Duration("settle", time.Second, "wait this long after the last change before rebuilding")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	r, err := repo.Open(*dir, c.repoOpts()...)
	if err != nil {
		return errors.Wrapf(err, "opening repository in %s", *dir)
	}
	return r.Watch(ctx, *settle)
}
