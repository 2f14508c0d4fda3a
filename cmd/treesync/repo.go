package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/treesync/repo"
)

func (c maincmd) repoOpts() []repo.Option {
	return []repo.Option{repo.WithConfig(c.conf), repo.WithLogger(c.logger)}
}

func (c maincmd) init(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		dir       = fs.String("dir", ".", "repository dir")
		name      = fs.String("name", "", "display name")
		url       = fs.String("url", "", "URL where clients will reach the repository")
		overwrite = fs.Bool("overwrite", false, "overwrite an existing repository's index")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *url == "" {
		return errors.New("must supply -url")
	}

	r, err := repo.Initialize(*dir, *name, *url, *overwrite, c.repoOpts()...)
	if err != nil {
		return errors.Wrapf(err, "initializing repository in %s", *dir)
	}
	fmt.Printf("repository %q at %s (%s)\n", r.DisplayName(), r.Root(), r.URL())
	return nil
}

func (c maincmd) build(ctx context.Context, fs *flag.FlagSet, args []string) error {
	dir := fs.String("dir", ".", "repository dir")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	r, err := repo.Open(*dir, c.repoOpts()...)
	if err != nil {
		return errors.Wrapf(err, "opening repository in %s", *dir)
	}
	res, err := r.Build(ctx)
	if err != nil {
		return errors.Wrapf(err, "building %s", r.Root())
	}
	for _, p := range res.Updated {
		fmt.Printf("U %s\n", p)
	}
	for _, p := range res.Pruned {
		fmt.Printf("D %s\n", p)
	}
	return nil
}
