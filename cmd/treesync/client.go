package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/treesync/client"
)

func (c maincmd) clientOpts() []client.Option {
	return []client.Option{client.WithConfig(c.conf), client.WithLogger(c.logger)}
}

func (c maincmd) client(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		dir       = fs.String("dir", ".", "client dir")
		url       = fs.String("url", "", "repository URL")
		overwrite = fs.Bool("overwrite", false, "replace an existing client's repository URL")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *url == "" {
		return errors.New("must supply -url")
	}

	cl, err := client.Create(*dir, *url, *overwrite, c.clientOpts()...)
	if err != nil {
		return errors.Wrapf(err, "creating client in %s", *dir)
	}
	fmt.Printf("client at %s pulls from %s\n", cl.Root(), cl.RemoteURL())
	return nil
}

func (c maincmd) pull(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		dir    = fs.String("dir", ".", "client dir")
		cache  = fs.Int("cache", 0, "cache up to this many sync files in memory")
		dryRun = fs.Bool("n", false, "show what would be pulled without pulling")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	opts := c.clientOpts()
	if *cache > 0 {
		opts = append(opts, client.WithCache(*cache))
	}

	cl, err := client.Open(*dir, opts...)
	if err != nil {
		return errors.Wrapf(err, "opening client in %s", *dir)
	}

	var plan *client.Plan
	if *dryRun {
		plan, err = cl.Plan(ctx)
	} else {
		plan, err = cl.Pull(ctx)
	}
	if err != nil {
		return errors.Wrapf(err, "pulling from %s", cl.RemoteURL())
	}

	for _, name := range plan.Fetch {
		fmt.Printf("U %s\n", name)
	}
	for _, name := range plan.Remove {
		fmt.Printf("D %s\n", name)
	}
	return nil
}
