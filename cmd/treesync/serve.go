package main

import (
	"context"
	stderrs "errors"
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/treesync/repo"
)

// serve publishes a repository read-only over HTTP.
// With -rebuild it also rebuilds the repository periodically.
// Builds happen on a single goroutine, never concurrently.
func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		dir     = fs.String("dir", ".", "repository dir")
		addr    = fs.String("addr", "localhost:2969", "listen address")
		rebuild = fs.Duration("rebuild", 0, "rebuild the repository at this interval (0 for never)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	r, err := repo.Open(*dir, c.repoOpts()...)
	if err != nil {
		return errors.Wrapf(err, "opening repository in %s", *dir)
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	defer lis.Close()

	srv := &http.Server{
		Handler:           c.logRequests(http.FileServer(http.Dir(r.Root()))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		c.logger.Info("serving", "root", r.Root(), "addr", lis.Addr().String())
		err := srv.Serve(lis)
		if stderrs.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if *rebuild > 0 {
		eg.Go(func() error {
			ticker := time.NewTicker(*rebuild)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := r.Build(ctx); err != nil {
						c.logger.Error("rebuilding", "root", r.Root(), "err", err)
					}
				}
			}
		})
	}

	return eg.Wait()
}

func (c maincmd) logRequests(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c.logger.Debug("request", "method", req.Method, "path", req.URL.Path, "remote", req.RemoteAddr)
		h.ServeHTTP(w, req)
	})
}
