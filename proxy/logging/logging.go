// Package logging implements a proxy that delegates everything to a nested proxy,
// logging operations as they happen.
package logging

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/proxy"
)

var _ proxy.Proxy = &Proxy{}

type Proxy struct {
	p      proxy.Proxy
	logger *log.Logger
}

// New wraps p.
// If logger is nil,
// log.Default() is used.
func New(p proxy.Proxy, logger *log.Logger) *Proxy {
	if logger == nil {
		logger = log.Default()
	}
	return &Proxy{p: p, logger: logger}
}

func (p *Proxy) RepositoryIndex(ctx context.Context) (*treesync.Index, error) {
	idx, err := p.p.RepositoryIndex(ctx)
	if err != nil {
		p.logger.Error("RepositoryIndex", "err", err)
	} else {
		p.logger.Debug("RepositoryIndex", "name", idx.DisplayName, "version", idx.ConfigVersion)
	}
	return idx, err
}

func (p *Proxy) RepositoryTree(ctx context.Context) (treesync.Tree, error) {
	tree, err := p.p.RepositoryTree(ctx)
	if err != nil {
		p.logger.Error("RepositoryTree", "err", err)
	} else {
		p.logger.Debug("RepositoryTree", "entries", len(tree))
	}
	return tree, err
}

func (p *Proxy) SyncFile(ctx context.Context, name string) (treesync.SyncPayload, error) {
	payload, err := p.p.SyncFile(ctx, name)
	if err != nil {
		p.logger.Error("SyncFile", "name", name, "err", err)
	} else {
		p.logger.Debug("SyncFile", "name", name, "payload", uint64(payload))
	}
	return payload, err
}
