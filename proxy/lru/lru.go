// Package lru implements a proxy that caches sync artifacts from a nested proxy
// in a least-recently-used cache.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/proxy"
)

var _ proxy.Proxy = &Proxy{}

// Proxy caches the results of SyncFile.
// The index and the tree manifest always come from the nested proxy.
// Each call to RepositoryTree evicts cached artifacts that disagree with the fresh manifest,
// so a consumer that reads the tree before fetching files never sees a stale artifact.
type Proxy struct {
	c *lru.Cache // name->treesync.SyncPayload
	p proxy.Proxy
}

// New produces a new Proxy backed by p and caching up to size artifacts.
func New(p proxy.Proxy, size int) (*Proxy, error) {
	c, err := lru.New(size)
	return &Proxy{p: p, c: c}, err
}

func (p *Proxy) RepositoryIndex(ctx context.Context) (*treesync.Index, error) {
	return p.p.RepositoryIndex(ctx)
}

func (p *Proxy) RepositoryTree(ctx context.Context) (treesync.Tree, error) {
	tree, err := p.p.RepositoryTree(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range p.c.Keys() {
		name := k.(string)
		sum, ok := tree[name]
		if !ok {
			p.c.Remove(name)
			continue
		}
		if cached, ok := p.c.Peek(name); ok && uint64(cached.(treesync.SyncPayload)) != sum {
			p.c.Remove(name)
		}
	}
	return tree, nil
}

func (p *Proxy) SyncFile(ctx context.Context, name string) (treesync.SyncPayload, error) {
	if got, ok := p.c.Get(name); ok {
		return got.(treesync.SyncPayload), nil
	}
	payload, err := p.p.SyncFile(ctx, name)
	if err != nil {
		return 0, err
	}
	p.c.Add(name, payload)
	return payload, nil
}

// Len is the number of cached artifacts.
func (p *Proxy) Len() int {
	return p.c.Len()
}
