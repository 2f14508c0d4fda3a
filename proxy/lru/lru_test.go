package lru

import (
	"context"
	"testing"

	"github.com/bobg/treesync"
)

type counting struct {
	tree  treesync.Tree
	calls map[string]int
}

func (c *counting) RepositoryIndex(context.Context) (*treesync.Index, error) {
	return &treesync.Index{}, nil
}

func (c *counting) RepositoryTree(context.Context) (treesync.Tree, error) {
	return c.tree.Clone(), nil
}

func (c *counting) SyncFile(_ context.Context, name string) (treesync.SyncPayload, error) {
	c.calls[name]++
	return treesync.SyncPayload(c.tree[name]), nil
}

func TestProxy(t *testing.T) {
	ctx := context.Background()
	nested := &counting{
		tree:  treesync.Tree{"lorem": 1, "ipsum": 2, "dolor": 3},
		calls: make(map[string]int),
	}
	p, err := New(nested, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := p.SyncFile(ctx, "lorem")
		if err != nil {
			t.Fatal(err)
		}
		if got != 1 {
			t.Errorf("got %d, want 1", got)
		}
	}
	if nested.calls["lorem"] != 1 {
		t.Errorf("nested proxy called %d times, want 1", nested.calls["lorem"])
	}

	if _, err = p.SyncFile(ctx, "ipsum"); err != nil {
		t.Fatal(err)
	}
	if _, err = p.SyncFile(ctx, "dolor"); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 2 {
		t.Errorf("got %d cached, want 2", p.Len())
	}

	// lorem was evicted as least recently used.
	if _, err = p.SyncFile(ctx, "lorem"); err != nil {
		t.Fatal(err)
	}
	if nested.calls["lorem"] != 2 {
		t.Errorf("nested proxy called %d times for lorem, want 2", nested.calls["lorem"])
	}
}

func TestTreeInvalidates(t *testing.T) {
	ctx := context.Background()
	nested := &counting{
		tree:  treesync.Tree{"lorem": 1, "ipsum": 2},
		calls: make(map[string]int),
	}
	p, err := New(nested, 10)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"lorem", "ipsum"} {
		if _, err = p.SyncFile(ctx, name); err != nil {
			t.Fatal(err)
		}
	}

	nested.tree = treesync.Tree{"lorem": 10}
	if _, err = p.RepositoryTree(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Errorf("got %d cached after tree change, want 0", p.Len())
	}

	got, err := p.SyncFile(ctx, "lorem")
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}
