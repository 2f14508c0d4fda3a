package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/metadata"
	"github.com/bobg/treesync/repo"
)

func TestNew(t *testing.T) {
	cases := []struct {
		url     string
		wantWeb bool
		wantErr error
	}{
		{url: "http://x", wantWeb: true},
		{url: "https://x", wantWeb: true},
		{url: "file://x"},
		{url: "file:///srv/x"},
		{url: "ftp://x", wantErr: treesync.ErrUnsupportedScheme},
		{url: "://x", wantErr: treesync.ErrInvalidURL},
		{url: "file:repo/dir", wantErr: treesync.ErrInvalidURL},
		{url: "file://", wantErr: treesync.ErrInvalidURL},
		{url: "file:", wantErr: treesync.ErrInvalidURL},
	}

	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			p, err := New(c.url)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Errorf("got %v, want %v", err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			switch p.(type) {
			case *Web:
				if !c.wantWeb {
					t.Error("got a web proxy, want local")
				}
			case *Local:
				if c.wantWeb {
					t.Error("got a local proxy, want web")
				}
			default:
				t.Errorf("got unexpected proxy type %T", p)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	cases := []struct {
		base     string
		segments []string
		want     string
	}{
		{"http://foo.com/bar", nil, "http://foo.com/bar"},
		{"http://foo.com/bar", []string{"baz"}, "http://foo.com/bar/baz"},
		{"http://foo.com/bar/", []string{"baz", "qux"}, "http://foo.com/bar/baz/qux"},
		{"http://foo.com", []string{".treesync", "index"}, "http://foo.com/.treesync/index"},
	}
	for _, c := range cases {
		if got := BuildURL(c.base, c.segments...); got != c.want {
			t.Errorf("BuildURL(%q, %q) = %q, want %q", c.base, c.segments, got, c.want)
		}
	}
}

func TestLocalPath(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		url, want string
	}{
		{"file:///srv/repo", "/srv/repo"},
		{"file://repos/mods", filepath.Join(wd, "repos", "mods")},
		{"file://repo", filepath.Join(wd, "repo")},
	}
	for _, c := range cases {
		u, err := url.Parse(c.url)
		if err != nil {
			t.Fatal(err)
		}
		got, err := LocalPath(u)
		if err != nil {
			t.Fatal(err)
		}
		if got != filepath.FromSlash(c.want) {
			t.Errorf("LocalPath(%s) = %s, want %s", c.url, got, c.want)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("LocalPath(%s) = %s, not absolute", c.url, got)
		}
	}

	for _, bad := range []string{"file:repo/dir", "file://", "file:", "file:?x=1"} {
		u, err := url.Parse(bad)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := LocalPath(u); !errors.Is(err, treesync.ErrInvalidURL) {
			t.Errorf("LocalPath(%s): got %v, want ErrInvalidURL", bad, err)
		}
	}
}

// roundTripper answers every request with a fixed response and records the requested URLs.
type roundTripper struct {
	status string
	code   int
	body   []byte
	urls   []string
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.urls = append(rt.urls, req.URL.String())
	return &http.Response{
		Status:     rt.status,
		StatusCode: rt.code,
		Body:       io.NopCloser(bytes.NewReader(rt.body)),
		Request:    req,
	}, nil
}

func TestWebSyncFile(t *testing.T) {
	body, err := metadata.Marshal(treesync.SyncPayload(12345))
	if err != nil {
		t.Fatal(err)
	}
	rt := &roundTripper{status: "200 OK", code: 200, body: body}

	p := NewWeb("http://foo.com/bar/repo", WithHTTPClient(&http.Client{Transport: rt}))
	got, err := p.SyncFile(context.Background(), "lorem")
	if err != nil {
		t.Fatal(err)
	}
	if got != 12345 {
		t.Errorf("got payload %d, want 12345", got)
	}
	if diff := cmp.Diff([]string{"http://foo.com/bar/repo/lorem.tsync"}, rt.urls); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestWebFailure(t *testing.T) {
	rt := &roundTripper{status: "400 bad", code: 400}
	p := NewWeb("http://foo.com/bar/repo", WithHTTPClient(&http.Client{Transport: rt}))

	_, err := p.SyncFile(context.Background(), "lorem")
	var herr *treesync.HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("got %v, want an HTTPError", err)
	}
	if herr.Reason != "bad" {
		t.Errorf("got reason %q, want %q", herr.Reason, "bad")
	}
	if herr.StatusCode != 400 {
		t.Errorf("got status %d, want 400", herr.StatusCode)
	}

	_, err = p.RepositoryIndex(context.Background())
	if !errors.As(err, &herr) {
		t.Errorf("got %v from RepositoryIndex, want an HTTPError", err)
	}
}

func TestSyncFileBadName(t *testing.T) {
	rt := &roundTripper{status: "200 OK", code: 200}
	p := NewWeb("http://foo.com/repo", WithHTTPClient(&http.Client{Transport: rt}))
	for _, name := range []string{"", "/etc/passwd", "../outside", "a/../../outside"} {
		if _, err := p.SyncFile(context.Background(), name); err == nil {
			t.Errorf("got no error for %q", name)
		}
	}
	if len(rt.urls) > 0 {
		t.Errorf("bad names caused requests: %v", rt.urls)
	}
}

func buildRepo(t *testing.T) (string, *repo.Repository) {
	t.Helper()

	root := t.TempDir()
	for name, content := range map[string]string{
		"lorem":       "Lorem ipsum",
		"a/dolor":     "dolor sit amet",
		"a/b/with sp": "consectetur",
	} {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	r, err := repo.Initialize(root, "Lorem", "http://foo.com/repo", false, repo.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = r.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	return root, r
}

// checkProxy reads everything r publishes through p.
func checkProxy(t *testing.T, p Proxy, r *repo.Repository) {
	t.Helper()
	ctx := context.Background()

	idx, err := p.RepositoryIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if idx.DisplayName != "Lorem" || idx.URL != "http://foo.com/repo" || idx.SyncSuffix != ".tsync" {
		t.Errorf("got index %+v", idx)
	}

	tree, err := p.RepositoryTree(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r.Tree(), tree); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	for name, sum := range tree {
		got, err := p.SyncFile(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		if uint64(got) != sum {
			t.Errorf("%s: got payload %d, want %d", name, got, sum)
		}
	}

	_, err = p.SyncFile(ctx, "nonexistent")
	if err == nil {
		t.Error("got no error for a nonexistent sync file")
	}
}

func TestWebEndToEnd(t *testing.T) {
	root, r := buildRepo(t)

	srv := httptest.NewServer(http.FileServer(http.Dir(root)))
	defer srv.Close()

	p, err := New(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	checkProxy(t, p, r)

	_, err = p.SyncFile(context.Background(), "nonexistent")
	var herr *treesync.HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusNotFound {
		t.Errorf("got %v, want a 404 HTTPError", err)
	}
}

func TestLocalEndToEnd(t *testing.T) {
	root, r := buildRepo(t)

	p, err := New("file://" + filepath.ToSlash(root))
	if err != nil {
		t.Fatal(err)
	}
	if got := p.(*Local).Root(); got != root {
		t.Errorf("got root %s, want %s", got, root)
	}
	checkProxy(t, p, r)

	_, err = p.SyncFile(context.Background(), "nonexistent")
	if !errors.Is(err, treesync.ErrNotAFile) {
		t.Errorf("got %v, want ErrNotAFile", err)
	}
}
