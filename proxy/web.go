package proxy

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bobg/treesync"
	"github.com/bobg/treesync/metadata"
)

var _ Proxy = &Web{}

// Web is a Proxy for a repository served over HTTP or HTTPS.
// Each call is a single GET request.
type Web struct {
	base   string
	conf   treesync.Config
	client *http.Client
}

// NewWeb produces a Web proxy for the repository whose root is at baseURL.
func NewWeb(baseURL string, opts ...Option) *Web {
	o := makeOptions(opts)
	return &Web{
		base:   baseURL,
		conf:   o.conf,
		client: o.client,
	}
}

// RepositoryIndex implements Proxy.RepositoryIndex.
func (w *Web) RepositoryIndex(ctx context.Context) (*treesync.Index, error) {
	var idx treesync.Index
	err := w.get(ctx, BuildURL(w.base, w.conf.IndexDir, w.conf.IndexFile), &idx)
	if err != nil {
		return nil, errors.Wrap(err, "getting repository index")
	}
	return &idx, nil
}

// RepositoryTree implements Proxy.RepositoryTree.
func (w *Web) RepositoryTree(ctx context.Context) (treesync.Tree, error) {
	var tree treesync.Tree
	err := w.get(ctx, BuildURL(w.base, w.conf.IndexDir, w.conf.TreeFile), &tree)
	if err != nil {
		return nil, errors.Wrap(err, "getting tree manifest")
	}
	if tree == nil {
		tree = make(treesync.Tree)
	}
	return tree, nil
}

// SyncFile implements Proxy.SyncFile.
func (w *Web) SyncFile(ctx context.Context, name string) (treesync.SyncPayload, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}

	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	segments[len(segments)-1] += w.conf.SyncSuffix

	var payload treesync.SyncPayload
	err := w.get(ctx, BuildURL(w.base, segments...), &payload)
	return payload, errors.Wrapf(err, "getting sync file for %s", name)
}

func (w *Web) get(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "constructing GET request for %s", u)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "sending GET to %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &treesync.HTTPError{
			URL:        u,
			StatusCode: resp.StatusCode,
			Reason:     reason(resp),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading response body from %s", u)
	}
	return errors.Wrapf(metadata.Unmarshal(body, v), "decoding response body from %s", u)
}

// reason extracts the reason phrase from the status line,
// e.g. "Not Found" from "404 Not Found".
func reason(resp *http.Response) string {
	r := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	r = strings.TrimSpace(r)
	if r == "" {
		r = http.StatusText(resp.StatusCode)
	}
	return r
}

// BuildURL appends path segments to baseURL,
// putting exactly one slash before each segment.
func BuildURL(baseURL string, segments ...string) string {
	res := baseURL
	for _, seg := range segments {
		if !strings.HasSuffix(res, "/") {
			res += "/"
		}
		res += seg
	}
	return res
}
