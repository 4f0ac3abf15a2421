package fetch

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// FSFetcher is the default filesystem provider named in spec.md §2, built
// on afero the way the teacher's legacy loader package abstracts the
// filesystem so tests can substitute an in-memory afero.Fs.
type FSFetcher struct {
	FS     afero.Fs
	Scheme string // defaults to "file"
}

// NewFSFetcher builds an FSFetcher over fs, defaulting Scheme to "file".
func NewFSFetcher(fs afero.Fs) *FSFetcher {
	return &FSFetcher{FS: fs, Scheme: "file"}
}

func (f *FSFetcher) scheme() string {
	if f.Scheme == "" {
		return "file"
	}
	return f.Scheme
}

// Canonicalize cleans the path component of a file:// URL. Any other
// scheme is NotUnderstood, letting an earlier/later link in the chain
// handle it.
func (f *FSFetcher) Canonicalize(_ context.Context, absURL, base string, next Fetcher) Result[string] {
	u, err := url.Parse(absURL)
	if err != nil || u.Scheme != f.scheme() {
		return next.Canonicalize(context.Background(), absURL, base, Terminus)
	}
	clean := path.Clean(u.Path)
	u.Path = clean
	return Ok(u.String())
}

// List globs matching files under base.
func (f *FSFetcher) List(_ context.Context, glob, base string, next Fetcher) Result[[]string] {
	u, err := url.Parse(base)
	if err != nil || u.Scheme != f.scheme() {
		return next.List(context.Background(), glob, base, Terminus)
	}
	matches, err := afero.Glob(f.FS, path.Join(u.Path, glob))
	if err != nil {
		return ErrResult[[]string](err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, (&url.URL{Scheme: f.scheme(), Path: m}).String())
	}
	return Ok(out)
}

// Fetch reads the file named by canonicalURL's path.
func (f *FSFetcher) Fetch(_ context.Context, canonicalURL, base string, next Fetcher) Result[FetchedSource] {
	u, err := url.Parse(canonicalURL)
	if err != nil || u.Scheme != f.scheme() {
		return next.Fetch(context.Background(), canonicalURL, base, Terminus)
	}
	file, err := f.FS.Open(u.Path)
	if err != nil {
		return ErrResult[FetchedSource](err)
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return ErrResult[FetchedSource](err)
	}
	return Ok(FetchedSource{
		Source: string(data),
		Properties: map[string]string{
			"scheme": f.scheme(),
			"ext":    strings.TrimPrefix(path.Ext(u.Path), "."),
		},
	})
}
