package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoDump is returned when no listed version carries an articles dump.
var ErrNoDump = errors.New("no usable dump found")

// Dump is an articles dump published on the mirror.
type Dump struct {
	Version string
	Name    string
	URL     string
}

// DumpName is the file name of the multistream articles dump of a version.
func DumpName(version string) string {
	return fmt.Sprintf("jawiki-%s-pages-articles-multistream.xml.bz2", version)
}

// Versions lists the dump versions linked from the mirror index, newest first.
func Versions(ctx context.Context, mirror string, opts *Options) ([]string, error) {
	doc, err := document(ctx, mirror, opts)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var versions []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, ".") || strings.HasPrefix(href, "latest") {
			return
		}
		v := strings.TrimSuffix(href, "/")
		if v == "" || strings.Contains(v, "/") || seen[v] {
			return
		}
		seen[v] = true
		versions = append(versions, v)
	})
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

// Discover finds the dump to download. With version "latest" or empty it
// walks the versions newest first and returns the first whose page links the
// articles dump; otherwise only the named version is considered.
func Discover(ctx context.Context, mirror, version string, opts *Options) (*Dump, error) {
	versions, err := Versions(ctx, mirror, opts)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(mirror)
	if err != nil {
		return nil, &Error{URL: mirror, Message: "invalid URL", Cause: err}
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	for _, v := range versions {
		if version != "" && version != "latest" && v != version {
			continue
		}
		page := base.ResolveReference(&url.URL{Path: v + "/"})
		d, err := dumpOnPage(ctx, page, v, opts)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	if version != "" && version != "latest" {
		return nil, fmt.Errorf("%w: version %s", ErrNoDump, version)
	}
	return nil, ErrNoDump
}

// dumpOnPage returns nil when the version page does not link the dump,
// which happens while a dump run is still in progress.
func dumpOnPage(ctx context.Context, page *url.URL, version string, opts *Options) (*Dump, error) {
	doc, err := document(ctx, page.String(), opts)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) && fe.Cause == nil {
			return nil, nil
		}
		return nil, err
	}

	name := DumpName(version)
	var found *Dump
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != name {
			return true
		}
		href, _ := a.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = &Dump{Version: version, Name: name, URL: page.ResolveReference(ref).String()}
		return false
	})
	return found, nil
}

func document(ctx context.Context, urlStr string, opts *Options) (*goquery.Document, error) {
	res, err := URL(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to parse HTML", Cause: err}
	}
	return doc, nil
}

// Download streams urlStr into dest. The body is written to a temporary file
// next to dest and renamed into place, so dest is either complete or absent.
// It returns false without a request when dest already exists. Progress, when
// set, receives the bytes written so far and the expected total (-1 if unknown).
func Download(ctx context.Context, urlStr, dest string, opts *Options, progress func(written, total int64)) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		return false, nil
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	resp, err := get(ctx, urlStr, opts)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return false, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, &Error{URL: urlStr, Message: "failed to create destination directory", Cause: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return false, &Error{URL: urlStr, Message: "failed to create temp file", Cause: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	defer func() { _ = tmp.Close() }()

	var w io.Writer = tmp
	if progress != nil {
		w = &progressWriter{w: tmp, total: resp.ContentLength, fn: progress}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return false, &Error{URL: urlStr, Message: "download interrupted", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return false, &Error{URL: urlStr, Message: "failed to close temp file", Cause: err}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return false, &Error{URL: urlStr, Message: "failed to move download into place", Cause: err}
	}
	return true, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      func(written, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}
