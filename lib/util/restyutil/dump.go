// Package restyutil writes every http exchange of a resty client out for
// later inspection, fetched pages can then be replayed as test fixtures.
package restyutil

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(name string, contents []byte)
}

// DirOutput writes each exchange to its own file under a directory.
type DirOutput struct {
	directory string
}

// NewDirOutput empties (or creates) dir.
func NewDirOutput(dir string) (DirOutput, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return DirOutput{}, err
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return DirOutput{}, err
	}
	return DirOutput{directory: dir}, nil
}

func (o DirOutput) Write(name string, contents []byte) {
	err := os.WriteFile(filepath.Join(o.directory, name), contents, 0644)
	if err != nil {
		slog.Warn("failed to write http dump", "name", name, "err", err)
	}
}

func headerLines(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return out.String()
}

// Exchange renders the request line and headers followed by the response
// status, headers and body.
func Exchange(res *resty.Response) []byte {
	var out strings.Builder
	fmt.Fprintf(&out, "> %s %s\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		out.WriteString(headerLines(res.Request.RawRequest.Header))
	}
	fmt.Fprintf(&out, "\n< %s\n", res.Status())
	out.WriteString(headerLines(res.Header()))
	out.WriteString("\n")
	out.Write(res.Body())
	return []byte(out.String())
}

// fileName is "<seq>-<last path segment>.txt".
func fileName(seq uint64, link string) string {
	base := "index"
	parsed, err := url.Parse(link)
	if err == nil && path.Base(parsed.Path) != "/" && path.Base(parsed.Path) != "." {
		base = path.Base(parsed.Path)
	}
	return fmt.Sprintf("%04d-%s.txt", seq, base)
}

// Dump hooks the client so every response is written to output, a nil
// output leaves the client untouched.
func Dump(client *resty.Client, output Output) {
	if output == nil {
		return
	}
	var seq uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := atomic.AddUint64(&seq, 1)
		output.Write(fileName(n, res.Request.URL), Exchange(res))
		return nil
	})
}
