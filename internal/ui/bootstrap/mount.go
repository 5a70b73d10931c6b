// Package bootstrap mounts the root UI tree into the page shell.
//
// Mounting happens once, when the server starts. A shell without the mount
// point is a broken deployment, so the error is returned to the caller and
// the server refuses to start.
package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MountPointID is the id of the element the UI tree is rendered into.
const MountPointID = "app"

var (
	// ErrMountPointMissing means the shell has no element with the mount id.
	ErrMountPointMissing = errors.New("mount point missing")
	// ErrMountPointAmbiguous means more than one element carries the mount id.
	ErrMountPointAmbiguous = errors.New("mount point ambiguous")
)

// App is a live mounted application.
type App struct {
	mu       sync.RWMutex
	doc      *html.Node
	target   *html.Node
	mounted  []*html.Node
	rendered []byte
}

// LoadShell parses the named HTML document from fsys.
func LoadShell(fsys fs.FS, name string) (*html.Node, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open page shell: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page shell %s: %w", name, err)
	}
	return doc, nil
}

// Mount renders root into the element of doc whose id is id. When the
// element is missing the document is left untouched.
func Mount(ctx context.Context, doc *html.Node, id string, root templ.Component) (*App, error) {
	matches := findByID(doc, id)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: no element with id %q", ErrMountPointMissing, id)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d elements with id %q", ErrMountPointAmbiguous, len(matches), id)
	}
	target := matches[0]

	var buf bytes.Buffer
	if err := root.Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to render root component: %w", err)
	}

	parent := &html.Node{Type: html.ElementNode, Data: target.Data, DataAtom: target.DataAtom}
	if parent.DataAtom == 0 {
		parent.DataAtom = atom.Div
		parent.Data = "div"
	}
	nodes, err := html.ParseFragment(&buf, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered tree: %w", err)
	}

	for _, n := range nodes {
		target.AppendChild(n)
	}

	app := &App{doc: doc, target: target, mounted: nodes}
	if err := app.render(); err != nil {
		app.Unmount()
		return nil, err
	}
	return app, nil
}

// HTML returns the mounted document.
func (a *App) HTML() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rendered
}

// Target returns the mount point element.
func (a *App) Target() *html.Node {
	return a.target
}

// Unmount removes the mounted tree from the document.
func (a *App) Unmount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, n := range a.mounted {
		if n.Parent == a.target {
			a.target.RemoveChild(n)
		}
	}
	a.mounted = nil
	a.rendered = nil
}

// Mounted reports whether the tree is still attached.
func (a *App) Mounted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.mounted) > 0
}

func (a *App) render() error {
	var buf bytes.Buffer
	if err := html.Render(&buf, a.doc); err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	a.mu.Lock()
	a.rendered = buf.Bytes()
	a.mu.Unlock()
	return nil
}

func findByID(n *html.Node, id string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					out = append(out, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
