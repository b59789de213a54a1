package evaluator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/swarm-lang/swarm/internal/ast"
	"github.com/swarm-lang/swarm/internal/swarmerr"
)

// resource is anything a with statement can acquire from the prologue and
// must release when its block exits (spec §4.12's WITH).
type resource interface {
	Close(ctx context.Context) error
}

// resourceTable hands out opaque string handles for open resources. It is
// shared (by pointer) across every frame an Interpreter spawns for a
// function call, since a resource opened by one frame may be closed by a
// with statement running in a different one only if the handle node itself
// escapes — the common case is open/close within a single frame, but the
// table does not assume that.
type resourceTable struct {
	mu   sync.Mutex
	byID map[string]resource
	next int
}

func newResourceTable() *resourceTable {
	return &resourceTable{byID: make(map[string]resource)}
}

func (rt *resourceTable) open(r resource) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.next++
	id := fmt.Sprintf("resource#%d", rt.next)
	rt.byID[id] = r
	return id
}

func (rt *resourceTable) close(ctx context.Context, id string) error {
	rt.mu.Lock()
	r, ok := rt.byID[id]
	if ok {
		delete(rt.byID, id)
	}
	rt.mu.Unlock()
	if !ok {
		return nil
	}
	return r.Close(ctx)
}

// closeResource releases the resource a handle value names. handle is
// whatever a prologue HostFunc like file returned from with's Resource
// expression; a handle that isn't a resource (e.g. with's expression wasn't
// actually a resource-producing call) is a no-op, not an error, since a
// malformed with is caught by static analysis, not at this layer.
func (i *Interpreter) closeResource(ctx context.Context, handle *ast.Node) error {
	if handle == nil || handle.Tag != ast.StringLiteral {
		return nil
	}
	return i.resources.close(ctx, handle.StringValue)
}

// fileResource wraps an *os.File so it satisfies resource.
type fileResource struct {
	f *os.File
}

func (r *fileResource) Close(context.Context) error { return r.f.Close() }

// defaultPrologue is the built-in binding set predeclared by
// analyzer.RegisterPrologue. Each entry here must have a matching
// declaration there, and vice versa.
func defaultPrologue() map[string]HostFunc {
	return map[string]HostFunc{
		"len":   hostLen,
		"print": hostPrint,
		"file":  hostFile,
		"clock": hostClock,
	}
}

func hostLen(_ context.Context, _ *Interpreter, args []*ast.Node) (*ast.Node, error) {
	return numberLit(float64(len(args[0].Elements))), nil
}

func hostPrint(_ context.Context, i *Interpreter, args []*ast.Node) (*ast.Node, error) {
	fmt.Fprintln(i.stdout(), args[0].StringValue)
	return nil, nil
}

func hostFile(_ context.Context, i *Interpreter, args []*ast.Node) (*ast.Node, error) {
	path := args[0].StringValue
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, swarmerr.New(swarmerr.Runtime, "open %s: %v", path, err)
	}
	id := i.resources.open(&fileResource{f: f})
	return stringLit(id), nil
}

func hostClock(_ context.Context, _ *Interpreter, _ []*ast.Node) (*ast.Node, error) {
	return numberLit(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}

// stdout is overridable per Interpreter for tests; nil means os.Stdout.
func (i *Interpreter) stdout() io.Writer {
	if i.out != nil {
		return i.out
	}
	return os.Stdout
}
