package asset

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Loaded is emitted on the bus once the asset behind Handle is stored,
// after the first load and after every reload that changed content.
type Loaded[T any] struct {
	Handle Handle[T]
	Path   string
}

// LoadFailed is emitted when a background load gives up.
type LoadFailed struct {
	Path string
	Err  error
}

// LoadContext is handed to loaders.
type LoadContext struct {
	Path    string
	Charset string
}

// Text converts data from the configured charset to UTF-8.
func (lc LoadContext) Text(data []byte) ([]byte, error) {
	return DecodeText(data, lc.Charset)
}

// LoaderFunc decodes raw content into a T.
type LoaderFunc[T any] func(lc LoadContext, data []byte) (T, error)

type loader struct {
	typ    reflect.Type
	decode func(LoadContext, []byte) (any, error)
}

type pathKey struct {
	path string
	typ  reflect.Type
}

type tracked struct {
	id     uuid.UUID
	digest [blake2b.Size256]byte
	loaded bool
}

// Options configures a Server.
type Options struct {
	Source  Source
	Charset string
	Workers int
}

// Server reads, decodes and stores assets. Reads and decoding happen on
// background goroutines; results reach the world in Process.
type Server struct {
	world   *ecs.World
	bus     *event.Bus
	source  Source
	charset string
	workers int
	sem     chan struct{}
	log     *zap.Logger

	mu          sync.Mutex
	loaders     map[string]loader
	paths       map[pathKey]*tracked
	completions []func(*ecs.World)
	waiting     []func(*ecs.World) bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server bound to w. w must carry the app's event bus.
func NewServer(w *ecs.World, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Source == nil {
		opts.Source = FileSource{Root: "assets"}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		world:   w,
		bus:     ecs.MustResource[event.Bus](w),
		source:  opts.Source,
		charset: opts.Charset,
		workers: opts.Workers,
		sem:     make(chan struct{}, opts.Workers),
		log:     log,
		loaders: make(map[string]loader),
		paths:   make(map[pathKey]*tracked),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterLoader decodes files with the given extensions into T. A later
// registration for the same extension replaces the earlier one.
func RegisterLoader[T any](s *Server, exts []string, fn LoaderFunc[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ld := loader{
		typ: reflect.TypeFor[T](),
		decode: func(lc LoadContext, data []byte) (any, error) {
			return fn(lc, data)
		},
	}
	for _, ext := range exts {
		s.loaders[strings.ToLower(strings.TrimPrefix(ext, "."))] = ld
	}
}

func extOf(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// track returns the entry for (p, T), creating it if needed. It panics if
// no loader for p produces T.
func track[T any](s *Server, p string) (*tracked, loader, bool) {
	typ := reflect.TypeFor[T]()
	s.mu.Lock()
	ld, ok := s.loaders[extOf(p)]
	if !ok || ld.typ != typ {
		s.mu.Unlock()
		panic(fmt.Sprintf("asset: no loader for %q produces %s", p, typ))
	}
	key := pathKey{path: p, typ: typ}
	tr, exists := s.paths[key]
	if !exists {
		tr = &tracked{id: uuid.New()}
		s.paths[key] = tr
	}
	s.mu.Unlock()
	return tr, ld, !exists
}

// Load starts loading p as a T and returns its handle at once. Loading the
// same path twice returns the same handle while the first load is pending or
// has succeeded. A failed load is forgotten: its handle stays empty and the
// next Load of p starts over with a new handle. It panics if no loader for
// the extension of p produces T.
func Load[T any](s *Server, p string) Handle[T] {
	tr, ld, fresh := track[T](s, p)
	h := Handle[T]{id: tr.id}
	if !fresh {
		return h
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := load(s.ctx, s, h, p, tr, ld, false); err != nil {
			s.untrack(pathKey{path: p, typ: reflect.TypeFor[T]()}, tr)
			s.fail(p, err)
		}
	}()
	return h
}

// LoadFolder loads every file below dir that a loader decodes into T, with
// at most Options.Workers reads in flight. It returns once every file is
// decoded; the assets become visible at the next Process.
func LoadFolder[T any](ctx context.Context, s *Server, dir string) ([]Handle[T], error) {
	lister, ok := s.source.(Lister)
	if !ok {
		return nil, fmt.Errorf("load folder %s: source %T cannot list", dir, s.source)
	}
	files, err := lister.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load folder %s: %w", dir, err)
	}

	typ := reflect.TypeFor[T]()
	s.mu.Lock()
	matching := files[:0:0]
	for _, f := range files {
		if ld, ok := s.loaders[extOf(f)]; ok && ld.typ == typ {
			matching = append(matching, f)
		}
	}
	s.mu.Unlock()

	handles := make([]Handle[T], len(matching))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, f := range matching {
		tr, ld, _ := track[T](s, f)
		handles[i] = Handle[T]{id: tr.id}
		g.Go(func() error {
			_, err := load(gctx, s, handles[i], f, tr, ld, true)
			if err != nil {
				s.untrack(pathKey{path: f, typ: typ}, tr)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load folder %s: %w", dir, err)
	}
	return handles, nil
}

// Reload re-reads p and, if its content changed, decodes and stores it
// again under the same handle. It reports whether the content changed.
func Reload[T any](ctx context.Context, s *Server, p string) (bool, error) {
	s.mu.Lock()
	tr, ok := s.paths[pathKey{path: p, typ: reflect.TypeFor[T]()}]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("reload %s: %w", p, ErrNotFound)
	}
	_, ld, _ := track[T](s, p)
	return load(ctx, s, Handle[T]{id: tr.id}, p, tr, ld, true)
}

// load reads and decodes p, then queues its insertion into Assets[T].
// With skipUnchanged, content whose digest matches the last successful
// load is not decoded again.
func load[T any](ctx context.Context, s *Server, h Handle[T], p string, tr *tracked, ld loader, skipUnchanged bool) (bool, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return false, ctx.Err()
	}

	data, err := s.source.Read(ctx, p)
	if err != nil {
		return false, err
	}
	digest := blake2b.Sum256(data)

	s.mu.Lock()
	unchanged := tr.loaded && tr.digest == digest
	s.mu.Unlock()
	if skipUnchanged && unchanged {
		s.log.Debug("asset unchanged", zap.String("path", p))
		return false, nil
	}

	v, err := ld.decode(LoadContext{Path: p, Charset: s.charset}, data)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", p, err)
	}
	asset := v.(T)

	s.mu.Lock()
	tr.digest = digest
	tr.loaded = true
	s.completions = append(s.completions, func(w *ecs.World) {
		Store[T](w).Insert(h, asset)
		event.Emit(s.bus, Loaded[T]{Handle: h, Path: p})
	})
	s.mu.Unlock()

	s.log.Debug("asset decoded", zap.String("path", p), zap.Int("bytes", len(data)))
	return true, nil
}

// untrack drops the entry for key if it is still tr and never loaded.
func (s *Server) untrack(key pathKey, tr *tracked) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paths[key] == tr && !tr.loaded {
		delete(s.paths, key)
	}
}

func (s *Server) fail(p string, err error) {
	s.log.Warn("asset load failed", zap.String("path", p), zap.Error(err))
	event.Emit(s.bus, LoadFailed{Path: p, Err: err})
}

// Process stores every asset decoded since the previous call. Cycle
// goroutine only.
func (s *Server) Process(w *ecs.World) {
	s.mu.Lock()
	batch := s.completions
	s.completions = nil
	s.mu.Unlock()
	for _, apply := range batch {
		apply(w)
	}
}

// Digest returns the content digest of the last successful load of p as T.
func Digest[T any](s *Server, p string) ([blake2b.Size256]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.paths[pathKey{path: p, typ: reflect.TypeFor[T]()}]
	if !ok || !tr.loaded {
		return [blake2b.Size256]byte{}, false
	}
	return tr.digest, true
}

// Wait blocks until every background load started by Load has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Close cancels background loads and waits for them.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}
