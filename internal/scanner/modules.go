package scanner

import (
	"context"
	"fmt"
	"os"

	"github.com/panbanda/gravedigger/internal/cache"
	"github.com/panbanda/gravedigger/internal/fileproc"
	"github.com/panbanda/gravedigger/pkg/config"
	"github.com/panbanda/gravedigger/pkg/parser"
	"github.com/panbanda/gravedigger/pkg/registry"
)

// LoadResult summarises one project scan.
type LoadResult struct {
	Registry *registry.Registry
	Modules  []string
	Skipped  *fileproc.ProcessingErrors // modules that could not be read or parsed
	Cached   int                        // modules served from the cache
}

// Loader scans a project and builds a class registry from its test modules.
type Loader struct {
	config  *config.Config
	cache   *cache.Cache
	scanner *Scanner
}

// NewLoader creates a loader. A nil cache disables caching.
func NewLoader(cfg *config.Config, c *cache.Cache) *Loader {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if c == nil {
		c = cache.Disabled()
	}
	return &Loader{
		config:  cfg,
		cache:   c,
		scanner: NewScanner(cfg),
	}
}

type moduleResult struct {
	classes []registry.ClassDescriptor
	cached  bool
}

// Load finds every test module under root, parses them concurrently and
// merges the classes into a new registry. Modules are merged in lexical
// path order so the collision policy is deterministic.
func (l *Loader) Load(ctx context.Context, root string, onProgress fileproc.ProgressFunc) (*LoadResult, error) {
	files, err := l.scanner.ScanDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", root, err)
	}
	return l.LoadFiles(ctx, files, onProgress)
}

// LoadFiles is Load for an explicit module list.
func (l *Loader) LoadFiles(ctx context.Context, files []string, onProgress fileproc.ProgressFunc) (*LoadResult, error) {
	modules, errs := fileproc.MapFiles(ctx, files, l.config.Scan.Workers, func(p *parser.Parser, path string) (moduleResult, error) {
		classes, cached, err := l.readModule(p, path)
		return moduleResult{classes: classes, cached: cached}, err
	}, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg := registry.New(registry.CollisionPolicy(l.config.Hierarchy.OnCollision))
	result := &LoadResult{Registry: reg, Skipped: errs}
	for _, m := range modules {
		if m.cached {
			result.Cached++
		}
		for _, d := range m.classes {
			if err := reg.Add(d); err != nil {
				return nil, err
			}
		}
	}
	result.Modules = files
	return result, nil
}

// Reload re-reads one module and replaces its classes in reg. Used after
// a file has been rewritten so later analysis sees the new headers.
func (l *Loader) Reload(reg *registry.Registry, path string) error {
	p := parser.New()
	defer p.Close()

	classes, _, err := l.readModule(p, path)
	if err != nil {
		return err
	}
	return reg.ReplaceFile(path, classes)
}

// readModule returns the classes of one module, from the cache when the
// file content is unchanged.
func (l *Loader) readModule(p *parser.Parser, path string) ([]registry.ClassDescriptor, bool, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	hash := cache.HashBytes(source)
	if classes, ok := l.cache.Get(path, hash); ok {
		return classes, true, nil
	}

	result, err := p.Parse(source, parser.DetectLanguage(path), path)
	if err != nil {
		return nil, false, err
	}

	infos := parser.ExtractClasses(result)
	classes := make([]registry.ClassDescriptor, 0, len(infos))
	for _, info := range infos {
		classes = append(classes, registry.ClassDescriptor{
			Name:         info.Name,
			File:         path,
			Line:         info.Line,
			Superclasses: info.Superclasses,
			Methods:      info.Methods,
		})
	}

	// A failed cache write only costs a re-parse next time.
	_ = l.cache.Set(path, hash, classes)
	return classes, false, nil
}
