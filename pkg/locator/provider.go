package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	goruntime "runtime"
	"sync"

	"nar-runtime/pkg/runtime"
)

// InitSymbol is the symbol a native package plugin exports
const InitSymbol = "Init"

type Provider interface {
	// LoadPackage returns package name with version not lower than minVersion
	LoadPackage(name string, minVersion int) (Package, bool, error)
}

var registry = struct {
	sync.Mutex
	packages map[string]Package
}{packages: map[string]Package{}}

// Register adds package compiled into the host. Newer versions replace older ones.
func Register(pkg Package) {
	registry.Lock()
	defer registry.Unlock()
	if existing, ok := registry.packages[pkg.Info().Name]; ok {
		if existing.Info().Version >= pkg.Info().Version {
			return
		}
	}
	registry.packages[pkg.Info().Name] = pkg
}

// Registered returns registered package with given name
func Registered(name string) (Package, bool) {
	registry.Lock()
	defer registry.Unlock()
	pkg, ok := registry.packages[name]
	return pkg, ok
}

func NewRegistryProvider() Provider {
	return &registryProvider{}
}

type registryProvider struct{}

func (r *registryProvider) LoadPackage(name string, minVersion int) (Package, bool, error) {
	pkg, ok := Registered(name)
	if !ok || pkg.Info().Version < minVersion {
		return nil, false, nil
	}
	return pkg, true, nil
}

func NewMemoryPackageProvider(packages ...Package) Provider {
	m := &memoryProvider{packages: map[string]Package{}}
	for _, pkg := range packages {
		m.packages[pkg.Info().Name] = pkg
	}
	return m
}

type memoryProvider struct {
	packages map[string]Package
}

func (m *memoryProvider) LoadPackage(name string, minVersion int) (Package, bool, error) {
	if pkg, ok := m.packages[name]; ok && pkg.Info().Version >= minVersion {
		return pkg, true, nil
	}
	return nil, false, nil
}

// NewPluginProvider looks up native packages built as Go plugins in root
func NewPluginProvider(root string) Provider {
	return &pluginProvider{root: root, loaded: map[string]Package{}}
}

type pluginProvider struct {
	root   string
	loaded map[string]Package
}

// PluginFileName returns the file name of package plugin for the given OS
func PluginFileName(goos string, name string, version int) string {
	switch goos {
	case "windows":
		return fmt.Sprintf("%s.%d.dll", name, version)
	case "darwin":
		return fmt.Sprintf("lib%s.%d.dylib", name, version)
	default:
		return fmt.Sprintf("lib%s.%d.so", name, version)
	}
}

func (p *pluginProvider) LoadPackage(name string, minVersion int) (Package, bool, error) {
	key := fmt.Sprintf("%s@%d", name, minVersion)
	if pkg, ok := p.loaded[key]; ok {
		return pkg, true, nil
	}
	path := filepath.Join(p.root, PluginFileName(goruntime.GOOS, name, minVersion))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat package `%s`: %w", path, err)
	}
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open package `%s`: %w", path, err)
	}
	sym, err := lib.Lookup(InitSymbol)
	if err != nil {
		return nil, false, fmt.Errorf("package `%s` does not export `%s`: %w", path, InitSymbol, err)
	}
	initFn, err := initFromSymbol(sym)
	if err != nil {
		return nil, false, fmt.Errorf("package `%s`: %w", path, err)
	}
	pkg := NewPackage(PackageInfo{Name: name, Version: minVersion}, initFn)
	p.loaded[key] = pkg
	return pkg, true, nil
}

func initFromSymbol(sym any) (InitFunc, error) {
	switch f := sym.(type) {
	case func(*runtime.Runtime) error:
		return f, nil
	case *func(*runtime.Runtime) error:
		return *f, nil
	case InitFunc:
		return f, nil
	case *InitFunc:
		return *f, nil
	default:
		return nil, fmt.Errorf("`%s` has unexpected type %T", InitSymbol, sym)
	}
}
