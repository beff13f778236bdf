package locator

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"nar-runtime/pkg/bytecode"
	"nar-runtime/pkg/runtime"
)

var ErrPackageNotFound = errors.New("package not found")

func NewLocator(provider ...Provider) Locator {
	return &locator{providers: provider}
}

type Locator interface {
	FindPackage(name string, minVersion int) (Package, bool, error)
	// Load initializes every package required by the program of rt in the order
	// of refs, each package once with the highest version asked for
	Load(rt *runtime.Runtime, refs []bytecode.PackageRef) ([]Package, error)
}

type locator struct {
	providers []Provider
}

func (l *locator) FindPackage(name string, minVersion int) (Package, bool, error) {
	for _, provider := range l.providers {
		pkg, ok, err := provider.LoadPackage(name, minVersion)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return pkg, true, nil
		}
	}
	return nil, false, nil
}

func (l *locator) Load(rt *runtime.Runtime, refs []bytecode.PackageRef) ([]Package, error) {
	var required []PackageInfo
	for _, ref := range refs {
		name := string(ref.Name)
		version := int(ref.Version)
		if i := slices.IndexFunc(required, func(info PackageInfo) bool { return info.Name == name }); i >= 0 {
			required[i].Version = max(required[i].Version, version)
			continue
		}
		required = append(required, PackageInfo{Name: name, Version: version})
	}

	log := rt.Logger()
	packages := make([]Package, 0, len(required))
	for _, info := range required {
		pkg, ok, err := l.FindPackage(info.Name, info.Version)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: `%s` with version %d", ErrPackageNotFound, info.Name, info.Version)
		}
		if err := pkg.Init(rt); err != nil {
			return nil, fmt.Errorf("failed to initialize package `%s`: %w", pkg.Info(), err)
		}
		log.Debugf("package `%s` initialized", pkg.Info())
		packages = append(packages, pkg)
	}
	return packages, nil
}
