package locator

import (
	"fmt"

	"nar-runtime/pkg/runtime"
)

// InitFunc is the entry point of a native package. It registers the package
// definitions in rt and may keep rt to call back into the program.
type InitFunc func(rt *runtime.Runtime) error

type Package interface {
	Info() PackageInfo
	Init(rt *runtime.Runtime) error
}

type PackageInfo struct {
	Name    string
	Version int
}

func (i PackageInfo) String() string {
	return fmt.Sprintf("%s@%d", i.Name, i.Version)
}

func NewPackage(info PackageInfo, initFn InitFunc) Package {
	return &loadedPackage{
		info: info,
		init: initFn,
	}
}

type loadedPackage struct {
	info PackageInfo
	init InitFunc
}

func (l *loadedPackage) Info() PackageInfo {
	return l.info
}

func (l *loadedPackage) Init(rt *runtime.Runtime) error {
	if l.init == nil {
		return nil
	}
	return l.init(rt)
}
