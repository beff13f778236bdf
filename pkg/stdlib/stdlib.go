// Package stdlib is the native part of Nar.Base compiled into the host.
// Importing it registers the package in the locator registry.
package stdlib

import (
	"nar-runtime/pkg/locator"
	"nar-runtime/pkg/runtime"
)

const (
	Name    = "Nar.Base"
	Version = 100
)

func init() {
	locator.Register(locator.NewPackage(locator.PackageInfo{Name: Name, Version: Version}, Init))
}

type def struct {
	name  runtime.DefName
	fn    any
	arity int
}

// Init registers every Nar.Base native definition in rt
func Init(rt *runtime.Runtime) error {
	modules := map[runtime.ModuleName][]def{
		"Nar.Base.Basics": basics(rt),
		"Nar.Base.String": stringDefs(rt),
		"Nar.Base.Char":   charDefs(rt),
		"Nar.Base.List":   listDefs(rt),
		"Nar.Base.Debug":  debugDefs(rt),
	}
	for module, defs := range modules {
		for _, d := range defs {
			if err := rt.RegisterDef(module, d.name, d.fn, d.arity); err != nil {
				return err
			}
		}
	}
	return nil
}
