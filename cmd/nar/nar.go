package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"nar-runtime/internal/pkg/config"
	"nar-runtime/pkg/bytecode"
	"nar-runtime/pkg/locator"
	"nar-runtime/pkg/runtime"
	_ "nar-runtime/pkg/stdlib"
)

const Version = "1.0.0"

const (
	exitUsage = iota + 1
	exitConfig
	exitRead
	exitDecode
	exitPackages
	exitEntry
)

func main() {
	configPath := flag.String("config", "", "configuration file path (default: nar.toml next to the program)")
	libsPath := flag.String("libs-path", "", "native packages directory (overrides config and "+config.LibsPathEnv+")")
	verbosity := flag.Int("v", -1, "log verbosity (overrides config)")
	showVersion := flag.Bool("version", false, "show version")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: nar [options] <program.binar>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("nar runtime version: %s\nbytecode format version: %d\n", Version, bytecode.BinaryFormatVersion)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(exitUsage)
	}
	programPath := flag.Arg(0)

	cfg, err := loadConfig(*configPath, programPath)
	if err != nil {
		exit(exitConfig, err)
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	if cfg.Log.File != "" {
		commonlog.Configure(cfg.Log.Verbosity, &cfg.Log.File)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
	log := commonlog.GetLogger("nar")

	data, err := os.ReadFile(programPath)
	if err != nil {
		exit(exitRead, err)
	}
	bin, err := bytecode.Decode(data)
	if err != nil {
		exit(exitDecode, fmt.Errorf("failed to load %s: %w", programPath, err))
	}
	log.Infof("loaded %s (compiler version %d)", programPath, bin.CompilerVersion)

	rt := runtime.NewRuntime(bin,
		runtime.WithAbortOnError(cfg.Runtime.AbortOnError),
		runtime.WithArenaCapacity(cfg.Runtime.ArenaCapacity))

	libs := *libsPath
	if libs == "" {
		libs = cfg.LibsPath(programPath)
	}
	l := locator.NewLocator(locator.NewRegistryProvider(), locator.NewPluginProvider(libs))
	if _, err := l.Load(rt, bin.Packages); err != nil {
		exit(exitPackages, err)
	}

	entry := bytecode.FullIdentifier(cfg.Runtime.Entry)
	if entry == "" {
		entry = bin.Entry
	}
	if entry == "" {
		exit(exitEntry, fmt.Errorf("program has no entry point"))
	}
	result, err := rt.Apply(entry)
	if err != nil {
		exit(exitEntry, err)
	}

	if value, ok := rt.Metadata(runtime.ProgramExecutorKey); ok {
		executor, ok := value.(runtime.ProgramExecutor)
		if !ok {
			exit(exitEntry, fmt.Errorf("`%s` has unexpected type %T", runtime.ProgramExecutorKey, value))
		}
		if err := executor(rt, result); err != nil {
			exit(exitEntry, err)
		}
		return
	}
	s, err := rt.Format(result)
	if err != nil {
		exit(exitEntry, err)
	}
	fmt.Println(s)
}

func loadConfig(path string, programPath string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	path = filepath.Join(filepath.Dir(programPath), config.FileName)
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}
	return config.Load(path)
}

func exit(code int, err error) {
	fmt.Fprintf(os.Stderr, "nar: %v\n", err)
	os.Exit(code)
}
