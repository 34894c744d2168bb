// Package config resolves graycon's run configuration from defaults, an
// optional JSON-with-comments config file, and CLI overrides, then
// validates the result (spec.md §6; original_source
// cli_compat/fuzzer.cpp/.hpp).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// ConfigFileName is the default project config file name.
const ConfigFileName = ".graycon.json"

// Config holds the resolved options for one fuzzing run.
type Config struct {
	// Target is the path to the instrumented tracer binary under test.
	Target string `json:"target,omitempty"`
	// TargetArgs are the arguments passed to Target, verbatim: "@@" is not
	// substituted, and the seed always reaches Target on its stdin.
	TargetArgs []string `json:"target_args,omitempty"`
	// NativeTarget is the uninstrumented binary used to confirm crashes
	// and timeouts (spec.md §4.8). Optional: if empty, confirmation is
	// skipped and every candidate signal is trusted as-is.
	NativeTarget string `json:"native_target,omitempty"`

	// InputDir holds the initial seed corpus.
	InputDir string `json:"input_dir,omitempty"`
	// OutputDir holds the queue/, crashes/, and .graycon/ artifacts.
	OutputDir string `json:"output_dir,omitempty"`
	// SyncDir, when set, is a shared directory multiple graycon processes
	// poll for each other's queue entries.
	SyncDir string `json:"sync_dir,omitempty"`

	// NSpawn is the number of times a seed's neighborhood is probed to
	// gather inference samples; inference needs at least three.
	NSpawn int `json:"nspawn,omitempty"`
	// NSolve caps how many branch-tree positions are solved per round
	// (spec.md §4.5 select_and_repair).
	NSolve int `json:"nsolve,omitempty"`
	// ExecTimeoutMS bounds one tracer execution, including fork-server
	// readiness.
	ExecTimeoutMS int `json:"exectimeout_ms,omitempty"`
	// BudgetSeconds bounds the whole run's wall-clock time. Zero means no
	// budget (run until interrupted).
	BudgetSeconds int `json:"budget_seconds,omitempty"`

	// StdinInput selects stdin-backed seeds over file-backed ones. The tracer
	// feeds every seed to Target on stdin either way; a file-backed seed's
	// path is not written.
	StdinInput bool `json:"stdin_input,omitempty"`
	// NoForkServer disables the fork-server handshake (original_source
	// cli_parser.cpp's --noforkserver) and runs the instrumented target
	// spawn-per-call instead, at a throughput cost. Useful for targets that
	// cannot be safely persisted across executions, and for tests.
	NoForkServer bool `json:"no_fork_server,omitempty"`

	// DumpTree, when set, writes the last branch tree built each round to
	// this path as indented plain JSON, which is also valid
	// JSON-with-comments (spec.md §2 domain stack).
	DumpTree string `json:"dump_tree,omitempty"`

	// Sources records which config files, if any, contributed to this
	// Config, for diagnostics.
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// DefaultConfig returns graycon's baseline configuration before any config
// file or CLI override is applied.
func DefaultConfig() Config {
	return Config{
		NSpawn:        3,
		NSolve:        1,
		ExecTimeoutMS: 3000,
	}
}

// LoadInput holds the inputs to Load.
type LoadInput struct {
	WorkDir    string // defaults to os.Getwd() if empty
	ConfigPath string // explicit --config flag value
	Env        map[string]string
}

// Load resolves a Config with the following precedence (highest wins):
//  1. DefaultConfig
//  2. Global user config ($XDG_CONFIG_HOME/graycon/config.json or
//     ~/.config/graycon/config.json)
//  3. Project config (.graycon.json in WorkDir, or an explicit --config
//     file)
//
// CLI flag overrides are applied by the caller on top of the returned
// Config before Validate runs, matching the teacher's LoadConfig/CLI-
// override split.
func Load(in LoadInput) (Config, error) {
	workDir := in.WorkDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(in.Env)
	if err != nil {
		return Config{}, err
	}

	cfg = mergeConfig(cfg, globalCfg)
	cfg.Sources.Global = globalPath

	projectCfg, projectPath, err := loadProjectConfig(workDir, in.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg = mergeConfig(cfg, projectCfg)
	cfg.Sources.Project = projectPath

	return cfg, nil
}

func loadGlobalConfig(env map[string]string) (Config, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, path, nil
}

func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "graycon", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "graycon", "config.json")
	}

	return ""
}

func loadProjectConfig(workDir, explicitPath string) (Config, string, error) {
	path := explicitPath
	mustExist := explicitPath != ""

	if path == "" {
		path = filepath.Join(workDir, ConfigFileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	cfg, loaded, err := loadConfigFile(path, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, path, nil
}

// ErrConfigNotFound is returned when an explicit --config path does not
// exist.
var ErrConfigNotFound = errors.New("config: file not found")

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("config: %s is not valid JSONC: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("config: %s is not valid JSON: %w", path, err)
	}

	return cfg, true, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Target != "" {
		base.Target = overlay.Target
	}

	if len(overlay.TargetArgs) > 0 {
		base.TargetArgs = overlay.TargetArgs
	}

	if overlay.NativeTarget != "" {
		base.NativeTarget = overlay.NativeTarget
	}

	if overlay.InputDir != "" {
		base.InputDir = overlay.InputDir
	}

	if overlay.OutputDir != "" {
		base.OutputDir = overlay.OutputDir
	}

	if overlay.SyncDir != "" {
		base.SyncDir = overlay.SyncDir
	}

	if overlay.NSpawn != 0 {
		base.NSpawn = overlay.NSpawn
	}

	if overlay.NSolve != 0 {
		base.NSolve = overlay.NSolve
	}

	if overlay.ExecTimeoutMS != 0 {
		base.ExecTimeoutMS = overlay.ExecTimeoutMS
	}

	if overlay.BudgetSeconds != 0 {
		base.BudgetSeconds = overlay.BudgetSeconds
	}

	if overlay.StdinInput {
		base.StdinInput = true
	}

	if overlay.NoForkServer {
		base.NoForkServer = true
	}

	if overlay.DumpTree != "" {
		base.DumpTree = overlay.DumpTree
	}

	return base
}
