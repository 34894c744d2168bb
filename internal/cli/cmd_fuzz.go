package cli

import (
	"context"
	"fmt"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/graycon/graycon/internal/config"
	"github.com/graycon/graycon/internal/engine"
)

// FuzzCmd runs the concolic fuzzing loop against a target until its budget
// is exhausted or the process is interrupted (spec.md §4.5-§4.8, §6).
func FuzzCmd(cwdOverride, configPath string, env map[string]string) *Command {
	flags := flag.NewFlagSet("fuzz", flag.ContinueOnError)
	target := flags.StringP("target", "t", "", "Instrumented target binary")
	targetArgs := flags.StringArray("target-arg", nil, "Argument to pass to the target verbatim (repeatable); @@ is not substituted")
	nativeTarget := flags.String("native-target", "", "Uninstrumented binary used to confirm crashes and timeouts")
	inputDir := flags.StringP("input", "i", "", "Seed corpus `directory`")
	outputDir := flags.StringP("output", "o", "", "Output `directory` for queue/, crashes/, and stats")
	syncDir := flags.String("syncdir", "", "Shared directory for cooperating graycon processes")
	nspawn := flags.Int("nspawn", 0, "Samples per inference round (minimum 3)")
	nsolve := flags.Int("nsolve", 0, "Branch conditions solved per round")
	execTimeoutMS := flags.Int("exectimeout", 0, "Per-execution timeout in milliseconds")
	budgetSeconds := flags.Int("budget", 0, "Wall-clock run budget in seconds (0 = unbounded)")
	stdinInput := flags.Bool("stdin", false, "Mark seeds as stdin-backed (the target reads every seed on stdin either way)")
	noForkServer := flags.Bool("noforkserver", false, "Spawn the target fresh for every execution instead of using a fork server")
	dumpTree := flags.String("dump-tree", "", "Write the last branch tree built each round to this `file` as JSONC")

	return &Command{
		Flags: flags,
		Usage: "fuzz [flags]",
		Short: "Run the concolic fuzzing loop against a target",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			cfg, err := config.Load(config.LoadInput{WorkDir: cwdOverride, ConfigPath: configPath, Env: env})
			if err != nil {
				return err
			}

			applyFuzzFlagOverrides(&cfg, flags, fuzzFlagValues{
				target: *target, targetArgs: *targetArgs, nativeTarget: *nativeTarget,
				inputDir: *inputDir, outputDir: *outputDir, syncDir: *syncDir,
				nspawn: *nspawn, nsolve: *nsolve, execTimeoutMS: *execTimeoutMS,
				budgetSeconds: *budgetSeconds, stdinInput: *stdinInput,
				noForkServer: *noForkServer, dumpTree: *dumpTree,
			})

			if err := config.Validate(cfg); err != nil {
				return err
			}

			log := slog.New(slog.NewTextHandler(o.ErrWriter(), nil))

			e, err := engine.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer e.Close() //nolint:errcheck // best-effort cleanup on a path that already returns its own error

			sum, err := e.Run(ctx)
			if err != nil {
				return err
			}

			o.Printf("rounds=%d test_cases=%d crashes=%d\n", sum.Rounds, sum.TestCases, sum.Crashes)

			for sig, n := range sum.CrashesBySig {
				o.Printf("  %s: %d\n", sig, n)
			}

			if sum.Crashes > 0 {
				o.WarnLLM(fmt.Sprintf("%d crash(es) found", sum.Crashes), "inspect output_dir/crashes before trusting the target")
			}

			return nil
		},
	}
}

type fuzzFlagValues struct {
	target, nativeTarget, inputDir, outputDir, syncDir, dumpTree string
	targetArgs                                                   []string
	nspawn, nsolve, execTimeoutMS, budgetSeconds                 int
	stdinInput, noForkServer                                     bool
}

// applyFuzzFlagOverrides layers explicitly-set CLI flags on top of cfg, the
// highest-precedence step in config.Load's documented layering (defaults →
// global config → project config → CLI overrides).
func applyFuzzFlagOverrides(cfg *config.Config, flags *flag.FlagSet, v fuzzFlagValues) {
	if flags.Changed("target") {
		cfg.Target = v.target
	}

	if flags.Changed("target-arg") {
		cfg.TargetArgs = v.targetArgs
	}

	if flags.Changed("native-target") {
		cfg.NativeTarget = v.nativeTarget
	}

	if flags.Changed("input") {
		cfg.InputDir = v.inputDir
	}

	if flags.Changed("output") {
		cfg.OutputDir = v.outputDir
	}

	if flags.Changed("syncdir") {
		cfg.SyncDir = v.syncDir
	}

	if flags.Changed("nspawn") {
		cfg.NSpawn = v.nspawn
	}

	if flags.Changed("nsolve") {
		cfg.NSolve = v.nsolve
	}

	if flags.Changed("exectimeout") {
		cfg.ExecTimeoutMS = v.execTimeoutMS
	}

	if flags.Changed("budget") {
		cfg.BudgetSeconds = v.budgetSeconds
	}

	if flags.Changed("stdin") {
		cfg.StdinInput = v.stdinInput
	}

	if flags.Changed("noforkserver") {
		cfg.NoForkServer = v.noForkServer
	}

	if flags.Changed("dump-tree") {
		cfg.DumpTree = v.dumpTree
	}
}
