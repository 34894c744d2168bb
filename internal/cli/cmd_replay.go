package cli

import (
	"context"
	"errors"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/graycon/graycon/internal/config"
	"github.com/graycon/graycon/internal/engine"
)

// errReplayNeedsOneArg is returned when replay is invoked without exactly
// one seed-file argument.
var errReplayNeedsOneArg = errors.New("replay: expected exactly one seed file argument")

// ReplayCmd re-runs a single saved artifact (a queue/ or crashes/ entry)
// against the target and reports its signal and coverage verdict, for
// reproducing a finding without running a full fuzzing loop.
func ReplayCmd(cwdOverride, configPath string, env map[string]string) *Command {
	flags := flag.NewFlagSet("replay", flag.ContinueOnError)
	target := flags.StringP("target", "t", "", "Instrumented target binary")
	nativeTarget := flags.String("native-target", "", "Uninstrumented binary used to confirm crashes and timeouts")
	outputDir := flags.StringP("output", "o", "", "Output `directory` (reused so replay shares the run's stats index)")
	execTimeoutMS := flags.Int("exectimeout", 0, "Per-execution timeout in milliseconds")
	noForkServer := flags.Bool("noforkserver", false, "Spawn the target fresh for every execution instead of using a fork server")

	return &Command{
		Flags: flags,
		Usage: "replay <seed-file>",
		Short: "Re-run one saved artifact against the target",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errReplayNeedsOneArg
			}

			cfg, err := config.Load(config.LoadInput{WorkDir: cwdOverride, ConfigPath: configPath, Env: env})
			if err != nil {
				return err
			}

			if flags.Changed("target") {
				cfg.Target = *target
			}

			if flags.Changed("native-target") {
				cfg.NativeTarget = *nativeTarget
			}

			if flags.Changed("output") {
				cfg.OutputDir = *outputDir
			}

			if flags.Changed("exectimeout") {
				cfg.ExecTimeoutMS = *execTimeoutMS
			}

			if flags.Changed("noforkserver") {
				cfg.NoForkServer = *noForkServer
			}

			// replay needs a real target and output directory but not an
			// input corpus; skip config.Validate's InputDir/NSpawn checks
			// and check only what this command actually uses.
			if cfg.Target == "" {
				return config.ErrTargetRequired
			}

			if cfg.OutputDir == "" {
				return config.ErrOutputDirRequired
			}

			log := slog.New(slog.NewTextHandler(o.ErrWriter(), nil))

			e, err := engine.NewReplay(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer e.Close() //nolint:errcheck // best-effort cleanup on a path that already returns its own error

			result, err := e.Replay(ctx, args[0])
			if err != nil {
				return err
			}

			o.Printf("signal=%s gain=%v crash=%t\n", result.Signal, result.Gain, result.Crash)

			return nil
		},
	}
}
