package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/internal/builder"
	"github.com/daehee87/fuzzing-bot/internal/cache"
	"github.com/daehee87/fuzzing-bot/internal/campaign"
	"github.com/daehee87/fuzzing-bot/internal/coordinator"
	"github.com/daehee87/fuzzing-bot/internal/crash"
	"github.com/daehee87/fuzzing-bot/internal/fuzz"
	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/database"
	"github.com/daehee87/fuzzing-bot/pkg/logger"
	"github.com/daehee87/fuzzing-bot/pkg/metrics"
	"github.com/daehee87/fuzzing-bot/pkg/mq"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"
	"github.com/daehee87/fuzzing-bot/pkg/watchdog"

	"github.com/jessevdk/go-flags"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type options struct {
	Verbose bool `short:"v" long:"verbose" description:"Enable debug logging"`
}

type verifyCommand struct {
	Args struct {
		ID string `positional-arg-name:"project--fuzzer--poc" description:"Reported crash to replay"`
	} `positional-args:"yes" required:"yes"`
}

// runMode selects between the endless campaign and a single verification.
type runMode struct {
	VerifyID string
}

func provideRunner(r *toolchain.ExecRunner) toolchain.Runner {
	return r
}

type preconditionParams struct {
	fx.In

	Config *config.AppConfig
	Runner *toolchain.ExecRunner
	Logger *zap.Logger
}

// checkPreconditions fails the app start on a host that cannot run the
// toolchain. Missing git or docker only warns.
func checkPreconditions(p preconditionParams) error {
	ctx := context.Background()
	if err := toolchain.CheckPython(ctx, p.Runner); err != nil {
		return err
	}
	if err := toolchain.CheckWorkDir(p.Config.WorkDir); err != nil {
		return err
	}
	for _, tool := range toolchain.MissingTools("git", "docker") {
		p.Logger.Warn("Required tool not found, please install it", zap.String("tool", tool))
	}
	return p.Runner.Authorize(ctx)
}

type startParams struct {
	fx.In

	Lc         fx.Lifecycle
	Mode       runMode
	Campaign   *campaign.Campaign
	Logger     *zap.Logger
	Shutdowner fx.Shutdowner
}

// startCampaign runs the campaign in the background. Stopping the app
// cancels it and waits for the current iteration to wind down.
func startCampaign(p startParams) {
	appCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				exitCode := 0
				if err := run(appCtx, p.Campaign, p.Mode); err != nil {
					p.Logger.Error("fuzzbot stopped", zap.Error(err))
					exitCode = 1
				}
				if err := p.Shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					p.Logger.Debug("shutdown already in progress", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				p.Logger.Warn("Exiting while a session is still running")
			}
			return nil
		},
	})
}

func run(ctx context.Context, c *campaign.Campaign, mode runMode) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	if mode.VerifyID != "" {
		return c.Verify(context.WithoutCancel(ctx), mode.VerifyID)
	}
	return c.Run(ctx)
}

func parseArgs(args []string) (runMode, error) {
	var opts options
	var verify verifyCommand

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true
	parser.LongDescription = "Runs fuzzing sessions on OSS-Fuzz projects and reports crashes to the coordinator."
	if _, err := parser.AddCommand("verify",
		"Replay a reported crash",
		"Rebuilds the project, downloads the crash input and runs it once against the fuzz target.",
		&verify,
	); err != nil {
		return runMode{}, err
	}

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return runMode{}, err
	}
	if len(rest) > 0 {
		return runMode{}, fmt.Errorf("unexpected arguments: %v", rest)
	}

	if opts.Verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}
	if parser.Active != nil && parser.Active.Name == "verify" {
		// reject a bad directive before prompting for an id or contacting the coordinator
		if _, err := types.ParsePocRequest(verify.Args.ID); err != nil {
			return runMode{}, err
		}
		return runMode{VerifyID: verify.Args.ID}, nil
	}
	return runMode{}, nil
}

func main() {
	mode, err := parseArgs(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := fx.New(
		fx.Supply(mode),
		fx.Provide(
			config.LoadConfig,           // inject config
			logger.NewLogger,            // inject logger
			telemetry.NewTelemetry,      // inject telemetry
			telemetry.NewTracerFactory,  // inject telemetry tracer factory
			database.NewRedisClient,     // inject redis client
			database.NewDBConnection,    // inject db connection
			mq.NewRabbitMQ,              // inject rabbitmq service
			mq.NewPublisher,             // inject report event publisher
			metrics.NewCollector,        // inject metrics collector
			watchdog.NewWatchDogFactory, // inject watchdog factory
			toolchain.NewExecRunner,     // inject host command runner
			provideRunner,               // expose it as toolchain.Runner
			toolchain.NewHelper,         // inject oss-fuzz helper
			coordinator.NewClient,       // inject coordinator client
			cache.NewStore,              // inject build cache
			builder.NewBuilder,          // inject builder
			fuzz.NewFuzzer,              // inject fuzz runner
			crash.NewReporter,           // inject crash reporter
			campaign.NewCampaign,        // inject campaign loop
		),
		fx.Invoke(
			checkPreconditions,
			metrics.RegisterServer,
			startCampaign,
		),
		fx.StopTimeout(30*time.Second),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)
	app.Run()
}
