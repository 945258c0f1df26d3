// Package main runs a swerve drivetrain control loop against simulated hardware, taking operator
// input from MQTT and publishing telemetry.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/swerve/components/base/swerve"
	"go.viam.com/swerve/config"
	"go.viam.com/swerve/control"
	"go.viam.com/swerve/input/mqtt"
	"go.viam.com/swerve/logging"
	"go.viam.com/swerve/telemetry"
)

var logger = logging.NewLogger("swerved")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=robot config file"`
	Debug      bool   `flag:"debug"`
	Watch      bool   `flag:"watch,usage=rebuild the drivetrain when the config file changes"`
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := config.Read(argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	if err := setLogLevel(logger, cfg, argsParsed.Debug); err != nil {
		return err
	}

	var reloads <-chan *config.Config
	if argsParsed.Watch {
		watcher, err := config.NewWatcher(ctx, argsParsed.ConfigFile, logger)
		if err != nil {
			return err
		}
		defer utils.UncheckedErrorFunc(watcher.Close)
		reloads = watcher.Config()
	}

	ready := utils.ContextMainReadyFunc(ctx)
	for {
		next, err := runRobot(ctx, cfg, reloads, ready, logger)
		if err != nil || next == nil {
			return err
		}
		logger.Infow("config changed, rebuilding drivetrain", "path", next.ConfigFilePath)
		if err := setLogLevel(logger, next, argsParsed.Debug); err != nil {
			logger.Errorw("keeping previous log level", "error", err)
		}
		cfg = next
		ready = func() {}
	}
}

func setLogLevel(logger logging.Logger, cfg *config.Config, debug bool) error {
	if debug {
		logger.SetLevel(logging.DEBUG)
		return nil
	}
	if cfg.LogLevel == "" {
		return nil
	}
	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// runRobot builds everything cfg describes and runs it until ctx is done, returning nil, or a new
// config arrives on reloads, returning that config.
func runRobot(
	ctx context.Context,
	cfg *config.Config,
	reloads <-chan *config.Config,
	ready func(),
	logger logging.Logger,
) (next *config.Config, err error) {
	sim := newSimHardware(cfg)

	var source swerve.CommandSource = swerve.NewManualSource()
	if cfg.Input != nil {
		inputCfg := *cfg.Input
		if inputCfg.ClientID == "" {
			inputCfg.ClientID = "swerved-input-" + uuid.NewString()
		}
		controller, inputErr := mqtt.NewController(inputCfg, logger.Sublogger("input"))
		if inputErr != nil {
			return nil, inputErr
		}
		defer func() {
			err = multierr.Combine(err, controller.Close(context.Background()))
		}()
		source = swerve.NewTeleopSource(controller, cfg.Shaper(), *cfg.Teleop.Bindings)
	} else {
		logger.Info("no operator input configured, holding still")
	}

	drivetrain, err := swerve.NewFromConfig(ctx, cfg.Drivetrain, sim.deps, source, logger.Sublogger("drivetrain"))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, drivetrain.Close(context.Background()))
	}()

	loop, err := control.NewLoop(logger.Sublogger("loop"), cfg.Loop.Period,
		control.TickFunc(func(ctx context.Context, dt time.Duration) error {
			sim.Step(dt, drivetrain.Status().Measured)
			return drivetrain.Tick(ctx, dt)
		}))
	if err != nil {
		return nil, err
	}

	sinks, server, err := newSinks(cfg, logger)
	if err != nil {
		return nil, err
	}
	collector, err := telemetry.NewCollector(drivetrain, cfg.Telemetry.Interval, sinks,
		logger.Sublogger("telemetry"), telemetry.WithLoopStats(loop))
	if err != nil {
		return nil, multierr.Combine(err, closeSinks(sinks))
	}
	defer func() {
		err = multierr.Combine(err, collector.Close())
	}()

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	collectDone := make(chan struct{})
	utils.PanicCapturingGo(func() {
		defer close(collectDone)
		if err := collector.Collect(workerCtx); err != nil {
			logger.Errorw("telemetry collector stopped", "error", err)
		}
	})
	if server != nil {
		utils.PanicCapturingGo(func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("telemetry server stopped", "error", err)
			}
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err = multierr.Combine(err, server.Shutdown(shutdownCtx))
		}()
	}

	if err := loop.Start(); err != nil {
		return nil, err
	}
	logger.Infow("drivetrain running", "modules", len(drivetrain.Modules()), "period", cfg.Loop.Period,
		"session", collector.Session())
	ready()

	select {
	case <-ctx.Done():
	case next = <-reloads:
	}
	loop.Stop()
	cancelWorkers()
	<-collectDone
	pose := sim.Pose()
	logger.Infow("drivetrain stopped", "stats", loop.Stats(), "sim_pose", pose.Translation, "sim_heading", pose.Rotation,
		"telemetry_published", collector.Published(), "telemetry_dropped", collector.Dropped())
	return next, nil
}

func newSinks(cfg *config.Config, logger logging.Logger) ([]telemetry.Sink, *http.Server, error) {
	var sinks []telemetry.Sink
	if cfg.Telemetry.Log {
		sinks = append(sinks, telemetry.NewLogSink(logger.Sublogger("telemetry")))
	}
	if cfg.Telemetry.MQTTBroker != "" {
		sink, err := telemetry.NewMQTTSink(cfg.Telemetry.MQTTBroker, cfg.Telemetry.MQTTTopic,
			"swerved-telemetry-"+uuid.NewString(), logger.Sublogger("telemetry"))
		if err != nil {
			return nil, nil, multierr.Combine(err, closeSinks(sinks))
		}
		sinks = append(sinks, sink)
	}
	var server *http.Server
	if cfg.Telemetry.WebsocketAddress != "" {
		hub := telemetry.NewWebsocketHub(logger.Sublogger("telemetry"))
		mux := http.NewServeMux()
		mux.Handle("/telemetry", hub)
		server = &http.Server{
			Addr:              cfg.Telemetry.WebsocketAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		sinks = append(sinks, hub)
	}
	return sinks, server, nil
}

func closeSinks(sinks []telemetry.Sink) error {
	var errs error
	for _, s := range sinks {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}
