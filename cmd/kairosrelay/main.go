package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ash2k/stager/wait"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/backends"
	"github.com/atlassian/kairosrelay/pkg/healthcheck"
	"github.com/atlassian/kairosrelay/pkg/relay"
	"github.com/atlassian/kairosrelay/pkg/statsd"
	"github.com/atlassian/kairosrelay/pkg/transport"
	"github.com/atlassian/kairosrelay/pkg/util"
	"github.com/atlassian/kairosrelay/pkg/web"
)

const (
	// ParamVerbose enables verbose logging.
	ParamVerbose = "verbose"
	// ParamJSON makes logger log in JSON format.
	ParamJSON = "json"
	// ParamConfigPath provides file with configuration.
	ParamConfigPath = "config-path"
	// ParamVersion makes program output its version.
	ParamVersion = "version"
)

func main() {
	v, version, err := setupConfiguration()
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logrus.Fatalf("Error while parsing configuration: %v", err)
	}
	if version {
		fmt.Printf("Version: %s - Commit: %s - Date: %s\n", Version, GitCommit, BuildDate)
		return
	}
	if err := run(v); err != nil {
		logrus.Fatalf("%v", err)
	}
}

func run(v *viper.Viper) error {
	logrus.Info("Starting relay")
	runnables, err := constructRunnables(v, logrus.StandardLogger())
	if err != nil {
		return err
	}

	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	var wg wait.Group
	for _, runnable := range runnables {
		wg.StartWithContext(ctx, runnable)
	}
	wg.Wait()
	logrus.Info("Stopped relay")
	return nil
}

// constructRunnables builds the relay with its backend, web server and the optional legacy
// line receiver, and returns everything that has to run.
func constructRunnables(v *viper.Viper, logger logrus.FieldLogger) ([]kairosrelay.Runnable, error) {
	var runnables []kairosrelay.Runnable

	// HTTP client pool
	pool := transport.NewTransportPool(logger, v)

	backend, err := backends.InitBackend(v.GetString(kairosrelay.ParamBackend), v, logger, pool)
	if err != nil {
		return nil, err
	}

	// The relay runs the backend.
	rl := relay.NewFromViper(v, logger, backend)
	runnables = kairosrelay.MaybeAppendRunnable(runnables, rl)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		rl.Stats(),
	)
	if c, ok := backend.(prometheus.Collector); ok {
		registry.MustRegister(c)
	}

	healthChecks, deepChecks := healthcheck.MaybeAppendHealthChecks(nil, nil, rl)
	healthChecks, deepChecks = healthcheck.MaybeAppendHealthChecks(healthChecks, deepChecks, backend)

	server, err := web.NewServer(
		logger.WithField("component", "web"),
		rl,
		registry,
		v.GetString(kairosrelay.ParamWebAddress),
		healthChecks,
		deepChecks,
	)
	if err != nil {
		return nil, err
	}
	runnables = append(runnables, server.Run)

	if legacyAddress := v.GetString(kairosrelay.ParamLegacyAddress); legacyAddress != "" {
		parser := statsd.NewParser(rl.Transformer().Namespaces(), rl.Transformer().Tags())
		receiver := statsd.NewReceiver(
			legacyAddress,
			parser,
			rl,
			v.GetFloat64(kairosrelay.ParamBadLinesPerMinute),
			logger.WithField("component", "legacy-receiver"),
		)
		runnables = append(runnables, receiver.Run)
	} else {
		logger.Info("Legacy line receiver disabled")
	}

	return runnables, nil
}

func setupConfiguration() (*viper.Viper, bool, error) {
	v := viper.New()
	defer setupLogger(v) // Apply logging configuration in case of early exit
	util.InitViper(v, "")

	var version bool

	cmd := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)

	cmd.BoolVar(&version, ParamVersion, false, "Print the version and exit")
	cmd.Bool(ParamVerbose, false, "Verbose")
	cmd.Bool(ParamJSON, false, "Log in JSON format")
	cmd.String(ParamConfigPath, "", "Path to the configuration file")

	kairosrelay.AddFlags(cmd)

	cmd.VisitAll(func(flag *pflag.Flag) {
		if err := v.BindPFlag(flag.Name, flag); err != nil {
			panic(err) // Should never happen
		}
	})

	if err := cmd.Parse(os.Args[1:]); err != nil {
		return nil, false, err
	}

	configPath := v.GetString(ParamConfigPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, false, err
		}
	}

	return v, version, nil
}

func setupLogger(v *viper.Viper) {
	if v.GetBool(ParamVerbose) {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if v.GetBool(ParamJSON) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
