package main

import (
	"cfupdater/common"
	"cfupdater/config"
	"cfupdater/ddns"
	"cfupdater/log"
	"cfupdater/sched"
	"cfupdater/secrets"
	"cfupdater/sources"
	"cfupdater/updater"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const envServiceToken = "OP_SERVICE_ACCOUNT_TOKEN"

// One transport for the whole process; every network call inherits it.
const httpTimeout = 30 * time.Second

var (
	configPath = flag.StringP("config", "c", "", "path to config file")
	mode       = flag.String("mode", "", "repeat mode: daily, hourly or minutely (default: run once)")
	runs       = flag.Int("runs", 1, "how many times to run the update (0 = unbounded)")
	debug      = flag.Bool("debug", false, "enable debug output")
	help       = flag.BoolP("help", "h", false, "Print help message")
)

var buildDate string

var conf config.Config

func init() {
	flag.Parse()
	if *help {
		fmt.Println(flag.CommandLine.FlagUsages())
		os.Exit(0)
	}
}

func getInitLogger() context.Context {
	var err error
	var logger *zap.Logger

	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		fmt.Printf("Failed creating logger: %v\n", err)
		os.Exit(1)
	}

	return log.WithLogger(context.Background(), logger)
}

func getLogger(ctx context.Context) context.Context {
	var logOption zap.Config
	if *debug {
		logOption = zap.NewDevelopmentConfig()
	} else {
		logOption = zap.NewProductionConfig()
	}

	if conf.Log.Level != nil {
		logOption.Level.SetLevel(*conf.Log.Level)
	}

	if conf.Log.Encoding != nil {
		logOption.Encoding = *conf.Log.Encoding
	}

	if conf.Log.InfoPath != nil {
		logOption.OutputPaths = *conf.Log.InfoPath
	}

	if conf.Log.ErrorPath != nil {
		logOption.ErrorOutputPaths = *conf.Log.ErrorPath
	}

	logOption.InitialFields = map[string]interface{}{
		"node": conf.Service.Name,
	}

	logger, err := logOption.Build()
	if err != nil {
		log.S(ctx).Fatalw("cannot build real logger", zap.Error(err))
	}

	return log.WithLogger(context.Background(), logger)
}

func loadConfig(ctx context.Context) {
	conf = config.Default()

	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.S(ctx).Fatalw("failed loading config", zap.Error(err))
		}
		defer f.Close()

		switch {
		case strings.HasSuffix(*configPath, ".toml"):
			err = toml.NewDecoder(f).Decode(&conf)
		case strings.HasSuffix(*configPath, ".yaml") || strings.HasSuffix(*configPath, ".yml"):
			err = yaml.NewDecoder(f).Decode(&conf)
		case strings.HasSuffix(*configPath, ".json"):
			err = json.NewDecoder(f).Decode(&conf)
		default:
			err = fmt.Errorf("unknown config format: %s", *configPath)
		}

		if err != nil {
			log.S(ctx).Fatalw("failed loading config", zap.Error(err))
		}
	}

	// Flags win over the config file.
	if flag.CommandLine.Changed("mode") {
		if err := conf.Service.Mode.UnmarshalText([]byte(*mode)); err != nil {
			log.S(ctx).Fatalw("invalid repeat mode", "mode", *mode, zap.Error(err))
		}
	}

	if flag.CommandLine.Changed("runs") {
		conf.Service.Runs = *runs
	}
}

func main() {
	ctx := getInitLogger()

	if buildDate != "" {
		log.S(ctx).Infow("cfupdater starting", "variant", "release", "build_date", buildDate)
	} else {
		log.S(ctx).Infow("cfupdater starting", "variant", "debug")
	}

	loadConfig(ctx)
	ctx = getLogger(ctx)

	scheduler, err := sched.New(conf.Service.Mode, conf.Service.Runs, common.RealClock())
	if err != nil {
		log.S(ctx).Fatalw("invalid schedule", zap.Error(err))
	}

	token := os.Getenv(envServiceToken)
	if token == "" {
		log.S(ctx).Fatalw("credential service token unset", "env", envServiceToken)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := secrets.NewOnePassword(ctx, token)
	if err != nil {
		log.S(ctx).Fatalw("cannot init credential provider", zap.Error(err))
	}

	creds, err := secrets.Load(ctx, resolver, secrets.Refs{
		APIToken:   conf.Secrets.APITokenRef,
		ZoneID:     conf.Secrets.ZoneIDRef,
		RecordName: conf.Secrets.RecordRef,
	})
	if err != nil {
		log.S(ctx).Fatalw("cannot resolve credentials", zap.Error(err))
	}

	httpClient := &http.Client{Timeout: httpTimeout}
	defer httpClient.CloseIdleConnections()
	ctx = context.WithValue(ctx, common.HttpClientKey, httpClient)

	source, err := sources.New(ctx, conf.Discovery)
	if err != nil {
		log.S(ctx).Fatalw("cannot init discovery source", zap.Error(err))
	}

	provider, err := ddns.New(ctx, conf.Provider, creds)
	if err != nil {
		log.S(ctx).Fatalw("cannot init dns provider", zap.Error(err))
	}

	u := &updater.Updater{
		Source:   source,
		Provider: provider,
		Verifier: ddns.NewVerifier(),
		Record:   creds.RecordName,
	}

	err = scheduler.Run(ctx, func(ctx context.Context) error {
		_, err := u.Run(ctx)
		return err
	})
	if err != nil {
		log.S(ctx).Warnw("scheduler stopped", zap.Error(err))
	}
}
