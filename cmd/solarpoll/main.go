package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/solarpoll/internal/adapter/actor"
	"github.com/berfenger/solarpoll/internal/config"
	"github.com/berfenger/solarpoll/internal/core/actor"
	"github.com/berfenger/solarpoll/internal/core/domain"
	"github.com/berfenger/solarpoll/internal/core/service"
	"github.com/berfenger/solarpoll/internal/server"
	"github.com/berfenger/solarpoll/internal/util/actorutil"
	rm "github.com/berfenger/solarpoll/pkg/register_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	device, err := cfg.Modbus.ToDevice()
	if err != nil {
		logger.Fatal("invalid modbus config", zap.Error(err))
	}
	logger.Info("device",
		zap.String("connection", device.Connection.Type()),
		zap.String("endpoint", device.Endpoint()),
		zap.Uint8("unit", device.Connection.UnitId),
		zap.Int("registers", len(device.Registers)))
	for _, name := range device.UnknownRegisters {
		logger.Warn("ignoring unknown register_map entry", zap.String("name", name))
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	// init device actor provider
	deviceProv, err := deviceActorProvider(device, logger)
	if err != nil {
		logger.Fatal("could not create device transport", zap.Error(err))
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, deviceProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Fatal("could not spawn master actor", zap.Error(err))
	}

	// poll scheduler
	schedCtx, schedCancel := context.WithCancel(context.Background())
	scheduler, err := startPollScheduler(schedCtx, ctx, pid, time.Duration(cfg.Poll.IntervalSeconds)*time.Second)
	if err != nil {
		logger.Fatal("could not schedule poll job", zap.Error(err))
	}

	server := server.NewServer(*cfg, ctx, pid, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done

	scheduler.Stop()
	schedCancel()
	scheduler.Wait(context.Background())

	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

// startPollScheduler asks the master for a cycle every interval. A cycle that
// is still running when the next tick arrives is queued behind it.
func startPollScheduler(ctx context.Context, root *pactor.RootContext, master *pactor.PID, interval time.Duration) (quartz.Scheduler, error) {
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	pollJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(master, domain.RunCycleRequest{})
		return true, nil
	})
	err := sched.ScheduleJob(quartz.NewJobDetail(pollJob, quartz.NewJobKey("poll")), quartz.NewSimpleTrigger(interval))
	if err != nil {
		sched.Stop()
		return nil, err
	}
	return sched, nil
}

func initConfig() (*config.Config, error) {

	// alias PORT => SOLARPOLL_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SOLARPOLL_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("solarpoll")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func deviceActorProvider(device *config.DeviceSettings, logger *zap.Logger) (actor.DeviceActorProvider, error) {

	transport, err := rm.NewTransport(device.Connection, logger, nil)
	if err != nil {
		return nil, err
	}

	reader := service.NewDeviceReaderService(transport, device.Registers, rm.NewDecoder(device.Endian), logger)

	// every request may use its whole timeout, plus one timeout of slack
	cycleTimeout := device.Connection.Timeout*time.Duration(len(device.Registers)+2) + rm.ConnectSettleDelay

	return func(es *eventstream.EventStream) *actor.DeviceActor {
		return actor.NewDeviceActor(reader, es, cycleTimeout, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("modbus.connection_type", rm.ConnectionTypeTCP)
	viper.SetDefault("modbus.host", "192.168.1.100")
	viper.SetDefault("modbus.port", 502)
	viper.SetDefault("modbus.device_path", "/dev/ttyUSB0")
	viper.SetDefault("modbus.baud_rate", 9600)
	viper.SetDefault("modbus.parity", "N")
	viper.SetDefault("modbus.stop_bits", 1)
	viper.SetDefault("modbus.data_bits", 8)
	viper.SetDefault("modbus.unit_id", 1)
	viper.SetDefault("modbus.timeout_seconds", 3)
	viper.SetDefault("modbus.byte_order", "big")
	viper.SetDefault("modbus.word_order", "big")
	viper.SetDefault("poll.interval_seconds", 60)
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.host", "")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "solarpoll")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
