package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/mbalug7/lora-e32/command"
	"github.com/mbalug7/lora-e32/config"
	"github.com/mbalug7/lora-e32/e32"
	"github.com/mbalug7/lora-e32/hal"
	"github.com/mbalug7/lora-e32/hal/bugst"
	"github.com/mbalug7/lora-e32/hal/periph"
	"github.com/mbalug7/lora-e32/hal/rpio"
	"github.com/mbalug7/lora-e32/hal/stub"
	"github.com/mbalug7/lora-e32/hal/tarm"
	"github.com/mbalug7/lora-e32/metrics"
	"github.com/mbalug7/lora-e32/sink"
)

var Version = "0.1.0"

const usageText = `usage: lora-e32 [flags] <command> [args]

commands:
  params             read the module's configuration and version
  mode               show the operating mode selected by M0/M1
  send <text>        send text as is
  send-crc <text>    send text behind a length and checksum header
  send-file <path>   send a file behind a file header
  recv               receive one burst
  recv-framed        receive one framed packet
  status             host disk, memory, wireless and address status
  list [dir]         list files
  restart            soft-reset the module
  listen             receive framed packets until interrupted

flags:
`

func main() {
	configFile := flag.String("config", "lora.yaml", "path to the YAML config file")
	sim := flag.Bool("sim", false, "use the simulated module instead of hardware")
	timeout := flag.Duration("timeout", 0, "abort the command after this long, 0 for no limit")
	asHex := flag.Bool("hex", false, "print received data as hex")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("lora-e32 v%s\n", Version)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	os.Exit(run(ctx, cfg, log, *sim, *asHex, flag.Args()))
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, sim, asHex bool, args []string) int {
	name, rest := args[0], args[1:]

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	link := metrics.NewLink(reg)

	module, err := openModule(ctx, cfg, log, sim)
	if err != nil {
		log.Errorf("failed to open module: %v", err)
		return 1
	}
	defer func() {
		if err := module.Close(); err != nil {
			log.Warnf("failed to close module: %v", err)
		}
	}()

	if name == "listen" {
		return listen(ctx, cfg, log, module, link, reg)
	}

	p := command.NewProcessor(module, log, link)
	var res command.Result
	switch name {
	case "params":
		res = p.Parameters(ctx)
	case "mode":
		res = p.Mode()
	case "send":
		res = p.SendText(ctx, strings.Join(rest, " "))
	case "send-crc":
		res = p.SendChecked(ctx, strings.Join(rest, " "))
	case "send-file":
		res = p.SendFile(ctx, strings.Join(rest, " "))
	case "recv":
		res = p.Receive(ctx, asHex)
	case "recv-framed":
		res = p.ReceiveFramed(ctx, asHex)
	case "status":
		res = p.Status(ctx)
	case "list":
		dir := ""
		if len(rest) > 0 {
			dir = rest[0]
		}
		res = p.List(dir)
	case "restart":
		res = p.Restart(ctx)
	default:
		log.Errorf("unknown command %q", name)
		return 2
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Errorf("failed to write result: %v", err)
		return 1
	}
	if res.Status != command.StatusSuccess {
		return 1
	}
	return 0
}

func openModule(ctx context.Context, cfg *config.Config, log *logrus.Logger, sim bool) (*e32.Driver, error) {
	opts, err := config.DriverOptions(cfg)
	if err != nil {
		return nil, err
	}
	lines, port, err := openHardware(cfg, sim)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"dialect": cfg.Radio.Dialect,
		"serial":  cfg.Serial.Port,
		"sim":     sim,
	}).Debug("opening module")

	module, err := e32.Open(ctx, lines, port, opts...)
	if err != nil {
		return nil, err
	}
	log.Debugf("module configuration: %s", module.Configuration())

	// the module's UART speed is part of its configuration; a mismatch
	// only shows up after the next power cycle
	if frame := module.Frame(); frame.Head != 0 && frame.Baud() != cfg.Serial.Baud {
		log.Warnf("module is configured for %d baud, serial port runs at %d", frame.Baud(), cfg.Serial.Baud)
	}
	return module, nil
}

func openHardware(cfg *config.Config, sim bool) (hal.Lines, hal.Port, error) {
	if sim {
		radio := stub.New()
		return radio.Lines(), radio.Port(), nil
	}

	var lines hal.Lines
	switch cfg.GPIO.Backend {
	case "rpio":
		pins := make([]int, 3)
		for i, name := range []string{cfg.GPIO.M0, cfg.GPIO.M1, cfg.GPIO.Aux} {
			n, err := config.PinNumber(name)
			if err != nil {
				return nil, nil, err
			}
			pins[i] = n
		}
		l, err := rpio.Open(pins[0], pins[1], pins[2])
		if err != nil {
			return nil, nil, err
		}
		lines = l
	default:
		l, err := periph.Open(cfg.GPIO.M0, cfg.GPIO.M1, cfg.GPIO.Aux)
		if err != nil {
			return nil, nil, err
		}
		lines = l
	}

	var port hal.Port
	var err error
	switch cfg.Serial.Backend {
	case "tarm":
		port, err = tarm.Open(cfg.Serial.HAL())
	default:
		port, err = bugst.Open(cfg.Serial.HAL())
	}
	if err != nil {
		return nil, nil, errors.Join(err, lines.Close())
	}
	return lines, port, nil
}

// listen prints every framed packet as JSON and forwards it to Redis when
// configured, until ctx ends.
func listen(ctx context.Context, cfg *config.Config, log *logrus.Logger, module *e32.Driver, link *metrics.Link, reg *prometheus.Registry) int {
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, log); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	var pub *sink.Redis
	if cfg.Redis.Enabled {
		var err error
		pub, err = sink.NewRedis(ctx, sink.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			List:     cfg.Redis.List,
			ListSize: cfg.Redis.ListSize,
		}, log)
		if err != nil {
			log.Errorf("%v", err)
			return 1
		}
		defer pub.Close()
	}

	log.Infof("listening on %s (checksum %s)", cfg.Serial.Port, module.Checksum().Name())
	enc := json.NewEncoder(os.Stdout)
	for ctx.Err() == nil {
		start := time.Now()
		pkt, err := module.ReceiveFramed(ctx)
		if ctx.Err() != nil {
			break
		}
		link.ObservePacket(pkt, err)
		if err != nil {
			link.Observe("listen", start, err)
			log.WithField("kind", metrics.ErrorKind(err)).Warnf("receive failed: %v", err)
			continue
		}
		if pkt == nil {
			continue
		}
		link.Observe("listen", start, nil)

		msg := sink.NewMessage(pkt, module.Checksum(), time.Now())
		log.WithFields(logrus.Fields{"name": pkt.Name, "size": len(pkt.Payload)}).Info("packet received")
		if err := enc.Encode(msg); err != nil {
			log.Errorf("failed to write packet: %v", err)
		}
		if pub != nil {
			if err := pub.Publish(ctx, msg); err != nil {
				log.Warnf("%v", err)
			}
		}
	}
	log.Info("listener stopped")
	return 0
}

func setupLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	// results go to stdout, so logs default to stderr
	log.SetOutput(os.Stderr)
	switch {
	case cfg.Output == "stdout":
		log.SetOutput(os.Stdout)
	case cfg.Output == "file" && cfg.FilePath != "":
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Warnf("failed to open log file: %v, logging to stderr", err)
		}
	}

	return log
}
