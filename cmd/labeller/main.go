package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	labeller "github.com/menta2k/dataset-labeller"
	"github.com/menta2k/dataset-labeller/internal/config"
	"github.com/menta2k/dataset-labeller/internal/logger"
	"github.com/menta2k/dataset-labeller/pkg/server"
)

func main() {
	parser := argparse.NewParser("labeller", "Label, curate and export YOLO object detection datasets")

	serveCmd := parser.NewCommand("serve", "Run the HTTP API and web UI")
	serveConfig := serveCmd.String("c", "config", &argparse.Options{Help: "Configuration file", Default: config.GetConfigPath()})
	addr := serveCmd.String("a", "addr", &argparse.Options{Help: "Listen address (overrides server.addr)"})
	staticDir := serveCmd.String("s", "static", &argparse.Options{Help: "Web UI directory (overrides server.static_dir)"})
	backend := serveCmd.String("b", "backend", &argparse.Options{Help: "Detection backend: none, ollama or llamacpp"})
	backendURL := serveCmd.String("u", "url", &argparse.Options{Help: "Detection backend URL"})
	dev := serveCmd.Flag("d", "dev", &argparse.Options{Help: "Development logging"})

	exportCmd := parser.NewCommand("export", "Export a dataset as YOLO or JSON")
	exportConfig := exportCmd.String("c", "config", &argparse.Options{Help: "Configuration file", Default: config.GetConfigPath()})
	exportIn := exportCmd.String("i", "input", &argparse.Options{Help: "Dataset folder", Required: true})
	exportMode := exportCmd.String("m", "mode", &argparse.Options{Help: "Open mode: images, yolo or rfdetr", Default: "images"})
	exportOut := exportCmd.String("o", "output", &argparse.Options{Help: "Output directory", Required: true})
	exportFmt := exportCmd.String("f", "format", &argparse.Options{Help: "Export format: \"YOLO (.txt)\", yolo or JSON"})

	infoCmd := parser.NewCommand("info", "Describe a dataset")
	infoConfig := infoCmd.String("c", "config", &argparse.Options{Help: "Configuration file", Default: config.GetConfigPath()})
	infoIn := infoCmd.String("i", "input", &argparse.Options{Help: "Dataset folder", Required: true})
	infoMode := infoCmd.String("m", "mode", &argparse.Options{Help: "Open mode: images, yolo or rfdetr", Default: "images"})

	configCmd := parser.NewCommand("config", "Write the default configuration file")
	configOut := configCmd.String("o", "output", &argparse.Options{Help: "Destination", Default: config.GetConfigPath()})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}

	var err error
	switch {
	case serveCmd.Happened():
		err = serve(*serveConfig, *addr, *staticDir, *backend, *backendURL, *dev)
	case exportCmd.Happened():
		err = runExport(*exportConfig, *exportIn, *exportMode, *exportOut, *exportFmt)
	case infoCmd.Happened():
		err = info(*infoConfig, *infoIn, *infoMode)
	case configCmd.Happened():
		err = config.Default().SaveToFile(*configOut)
		if err == nil {
			fmt.Println(*configOut)
		}
	}
	if err != nil {
		logger.Log().Error("command failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger.Sync()
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func serve(cfgPath, addr, staticDir, backend, backendURL string, dev bool) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if staticDir != "" {
		cfg.Server.StaticDir = staticDir
	}
	if backend != "" {
		cfg.Detection.Backend = backend
	}
	if backendURL != "" {
		cfg.Detection.URL = backendURL
	}
	if dev {
		cfg.Server.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Server.Development); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Log()

	session, err := labeller.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting labeller",
		zap.String("version", labeller.Version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", cfg.Detection.Backend))

	srv := server.New(session, server.Options{
		StaticDir:   cfg.Server.StaticDir,
		Development: cfg.Server.Development,
		Logger:      log.Named("http"),
	})
	return srv.Run(ctx, cfg.Server.Addr)
}

func openSession(cfgPath, input, mode string) (*labeller.Session, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Server.Development); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	session, err := labeller.New(cfg, logger.Log())
	if err != nil {
		return nil, err
	}
	if _, err := session.Open(input, mode); err != nil {
		return nil, err
	}
	return session, nil
}

func runExport(cfgPath, input, mode, out, format string) error {
	session, err := openSession(cfgPath, input, mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := session.Export(ctx, out, format)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d images to %s\n", res.Count, res.OutputDir)
	return nil
}

func info(cfgPath, input, mode string) error {
	session, err := openSession(cfgPath, input, mode)
	if err != nil {
		return err
	}
	info, err := session.Info()
	if err != nil {
		return err
	}

	out := struct {
		Root    string   `json:"root"`
		Mode    string   `json:"mode"`
		Layout  string   `json:"layout"`
		Split   string   `json:"split"`
		Splits  []string `json:"splits"`
		Count   int      `json:"count"`
		Classes []string `json:"class_names"`
	}{
		Root:    info.Root,
		Mode:    string(info.Mode),
		Layout:  string(info.Layout),
		Split:   string(info.Split),
		Count:   info.Count,
		Classes: session.Classes(),
	}
	for _, s := range info.Splits {
		out.Splits = append(out.Splits, string(s))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
