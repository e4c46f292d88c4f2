// Command shiro analyzes source snippets for disclosure risk before they
// leave the building. It runs either as an HTTP API (serve mode) or as a
// one-shot file scanner (scan mode).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/shiro/internal/app"
	"github.com/raysh454/shiro/internal/cli"
	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
	"github.com/raysh454/shiro/internal/server"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "shiro: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewStdoutLogger("Shiro")

	cfg := app.DefaultConfig()
	if args.DBPath != "" {
		cfg.HistoryCfg.DBPath = args.DBPath
	}
	if args.RemoteURL != "" {
		cfg.RemoteEnabled = true
		cfg.RemoteCfg.BaseURL = args.RemoteURL
	}

	switch args.Mode {
	case "scan":
		code, err := runScan(args, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shiro: %v\n", err)
			os.Exit(1)
		}
		os.Exit(code)
	default:
		if err := runServe(args, cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "shiro: %v\n", err)
			os.Exit(1)
		}
	}
}

// runScan analyzes one file and prints the result. The exit code is 1
// when the scan finds high risk, so shell pipelines can gate on it.
func runScan(args *cli.CLIArgs, cfg *app.Config, logger logging.Logger) (int, error) {
	content, err := os.ReadFile(args.File)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", args.File, err)
	}

	language := args.Language
	if language == "" {
		language = cli.LanguageForFile(args.File)
	}

	engine, err := app.NewEngine(cfg, logger, app.Deps{})
	if err != nil {
		return 0, err
	}

	res, err := engine.Analyze(context.Background(), &model.AnalysisRequest{
		Content:  string(content),
		Language: language,
		Name:     args.File,
		Options:  model.Options{IncludeMarkup: args.IncludeMarkup},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	engine.Shutdown(ctx)

	if err != nil {
		return 0, err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return 0, err
	}
	fmt.Println(string(out))

	if res.RiskLevel == model.RiskHigh {
		return 1, nil
	}
	return 0, nil
}

func runServe(args *cli.CLIArgs, cfg *app.Config, logger logging.Logger) error {
	engine, err := app.NewEngine(cfg, logger, app.Deps{})
	if err != nil {
		return err
	}

	srv, err := server.NewServerWithEngine(server.Config{
		ListenAddr: args.ListenAddr,
		AppConfig:  cfg,
		Logger:     logger,
	}, engine)
	if err != nil {
		return err
	}

	httpSrv := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", logging.Field{Key: "addr", Value: args.ListenAddr})
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		srv.Close()
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", logging.Field{Key: "signal", Value: sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
	srv.Close()
	return nil
}
