package main

import (
	"fmt"

	"bidsage/internal/config"
	bidsagemcp "bidsage/internal/mcp"
	"bidsage/internal/server"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func runServe(args []string) error {
	var cf commonFlags
	var addr string

	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--config"); ok {
			cf.configPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--db"); ok {
			cf.dbPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--log-level"); ok {
			cf.logLevel = v
			continue
		}
		if v, ok := takeValue(args, &i, "--addr"); ok {
			addr = v
			continue
		}
		return fmt.Errorf("unexpected argument: %s", args[i])
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:  cf.configPath,
		CLIDBPath:   cf.dbPath,
		CLILogLevel: cf.logLevel,
		CLIAddr:     addr,
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel.Value)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, logger)
	logger.Info("serving",
		zap.String("addr", cfg.Addr.Value),
		zap.String("db", cfg.DBPath.Value))
	fmt.Printf("Listening on %s (db: %s)\n", cfg.Addr.Value, cfg.DBPath.Value)

	if err := srv.Router().Run(cfg.Addr.Value); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func runMCP(args []string) error {
	var cf commonFlags
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--config"); ok {
			cf.configPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--db"); ok {
			cf.dbPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--log-level"); ok {
			cf.logLevel = v
			continue
		}
		return fmt.Errorf("unexpected argument: %s", args[i])
	}

	cfg, err := resolveConfig(cf)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	s := bidsagemcp.NewServer(bidsagemcp.ServerConfig{
		Store:   st,
		Version: version,
	})

	if err := mcpserver.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
