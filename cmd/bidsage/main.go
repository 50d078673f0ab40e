package main

import (
	"fmt"
	"os"
	"strings"

	"bidsage/internal/config"
	"bidsage/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

func main() {
	// Optional .env next to the binary; absence is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "recommend":
		err = runRecommend(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("bidsage %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

// takeValue consumes the value of a --flag, supporting both
// "--flag value" and "--flag=value".
func takeValue(args []string, i *int, name string) (string, bool) {
	arg := args[*i]
	if arg == name {
		if *i+1 < len(args) {
			*i++
			return args[*i], true
		}
		return "", true
	}
	if strings.HasPrefix(arg, name+"=") {
		return strings.TrimPrefix(arg, name+"="), true
	}
	return "", false
}

// resolveConfig applies the common flags on top of file and env config.
func resolveConfig(cf commonFlags) (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath:  cf.configPath,
		CLIDBPath:   cf.dbPath,
		CLILogLevel: cf.logLevel,
	})
}

// openStore opens the configured database, fatal on failure.
func openStore(cfg config.ResolvedConfig) (*store.SQLiteStore, error) {
	dbPath := store.ExpandPath(cfg.DBPath.Value)
	s, err := store.NewStore(store.Config{DBPath: dbPath})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

// newLogger builds a stderr zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func printUsage() {
	fmt.Printf(`bidsage %s - auction archive and bid recommender

Usage:
  bidsage <command> [arguments]

Commands:
  ingest <chat.json>  Ingest sold auctions from a chat export
  recommend           Recommend a bid range for a cohort
  search              List past sales for a cohort
  stats               Show archive statistics
  serve               Serve the web query form and JSON API
  mcp                 Run the MCP stdio server
  version             Print version

Common Flags:
  --db <path>         Database path (default %s)
  --config <path>     Config file (default ~/.bidsage/config.yaml)
  --log-level <lvl>   debug, info, warn or error

Ingest Flags:
  -b, --batch-size    Records per storage transaction
  -p, --progress      Show a live progress bar

Cohort Flags (recommend, search):
  --species <name>    Required; case-insensitive substring match
  --shiny any|yes|no  Shiny filter
  --gender <g>        Gender filter
  --nature <n>        Nature filter
  --min-total-iv <p>  Minimum total IV percentage
  --iv-hp <n> (and --iv-atk, --iv-def, --iv-spatk, --iv-spdef, --iv-speed)
  --min-level, --max-level
`, version, store.DefaultDBPath)
}
