package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/internal/server"
	"github.com/goliatone/go-schemabuild/internal/store"
	"github.com/goliatone/go-schemabuild/pkg/schema"
)

type config struct {
	Schema    string `env:"SCHEMABUILD_SCHEMA" envDefault:"nextflow_schema.json"`
	Listen    string `env:"SCHEMABUILD_LISTEN" envDefault:"localhost:5173"`
	StaticDir string `env:"SCHEMABUILD_STATIC_DIR"`
	NoBrowser bool   `env:"SCHEMABUILD_NO_BROWSER"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatalf("invalid environment: %v", err)
	}

	schemaPath := flag.String("schema", cfg.Schema, "schema file to edit")
	listen := flag.String("listen", cfg.Listen, "address to serve the editor on")
	staticDir := flag.String("static", cfg.StaticDir, "directory with prebuilt GUI assets")
	noBrowser := flag.Bool("no-browser", cfg.NoBrowser, "do not open the editor in a browser")
	noSanitize := flag.Bool("no-sanitize", false, "keep help text HTML as sent by the editor")
	yes := flag.Bool("yes", false, "create a starter schema without asking")
	validateOnly := flag.Bool("validate", false, "validate the schema file and exit without serving")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	fileStore := store.New(*schemaPath, store.WithLogger(logger))
	if *validateOnly {
		if err := validateSchema(fileStore); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", fileStore.Path(), err)
			os.Exit(1)
		}
		fmt.Printf("%s is valid\n", fileStore.Path())
		return
	}
	if !fileStore.Exists() {
		if err := createStarterSchema(fileStore, *yes); err != nil {
			logger.Fatal("cannot start without a schema file", zap.Error(err))
		}
	}

	srv := server.New(fileStore,
		server.WithLogger(logger),
		server.WithStaticDir(*staticDir),
		server.WithSanitize(!*noSanitize),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := "http://" + *listen
	logger.Info("serving schema editor",
		zap.String("schema", fileStore.Path()),
		zap.String("url", url),
	)
	if !*noBrowser {
		if err := openBrowser(url); err != nil {
			logger.Warn("could not open browser", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Open %s in your browser to edit the schema.\n", url)
		}
	}

	if err := srv.ListenAndServe(ctx, *listen); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}

	select {
	case <-srv.Finished():
		fmt.Printf("Schema saved to %s\n", fileStore.Path())
	default:
		logger.Info("interrupted, schema left as last saved")
	}
}

// validateSchema loads the schema file and checks every document invariant,
// without starting the server.
func validateSchema(fileStore *store.FileStore) error {
	doc, err := fileStore.Load()
	if err != nil {
		return err
	}
	if v := schema.Validate(doc); v != nil {
		return v
	}
	return nil
}

// createStarterSchema writes a minimal schema so the editor has something to
// open. Unless -yes is set the user is asked first.
func createStarterSchema(fileStore *store.FileStore, assumeYes bool) error {
	if !assumeYes {
		create := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("%s does not exist. Create a starter schema?", fileStore.Path()),
			Default: true,
		}
		if err := survey.AskOne(prompt, &create); err != nil {
			return err
		}
		if !create {
			return fmt.Errorf("no schema file at %s", fileStore.Path())
		}
	}
	name := pipelineName(fileStore.Path())
	return fileStore.Save(store.DefaultDocument(name))
}

// pipelineName guesses a pipeline name from the directory holding the schema.
func pipelineName(schemaPath string) string {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return "pipeline"
	}
	name := filepath.Base(filepath.Dir(abs))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "pipeline"
	}
	return name
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
