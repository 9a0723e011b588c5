package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danielgruen/ngmixer/internal/config"
	"github.com/danielgruen/ngmixer/internal/logging"
	"github.com/danielgruen/ngmixer/internal/manifest"
	"github.com/danielgruen/ngmixer/internal/provenance"
	"github.com/danielgruen/ngmixer/internal/version"
)

// CLI flags
var (
	dirFlag      string
	manifestFlag string
	logLevelFlag string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "ngmixer-build",
	Short: "Package ngmixer with a recorded source revision",
	Long: `ngmixer-build packages the ngmixer scripts and code packages and records the
git revision they were built from.

The revision is the HEAD commit of the checkout, suffixed with -dirty when
tracked files have uncommitted changes. If the revision cannot be determined
the build is aborted rather than stamped with a guess.

Examples:
  ngmixer-build package
  ngmixer-build install --prefix ~/.local
  ngmixer-build ldflags
  go build -ldflags "$(ngmixer-build ldflags)" ./...`,
	Version:           version.Full(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", ".", "Repository root")
	rootCmd.PersistentFlags().StringVarP(&manifestFlag, "manifest", "f", "", "Manifest file (default: ngmixer.{yaml,yml,json,hcl} in --dir)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(stampCmd, resetCmd, showCmd, scriptsCmd, checkCmd, packageCmd, installCmd, ldflagsCmd, versionCmd)
}

func main() {
	// cancel on SIGINT/SIGTERM so an interrupted build still resets its stamp
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("ngmixer-build failed")
		os.Exit(1)
	}
}

// env is the state shared by every subcommand, filled in by setup.
var env struct {
	root     string
	cfg      config.Config
	manifest *manifest.Manifest
}

func setup(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(dirFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	logging.Init(cfg.LogLevel)

	env.root = root
	env.cfg = cfg
	if cmd == versionCmd {
		return nil
	}
	env.manifest, err = loadManifest(root, cfg)
	return err
}

func loadManifest(root string, cfg config.Config) (*manifest.Manifest, error) {
	path := manifestFlag
	if path == "" {
		path = cfg.Manifest
	}
	if path == "" {
		found, err := manifest.Find(root)
		if errors.Is(err, manifest.ErrNotFound) {
			log.Warn().Str("dir", root).Msg("No manifest found, using built-in ngmixer metadata")
			return manifest.Default(), nil
		}
		if err != nil {
			return nil, err
		}
		path = found
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("name", m.Name).Str("version", m.Version).Msg("Loaded manifest")
	return m, nil
}

// resolver honours a pinned NGMIXER_REVISION before asking git.
func resolver() provenance.Resolver {
	if env.cfg.Revision != "" {
		return provenance.Static{Stamp: provenance.Parse(env.cfg.Revision)}
	}
	r := provenance.GitResolver{Dir: env.root, IncludeUntracked: env.cfg.IncludeUntracked}
	if s := env.manifest.Stamp; s != nil && s.IncludeUntracked {
		r.IncludeUntracked = true
	}
	return r
}

func abbrev() int {
	if s := env.manifest.Stamp; s != nil {
		return s.Abbrev
	}
	return 0
}

func printf(cmd *cobra.Command, format string, a ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
