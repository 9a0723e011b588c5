package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danielgruen/ngmixer/internal/license"
	"github.com/danielgruen/ngmixer/internal/packager"
	"github.com/danielgruen/ngmixer/internal/provenance"
	"github.com/danielgruen/ngmixer/internal/scripts"
	"github.com/danielgruen/ngmixer/internal/stampfile"
	"github.com/danielgruen/ngmixer/internal/version"
)

var (
	printOnly  bool
	prefixFlag string
	outputFlag string
)

var stampCmd = &cobra.Command{
	Use:   "stamp",
	Short: "Write the current revision into the stamp artifact",
	Long: `Resolve the checkout's revision and write it into the generated stamp
artifact. Run "ngmixer-build reset" afterwards to restore the placeholder;
"package" and "install" do both automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := provenance.Abbreviated(resolver(), abbrev())
		if printOnly {
			s, err := r.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", s)
			return nil
		}
		a, err := artifact()
		if err != nil {
			return err
		}
		s, err := stampfile.NewSession(a, log.Logger).Stamp(cmd.Context(), r)
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", s)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the neutral placeholder in the stamp artifact",
	Long: `Write the neutral placeholder into the stamp artifact, creating it if the
tree does not have one yet. Commit the result; builds refuse to stamp an
artifact that is not already there.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artifact()
		if err != nil {
			return err
		}
		if err := a.Reset(); err != nil {
			return err
		}
		log.Debug().Str("path", a.Path).Msg("Reset build artifact")
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the value currently held by the stamp artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := artifact()
		if err != nil {
			return err
		}
		v, err := a.Read()
		if err != nil {
			return err
		}
		if v == stampfile.Neutral {
			printf(cmd, "(neutral)\n")
			return nil
		}
		printf(cmd, "%s\n", v)
		return nil
	},
}

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List the entry points that would be installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := env.manifest
		found, skipped, err := scripts.Discover(env.root, scripts.Options{Dir: m.Scripts.Dir, Patterns: m.Scripts.Patterns})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH\tLANGUAGE\tEXECUTABLE")
		for _, s := range found {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.Name, s.Path, s.Language, s.Executable)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, s := range skipped {
			log.Debug().Str("path", s.Path).Str("filter", s.Filter).Msg("Excluded")
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the manifest, license and provenance without building",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := env.manifest
		if err := m.Validate(); err != nil {
			return err
		}
		normalizer := license.NewNormalizer()
		declared := normalizer.Normalize(m.License)

		best, err := license.Best(env.root)
		switch {
		case errors.Is(err, license.ErrNotFound):
			log.Warn().Str("declared", declared).Msg("No license file in repository")
		case err != nil:
			return err
		case !normalizer.Same(declared, best.SPDX):
			log.Warn().
				Str("declared", declared).
				Str("detected", best.SPDX).
				Float32("confidence", best.Confidence).
				Msg("Declared license does not match license file")
		default:
			log.Info().Str("license", best.SPDX).Float32("confidence", best.Confidence).Msg("License file matches manifest")
		}

		s, err := provenance.Abbreviated(resolver(), abbrev()).Resolve(cmd.Context())
		if err != nil {
			return err
		}
		v, err := m.StampedVersion(s)
		if err != nil {
			return err
		}
		printf(cmd, "%s %s\n", m.Name, v)
		return nil
	},
}

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Build the distribution archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := builder()
		if outputFlag != "" {
			out, err := filepath.Abs(outputFlag)
			if err != nil {
				return err
			}
			b.Output = out
		}
		res, err := b.Build(cmd.Context())
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", res.Archive)
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install entry points and packages into a prefix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if prefixFlag == "" {
			return fmt.Errorf("install: --prefix is required")
		}
		res, err := builder().Install(cmd.Context(), prefixFlag)
		if err != nil {
			return err
		}
		for _, s := range res.Scripts {
			printf(cmd, "%s\n", s.Name)
		}
		return nil
	},
}

var ldflagsCmd = &cobra.Command{
	Use:   "ldflags",
	Short: "Print -ldflags that stamp a Go build with the current revision",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := provenance.Abbreviated(resolver(), abbrev()).Resolve(cmd.Context())
		if err != nil {
			return err
		}
		flags, err := packager.LDFlags(env.root, env.manifest.Version, s, time.Now())
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", packager.JoinFlags(flags))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ngmixer-build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd, "%s\n", version.Full())
	},
}

func init() {
	stampCmd.Flags().BoolVar(&printOnly, "print", false, "Print the stamp without writing the artifact")
	packageCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Archive directory, relative to the working directory (default: <dir>/dist)")
	installCmd.Flags().StringVar(&prefixFlag, "prefix", "", "Installation prefix")
}

func builder() *packager.Builder {
	b := packager.NewBuilder(env.root, env.manifest, log.Logger)
	b.Resolver = resolver()
	return b
}

func artifact() (stampfile.Artifact, error) {
	a, ok := builder().Artifact()
	if !ok {
		return stampfile.Artifact{}, fmt.Errorf("manifest %q configures no stamp artifact", env.manifest.Name)
	}
	return a, nil
}
