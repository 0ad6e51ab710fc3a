package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eigerco/bramble/internal/gen"
	"github.com/eigerco/bramble/pkg/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "storegen:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		opts    gen.Options
		output  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "storegen",
		Short: "Generate typed collection bindings for annotated record structs",
		Long: `storegen reads a record struct whose fields carry store tags and writes
the collection accessors for it next to the struct, ready for use with
pkg/store. It is meant to run under go generate:

    //go:generate go run github.com/eigerco/bramble/cmd/storegen --type Entry

The field tagged store:"key" becomes the collection key; every field
tagged store:"index" gets a secondary index accessor.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})

			src, err := gen.Generate(opts)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = gen.DefaultOutput(opts.Type)
			}
			if !filepath.IsAbs(path) {
				path = filepath.Join(opts.Dir, path)
			}
			if err := os.WriteFile(path, src, 0o644); err != nil {
				return fmt.Errorf("write binding: %w", err)
			}
			log.Codegen.Info().Str("path", path).Msg("wrote collection binding")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "record struct to bind (required)")
	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "package directory to scan")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "collection name (default: snake_case of the type)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file name (default: <type>_store.go)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
