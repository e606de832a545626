// Package version exposes build metadata for the playlist2csv binary.
//
// The variables are populated at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/toozej/playlist2csv/pkg/version.Version=v1.2.3"
package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version of the build.
	Version = "local"
	// Commit is the git commit the binary was built from.
	Commit = ""
	// Branch is the git branch the binary was built from.
	Branch = ""
	// BuiltAt is the build timestamp.
	BuiltAt = ""
	// Builder identifies who or what produced the build.
	Builder = ""
)

// Info holds the build metadata in a serializable form.
type Info struct {
	Version string `json:"Version"`
	Commit  string `json:"Commit"`
	Branch  string `json:"Branch"`
	BuiltAt string `json:"BuiltAt"`
	Builder string `json:"Builder"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Branch:  Branch,
		BuiltAt: BuiltAt,
		Builder: Builder,
	}
}

// Command returns the "version" subcommand, which prints build metadata as JSON.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Long:  `Print the version and build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.Marshal(Get())
			if err != nil {
				return fmt.Errorf("marshalling version info: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
