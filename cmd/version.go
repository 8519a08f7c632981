package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version and, when reachable, the CIP server version",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotationSession: sessionOptional,
	},
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cip %s (built %s)\n", version, buildTime)

	if client == nil || !client.IsConnected() {
		return nil
	}

	server, err := client.ServerVersion(cmd.Context())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to get server version")
		return nil
	}

	fmt.Fprintf(out, "CIP server %s at %s\n", server.Raw, client.Endpoint())
	for _, name := range slices.Sorted(maps.Keys(server.Components)) {
		if name == "cip" {
			continue
		}
		fmt.Fprintf(out, "  %s: %s\n", name, server.Components[name])
	}

	return nil
}
