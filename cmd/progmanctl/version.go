package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"progman-api/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client and server versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		local := version.Get()
		remote, err := apiClient().Version(cmd.Context())
		if flagJSON {
			out := map[string]interface{}{"client": local}
			if err == nil {
				out["server"] = remote
			}
			return printJSON(out)
		}

		fmt.Printf("client: %s (%s, built %s)\n", local.Version, local.Commit, local.BuildDate)
		if err != nil {
			fmt.Printf("server: unavailable (%v)\n", err)
			return nil
		}
		fmt.Printf("server: %s (%s, built %s)\n", remote.Version, remote.Commit, remote.BuildDate)
		return nil
	},
}

