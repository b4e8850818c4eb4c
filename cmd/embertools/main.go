package main

import (
	"fmt"
	"os"

	"code.emberchain.io/ember/tools/snapshotdb"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "embertools",
		Short:         "Operator tooling for an ember node's storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(snapshotListCmd())
	root.AddCommand(syncProgressCmd())
	return root
}

func snapshotListCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List the snapshots held in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshotdb.ListSnapshots(cmd.OutOrStdout(), dbPath)
		},
	}
	cmd.Flags().StringVarP(&dbPath, "db-path", "d", "", "path to the snapshot store")
	_ = cmd.MarkFlagRequired("db-path")
	return cmd
}

func syncProgressCmd() *cobra.Command {
	var (
		dbPath string
		height uint64
	)
	cmd := &cobra.Command{
		Use:   "sync-progress",
		Short: "Show the snapshot sync progress for a height",
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshotdb.ShowSyncProgress(cmd.OutOrStdout(), dbPath, height)
		},
	}
	cmd.Flags().StringVarP(&dbPath, "db-path", "d", "", "path to the snapshot store")
	cmd.Flags().Uint64VarP(&height, "block-height", "b", 0, "height of the sync session")
	_ = cmd.MarkFlagRequired("db-path")
	_ = cmd.MarkFlagRequired("block-height")
	return cmd
}
