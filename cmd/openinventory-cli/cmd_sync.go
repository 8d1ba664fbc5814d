package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clemoseitano/open-inventory-api/client"
)

func newPushCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push a batch of actions from a JSON file (or stdin with -)",
		Run: func(cmd *cobra.Command, args []string) {
			tenant := requireTenant()

			var data []byte
			var err error
			if file == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				fatal("read batch", err)
			}

			var actions []client.Action
			if err := json.Unmarshal(data, &actions); err != nil {
				fatal("parse batch", err)
			}

			result, err := apiClient.Sync.Push(context.Background(), tenant, actions)
			if err != nil {
				fatal("push", err)
			}

			output(map[string]int{
				"applied":      result.Applied,
				"deduplicated": result.Deduplicated,
			}, fmt.Sprintf("%d", result.Applied))
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "Path to JSON array of actions")
	return cmd
}

func newPullCmd() *cobra.Command {
	var sinceStr string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull journal entries newer than a cursor",
		Run: func(cmd *cobra.Command, args []string) {
			tenant := requireTenant()

			var since *time.Time
			if sinceStr != "" {
				t, err := time.Parse(time.RFC3339Nano, sinceStr)
				if err != nil {
					fatal("parse --since", err)
				}
				since = &t
			}

			entries, err := apiClient.Sync.Pull(context.Background(), tenant, since)
			if err != nil {
				if client.IsFullSyncRequired(err) {
					fmt.Fprintln(os.Stderr, "Cursor predates retained history; run `openinventory download` instead")
					os.Exit(2)
				}
				fatal("pull", err)
			}

			if flagFmt == "table" {
				headers := []string{"ID", "KIND", "SERVER_TS"}
				var rows [][]string
				for _, e := range entries {
					rows = append(rows, []string{e.ActionID, e.Kind, e.ServerTS.Format(time.RFC3339)})
				}
				formatTable(headers, rows)
				return
			}
			output(entries, fmt.Sprintf("%d", len(entries)))
		},
	}
	cmd.Flags().StringVar(&sinceStr, "since", "", "Cursor timestamp (RFC 3339); omit for full journal")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the full tenant snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			tenant := requireTenant()

			export, err := apiClient.Sync.Download(context.Background(), tenant)
			if err != nil {
				fatal("download", err)
			}

			if outPath != "" {
				data, err := json.MarshalIndent(export, "", "  ")
				if err != nil {
					fatal("encode snapshot", err)
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					fatal("write snapshot", err)
				}
				fmt.Fprintf(os.Stderr, "Wrote snapshot to %s (cursor %s)\n", outPath, export.Cursor.Format(time.RFC3339Nano))
				return
			}
			output(export, export.Cursor.Format(time.RFC3339Nano))
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write snapshot to file instead of stdout")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var limit, offset int
	var sinceStr string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query raw push batches (admin role required)",
		Run: func(cmd *cobra.Command, args []string) {
			tenant := requireTenant()

			opts := client.PushHistoryOpts{Limit: limit, Offset: offset}
			if sinceStr != "" {
				t, err := time.Parse(time.RFC3339Nano, sinceStr)
				if err != nil {
					fatal("parse --since", err)
				}
				opts.Since = &t
			}

			entries, err := apiClient.Sync.PushHistory(context.Background(), tenant, opts)
			if err != nil {
				fatal("audit query", err)
			}

			if flagFmt == "table" {
				headers := []string{"ID", "MEMBER", "RECEIVED_AT"}
				var rows [][]string
				for _, e := range entries {
					rows = append(rows, []string{
						fmt.Sprintf("%d", e.ID),
						fmt.Sprintf("%d", e.MemberID),
						e.ReceivedAt.Format("2006-01-02 15:04:05"),
					})
				}
				formatTable(headers, rows)
				return
			}
			output(entries, fmt.Sprintf("%d", len(entries)))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Results offset")
	cmd.Flags().StringVar(&sinceStr, "since", "", "Only batches received after this timestamp (RFC 3339)")
	return cmd
}
