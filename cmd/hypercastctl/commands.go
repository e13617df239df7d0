package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hypercast/internal/app"
	"hypercast/internal/middleware"
	"hypercast/internal/storage"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List published episodes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			components, err := app.Open(cfg)
			if err != nil {
				return err
			}
			defer components.Close()

			episodes := components.Episodes.ListRecent(cmd.Context())
			if len(episodes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No episodes")
				return nil
			}

			rows := make([][]string, 0, len(episodes))
			for _, ep := range episodes {
				rows = append(rows, []string{
					strconv.FormatInt(ep.ID, 10),
					ep.Title,
					ep.PubDate,
					ep.DurationOrDefault(),
					ep.Filename,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Published", "Duration", "File"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <text-or-url>",
		Short: "Submit text or an article URL to a running server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.APIToken == "" {
				return errors.New("no API key: set API_TOKEN or pass --api-key")
			}

			body, err := json.Marshal(map[string]string{"input": strings.Join(args, " ")})
			if err != nil {
				return err
			}
			url := strings.TrimRight(ctx.serverURL, "/") + "/create"
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(middleware.APIKeyHeader, cfg.APIToken)

			client := &http.Client{Timeout: 60 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("submit failed: %w", err)
			}
			defer resp.Body.Close()

			var reply struct {
				Message string `json:"message"`
				Error   string `json:"error"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&reply)
			if resp.StatusCode != http.StatusAccepted {
				if reply.Error == "" {
					reply.Error = resp.Status
				}
				return fmt.Errorf("submit rejected (%d): %s", resp.StatusCode, reply.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return nil
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale temporary audio files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			components, err := app.Open(cfg)
			if err != nil {
				return err
			}
			defer components.Close()

			removed, err := components.Sweeper.Sweep()
			if errors.Is(err, storage.ErrSweepLocked) {
				fmt.Fprintln(cmd.OutOrStdout(), "Another sweep is running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale file(s)\n", removed)
			return nil
		},
	}
}
