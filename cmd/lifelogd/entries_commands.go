package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lifelog/internal/api"
)

func newEntriesCommand(cctx *commandContext) *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect and manage journal entries",
	}

	entriesCmd.AddCommand(newEntriesListCommand(cctx))
	entriesCmd.AddCommand(newEntriesReprocessCommand(cctx))

	return entriesCmd
}

func newEntriesListCommand(cctx *commandContext) *cobra.Command {
	var (
		owner     int64
		mood      string
		tag       string
		since     string
		until     string
		favorites bool
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cctx.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			if mood != "" {
				query.Set("mood", mood)
			}
			if tag != "" {
				query.Set("tag", tag)
			}
			if since != "" {
				query.Set("since", since)
			}
			if until != "" {
				query.Set("until", until)
			}
			if favorites {
				query.Set("favorites", "true")
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			path := "/api/entries"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var page api.EntryPage
			if err := client.get(cmd.Context(), path, owner, &page); err != nil {
				return err
			}

			if cctx.jsonOutput() {
				return writeJSON(cmd, page)
			}

			rows := make([][]string, 0, len(page.Entries))
			for _, e := range page.Entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.RecordedAt,
					entryTitle(e),
					e.Mood,
					strings.Join(append(append([]string{}, e.ManualTags...), e.AutoTags...), ", "),
					e.Status,
					favoriteMark(e.IsFavorite),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Recorded", "Title", "Mood", "Tags", "Status", "Fav"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d entries\n", len(page.Entries), page.Total)
			return nil
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 1, "Owner account ID")
	cmd.Flags().StringVar(&mood, "mood", "", "Filter by mood")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by manual or auto tag")
	cmd.Flags().StringVar(&since, "since", "", "Only entries recorded at or after this RFC3339 time")
	cmd.Flags().StringVar(&until, "until", "", "Only entries recorded at or before this RFC3339 time")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only favorite entries")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func newEntriesReprocessCommand(cctx *commandContext) *cobra.Command {
	var owner int64

	cmd := &cobra.Command{
		Use:   "reprocess <id>",
		Short: "Requeue a finished entry through the enrichment pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid entry id %q", args[0])
			}

			client, err := cctx.client()
			if err != nil {
				return err
			}
			if err := client.post(cmd.Context(), fmt.Sprintf("/api/entries/%d/reprocess", id), owner, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %d queued for reprocessing\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 1, "Owner account ID")
	return cmd
}

func entryTitle(e api.EntryView) string {
	if e.Title != "" {
		return e.Title
	}
	if e.Note != "" {
		if len(e.Note) > 40 {
			return e.Note[:40] + "..."
		}
		return e.Note
	}
	return "(untitled)"
}

func favoriteMark(fav bool) string {
	if fav {
		return "*"
	}
	return ""
}
