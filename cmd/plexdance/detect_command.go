package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"plexdance/internal/library"
)

type detectReport struct {
	Section   string            `json:"section"`
	Tracks    int               `json:"tracks"`
	Albums    int               `json:"albums"`
	Dirs      int               `json:"directories"`
	Anomalies []library.Anomaly `json:"anomalies"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var plainOut bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Scan the music library for split and merged albums",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.openLibrary(cmd.Context())
			if err != nil {
				return err
			}

			snap, err := lib.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			anomalies := library.Analyze(snap)

			if plainOut {
				// One implicated directory per line, ready for piping.
				for _, dir := range implicatedDirs(anomalies) {
					fmt.Fprintln(cmd.OutOrStdout(), dir)
				}
				return nil
			}
			if jsonOut {
				report := detectReport{
					Section:   lib.SectionTitle(),
					Tracks:    len(snap.Tracks),
					Albums:    len(snap.Albums),
					Dirs:      len(snap.Groups),
					Anomalies: anomalies,
				}
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Library %q: %d tracks, %d albums, %d directories\n",
				lib.SectionTitle(), len(snap.Tracks), len(snap.Albums), len(snap.Groups))

			if len(anomalies) == 0 {
				fmt.Fprintln(out, "No grouping anomalies detected.")
				return nil
			}

			printAnomalies(cmd, anomalies)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	cmd.Flags().BoolVar(&plainOut, "plain", false, "Emit implicated directories one per line")
	return cmd
}

func implicatedDirs(anomalies []library.Anomaly) []string {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	for _, anomaly := range anomalies {
		switch anomaly.Kind {
		case library.KindSplit:
			add(anomaly.Directory)
		case library.KindMerged:
			for _, dir := range anomaly.Directories {
				add(dir)
			}
		}
	}
	sort.Strings(dirs)
	return dirs
}

func printAnomalies(cmd *cobra.Command, anomalies []library.Anomaly) {
	out := cmd.OutOrStdout()

	var splits, merged [][]string
	for _, anomaly := range anomalies {
		switch anomaly.Kind {
		case library.KindSplit:
			splits = append(splits, []string{
				truncatePath(anomaly.Directory, 70),
				fmt.Sprintf("%d", len(anomaly.AlbumKeys)),
				strings.Join(anomaly.AlbumKeys, ", "),
			})
		case library.KindMerged:
			merged = append(merged, []string{
				anomaly.AlbumTitle,
				anomaly.AlbumKey,
				strings.Join(anomaly.Directories, "\n"),
			})
		}
	}

	if len(splits) > 0 {
		fmt.Fprintf(out, "\nSplit albums (%d): one directory, multiple album entries\n", len(splits))
		fmt.Fprintln(out, renderTable([]string{"Directory", "Identities", "Album Keys"}, splits))
	}
	if len(merged) > 0 {
		fmt.Fprintf(out, "\nMerged albums (%d): one album entry, multiple directories\n", len(merged))
		fmt.Fprintln(out, renderTable([]string{"Album", "Key", "Directories"}, merged))
	}
}
