package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/application/projections"
)

func migrateCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfg)
			if err != nil {
				return err
			}
			defer a.close()
			v, err := storage.SchemaVersion(a.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d)\n", v, storage.LatestSchemaVersion())
			return nil
		},
	}
}

func seedCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample data into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return a.seed(cmd.Context())
		},
	}
}

// statsReport is the output of the stats command.
type statsReport struct {
	Attendance projections.AttendanceStats `json:"attendance"`
	Events     projections.EventStats      `json:"events"`
	Sessions   projections.SessionStats    `json:"sessions"`
}

func statsCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print attendance, event and session statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(*cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			var report statsReport
			if report.Attendance, err = projections.QueryAttendanceStats(ctx, projections.GetAttendanceStatsDeps{MemberStore: a.members}); err != nil {
				return err
			}
			if report.Events, err = projections.QueryEventStats(ctx, projections.GetEventStatsDeps{EventStore: a.events}); err != nil {
				return err
			}
			if report.Sessions, err = projections.QuerySessionStats(ctx, projections.GetSessionStatsDeps{SessionStore: a.sessions}); err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}
}

func writeReport(w io.Writer, report statsReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (schema %d)\n", programName, version, storage.LatestSchemaVersion())
		},
	}
}
