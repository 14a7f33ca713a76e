package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/deevus/siem-tui/events"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	format    string
	query     string
	hostname  string
	startDate string
	endDate   string
	severity  string
	eventType string
	out       string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export matching events to the download directory",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the configured server is reachable and accepts the credentials",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.format, "format", "csv", "export format (json or csv)")
	f.StringVar(&exportFlags.query, "query", "", "free-text search")
	f.StringVar(&exportFlags.hostname, "hostname", "", "hostname filter")
	f.StringVar(&exportFlags.startDate, "start-date", "", "start date (YYYY-MM-DD)")
	f.StringVar(&exportFlags.endDate, "end-date", "", "end date (YYYY-MM-DD)")
	f.StringVar(&exportFlags.severity, "severity", "", "severity (low, medium, high, critical)")
	f.StringVar(&exportFlags.eventType, "event-type", "", "event type filter")
	f.StringVar(&exportFlags.out, "out", "", "output directory (defaults to console.download_dir)")

	rootCmd.AddCommand(exportCmd, checkCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if !events.ValidFormat(exportFlags.format) {
		return fmt.Errorf("unsupported export format %q", exportFlags.format)
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	dir := exportFlags.out
	if dir == "" {
		dir = s.cfg.Console.DownloadDir
	}
	exporter := events.NewExporter(events.ExporterParams{
		Service: s.client,
		Dir:     dir,
		Timeout: s.cfg.Console.ExportTimeout.Duration,
		Logger:  s.logger,
	})
	filter := events.Filter{
		Query:     exportFlags.query,
		Hostname:  exportFlags.hostname,
		StartDate: exportFlags.startDate,
		EndDate:   exportFlags.endDate,
		Severity:  exportFlags.severity,
		EventType: exportFlags.eventType,
	}
	res, err := exporter.Export(cmd.Context(), filter, exportFlags.format)
	if err != nil {
		return errors.New(events.ExportMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", res.Path, humanize.Bytes(uint64(res.Bytes)))
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.Console.SearchTimeout.Duration)
	defer cancel()

	start := time.Now()
	if err := s.client.Probe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: unreachable\n", s.name)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, authenticated %s)\n",
		s.name, time.Since(start).Round(time.Millisecond), humanize.Time(s.client.Session().LastRefresh()))
	return nil
}
