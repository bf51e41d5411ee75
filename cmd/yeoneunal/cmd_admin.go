package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"yeoneunal/internal/api"

	"github.com/spf13/cobra"
)

var (
	adminAnalysis     string
	adminAnalysisFile string
	adminLimit        int
)

// adminCmd groups maintenance commands
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Backend maintenance commands",
}

var adminReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Create, inspect, edit and delete reports",
}

var adminReportGetCmd = &cobra.Command{
	Use:   "get <reportId>",
	Short: "Print a report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminReportGet,
}

var adminReportCreateCmd = &cobra.Command{
	Use:   "create <recordId>",
	Short: "Create a report for a recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminReportCreate,
}

var adminReportUpdateCmd = &cobra.Command{
	Use:   "update <reportId>",
	Short: "Replace a report's analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminReportUpdate,
}

var adminReportDeleteCmd = &cobra.Command{
	Use:   "delete <reportId>",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminReportDelete,
}

var adminReportRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the newest reports",
	Args:  cobra.NoArgs,
	RunE:  runAdminReportRecent,
}

func init() {
	for _, c := range []*cobra.Command{adminReportCreateCmd, adminReportUpdateCmd} {
		c.Flags().StringVar(&adminAnalysis, "analysis", "", "Analysis JSON")
		c.Flags().StringVar(&adminAnalysisFile, "analysis-file", "", "File holding the analysis JSON")
	}
	adminReportRecentCmd.Flags().IntVar(&adminLimit, "limit", 0, "Number of reports (default: report.recent_limit)")

	adminReportCmd.AddCommand(adminReportGetCmd)
	adminReportCmd.AddCommand(adminReportCreateCmd)
	adminReportCmd.AddCommand(adminReportUpdateCmd)
	adminReportCmd.AddCommand(adminReportDeleteCmd)
	adminReportCmd.AddCommand(adminReportRecentCmd)
	adminCmd.AddCommand(adminReportCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdminReportGet(cmd *cobra.Command, args []string) error {
	id, err := parseID("report id", args[0])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	rep, err := newClient().GetReport(ctx, id)
	if err != nil {
		return fail("report lookup", err)
	}
	return printJSON(cmd, rep)
}

func runAdminReportCreate(cmd *cobra.Command, args []string) error {
	recordID, err := parseID("record id", args[0])
	if err != nil {
		return err
	}
	analysis, err := analysisInput()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	rep, err := newClient().CreateReport(ctx, recordID, analysis)
	if err != nil {
		return fail("report creation", err)
	}
	return printJSON(cmd, rep)
}

func runAdminReportUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID("report id", args[0])
	if err != nil {
		return err
	}
	analysis, err := analysisInput()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	rep, err := newClient().UpdateReport(ctx, id, analysis)
	if err != nil {
		return fail("report update", err)
	}
	return printJSON(cmd, rep)
}

func runAdminReportDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID("report id", args[0])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := newClient().DeleteReport(ctx, id); err != nil {
		return fail("report deletion", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %d\n", id)
	return nil
}

func runAdminReportRecent(cmd *cobra.Command, args []string) error {
	limit := adminLimit
	if limit <= 0 {
		limit = cfg.Report.RecentLimit
	}
	ctx, cancel := commandContext()
	defer cancel()

	reports, err := newClient().RecentReports(ctx, limit)
	if err != nil {
		return fail("recent reports", err)
	}
	return printJSON(cmd, reports)
}

// analysisInput reads the analysis from --analysis or --analysis-file and
// checks it is a JSON object.
func analysisInput() (string, error) {
	text := adminAnalysis
	if adminAnalysisFile != "" {
		data, err := os.ReadFile(adminAnalysisFile)
		if err != nil {
			return "", fmt.Errorf("failed to read analysis file: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("--analysis or --analysis-file is required")
	}
	if r := api.ParseAnalysis([]byte(text)); r.Kind != api.AnalysisParsed {
		return "", fmt.Errorf("analysis is not a JSON object")
	}
	return text, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
