package main

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/levtools/mediagrab/internal/domain"
)

const followInterval = time.Second

var (
	serverURL    string
	serverConfig string
	noAutoStart  bool
	api          *apiClient
	rootCmd      = &cobra.Command{
		Use:   "mediagrab",
		Short: "mediagrab CLI - resolve social media links into downloadable media",
		Long:  `A command-line interface for the mediagrab server: submit links, follow their progress, run batches and browse the history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			api = newAPIClient(serverURL)
			ensureServer()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVar(&serverConfig, "server-config", "", "Config file passed to an auto-started server")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(redownloadCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(priorityCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(platformsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(api); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var submitCmd = &cobra.Command{
	Use:   "submit [url]",
	Short: "Resolve a link into downloadable media",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		platform, _ := cmd.Flags().GetString("platform")
		contentType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")
		async, _ := cmd.Flags().GetBool("async")
		follow, _ := cmd.Flags().GetBool("follow")

		payload := map[string]string{
			"url":         args[0],
			"platform":    platform,
			"contentType": contentType,
		}
		if priority != "" {
			payload["priority"] = priority
		}

		if !async {
			var outcome domain.DownloadOutcome
			exitOnError(api.post("/api/v1/downloads", payload, &outcome))
			printOutcome(outcome)
			if !outcome.Success {
				os.Exit(1)
			}
			return
		}

		var item domain.QueueItem
		exitOnError(api.post("/api/v1/downloads?async=true", payload, &item))
		fmt.Printf("Download queued\n")
		fmt.Printf("ID:       %s\n", item.DownloadID)
		fmt.Printf("Priority: %s\n", item.Priority)

		if follow {
			final := followProgress(item.DownloadID)
			if final.Status != domain.StatusCompleted {
				os.Exit(1)
			}
		}
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress [id]",
	Short: "Show the progress of a download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Found    bool             `json:"found"`
			Progress domain.QueueItem `json:"progress"`
		}
		if err := api.get("/api/v1/downloads/"+url.PathEscape(args[0])+"/progress", &resp); err != nil {
			if e, ok := err.(*apiError); ok && e.Status == http.StatusNotFound {
				fmt.Println("Download not found")
				os.Exit(1)
			}
			exitOnError(err)
		}
		printItem(resp.Progress)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a queued or processing download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(api.post("/api/v1/downloads/"+url.PathEscape(args[0])+"/cancel", nil, nil))
		fmt.Println("Download cancelled successfully")
	},
}

var redownloadCmd = &cobra.Command{
	Use:   "redownload [id]",
	Short: "Submit the request of an earlier download again",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var outcome domain.DownloadOutcome
		exitOnError(api.post("/api/v1/downloads/"+url.PathEscape(args[0])+"/redownload", nil, &outcome))
		printOutcome(outcome)
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List tracked downloads in dequeue order",
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Count int                `json:"count"`
			Items []domain.QueueItem `json:"items"`
		}
		exitOnError(api.get("/api/v1/downloads", &resp))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tPLATFORM\tTYPE\tPRIORITY\tSTATUS\tPROGRESS")
		for _, it := range resp.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d%%\n",
				it.DownloadID,
				truncate(it.URL, 40),
				it.Platform,
				it.ContentType,
				it.Priority,
				it.Status,
				it.ProgressPct)
		}
		w.Flush()
	},
}

var priorityCmd = &cobra.Command{
	Use:   "priority [id] [high|normal|low]",
	Short: "Change the priority of a queued download",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var item domain.QueueItem
		exitOnError(api.put("/api/v1/downloads/"+url.PathEscape(args[0])+"/priority",
			map[string]string{"priority": args[1]}, &item))
		fmt.Printf("Priority of %s set to %s\n", item.DownloadID, item.Priority)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [url...]",
	Short: "Resolve several links of one platform, one at a time",
	Run: func(cmd *cobra.Command, args []string) {
		platform, _ := cmd.Flags().GetString("platform")
		contentType, _ := cmd.Flags().GetString("type")
		file, _ := cmd.Flags().GetString("file")
		wait, _ := cmd.Flags().GetBool("wait")

		urls := append([]string{}, args...)
		if file != "" {
			valid, problems, err := readBatchFile(file)
			exitOnError(err)
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "Skipping %s: %s\n", file, p)
			}
			urls = append(urls, valid...)
		}
		if len(urls) == 0 {
			exitOnError(fmt.Errorf("no usable URLs given"))
		}

		var report domain.BatchReport
		exitOnError(api.post("/api/v1/batches", map[string]any{
			"urls":        urls,
			"platform":    platform,
			"contentType": contentType,
		}, &report))
		fmt.Printf("Batch started\n")
		fmt.Printf("ID:    %s\n", report.BatchID)
		fmt.Printf("Items: %d\n", len(report.Items))

		if !wait {
			return
		}
		for report.State == domain.BatchRunning {
			time.Sleep(followInterval)
			exitOnError(api.get("/api/v1/batches/"+url.PathEscape(report.BatchID), &report))
		}
		printBatch(report)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the download history",
	Run: func(cmd *cobra.Command, args []string) {
		platform, _ := cmd.Flags().GetString("platform")
		limit, _ := cmd.Flags().GetInt("limit")

		q := url.Values{}
		if platform != "" {
			q.Set("platform", platform)
		}
		if limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		path := "/api/v1/history"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var resp struct {
			Entries []domain.HistoryEntry `json:"entries"`
		}
		exitOnError(api.get(path, &resp))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tPLATFORM\tTYPE\tRESULT\tURL")
		for _, e := range resp.Entries {
			result := "ok"
			if !e.Success {
				result = "failed"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Platform,
				e.ContentType,
				result,
				truncate(e.URL, 50))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		var stats domain.QueueStats
		exitOnError(api.get("/api/v1/downloads/stats", &stats))

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Queued:     %d\n", stats.Queued)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
	},
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms and content types",
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Platforms map[string][]string `json:"platforms"`
		}
		exitOnError(api.get("/api/v1/platforms", &resp))

		names := make([]string, 0, len(resp.Platforms))
		for name := range resp.Platforms {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-10s %s\n", name, strings.Join(resp.Platforms[name], ", "))
		}
	},
}

func init() {
	submitCmd.Flags().StringP("platform", "p", "", "Platform (tiktok, instagram, youtube, ...)")
	submitCmd.Flags().StringP("type", "t", "", "Content type (video, slide, mp4, ...)")
	submitCmd.Flags().String("priority", "", "Queue priority (high, normal, low)")
	submitCmd.Flags().Bool("async", false, "Queue the request and return immediately")
	submitCmd.Flags().BoolP("follow", "f", false, "With --async, poll progress until the download finishes")
	_ = submitCmd.MarkFlagRequired("platform")
	_ = submitCmd.MarkFlagRequired("type")

	batchCmd.Flags().StringP("platform", "p", "", "Platform shared by every URL")
	batchCmd.Flags().StringP("type", "t", "", "Content type shared by every URL")
	batchCmd.Flags().String("file", "", "Read URLs from a file, one per line")
	batchCmd.Flags().BoolP("wait", "w", false, "Wait for the batch to finish and print the report")
	_ = batchCmd.MarkFlagRequired("platform")
	_ = batchCmd.MarkFlagRequired("type")

	historyCmd.Flags().StringP("platform", "p", "", "Filter by platform")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries")
}

// followProgress polls id until it reaches a terminal status
func followProgress(id string) domain.QueueItem {
	var last domain.Status
	for {
		var resp struct {
			Found    bool             `json:"found"`
			Progress domain.QueueItem `json:"progress"`
		}
		exitOnError(api.get("/api/v1/downloads/"+url.PathEscape(id)+"/progress", &resp))

		item := resp.Progress
		if item.Status != last {
			fmt.Printf("  %-10s %3d%%\n", item.Status, item.ProgressPct)
			last = item.Status
		}
		if item.IsTerminal() {
			if item.Error != "" {
				fmt.Printf("Error: %s\n", item.Error)
			}
			return item
		}
		time.Sleep(followInterval)
	}
}

func printOutcome(o domain.DownloadOutcome) {
	fmt.Printf("ID:      %s\n", o.DownloadID)
	if !o.Success {
		msg := "download failed"
		if o.ErrorMessage != nil {
			msg = *o.ErrorMessage
		}
		fmt.Printf("Failed:  %s\n", msg)
		if o.Retryable {
			fmt.Println("         (temporary, try again later)")
		}
		return
	}

	r := o.CanonicalResult
	if r == nil {
		return
	}
	if r.Title != "" {
		fmt.Printf("Title:   %s\n", r.Title)
	}
	if r.Author != "" {
		fmt.Printf("Author:  %s\n", r.Author)
	}
	if o.Quality != nil {
		fmt.Printf("Quality: %s\n", *o.Quality)
	}
	if o.EstimatedSizeBytes != nil {
		fmt.Printf("Size:    ~%.1f MB\n", float64(*o.EstimatedSizeBytes)/1_000_000)
	}
	fmt.Printf("Media (%s):\n", r.Kind)
	for _, it := range r.Items {
		label := string(it.Kind)
		if it.Variant != "" {
			label += "/" + string(it.Variant)
		}
		fmt.Printf("  [%s] %s\n      %s\n", label, it.Filename, it.URL)
	}
	for _, warn := range r.Warnings {
		fmt.Printf("Warning: %s\n", warn)
	}
}

func printItem(it domain.QueueItem) {
	fmt.Printf("Download Details:\n")
	fmt.Printf("  ID:       %s\n", it.DownloadID)
	fmt.Printf("  URL:      %s\n", it.URL)
	fmt.Printf("  Platform: %s (%s)\n", it.Platform, it.ContentType)
	fmt.Printf("  Priority: %s\n", it.Priority)
	fmt.Printf("  Status:   %s\n", it.Status)
	fmt.Printf("  Progress: %d%%\n", it.ProgressPct)
	if it.Title != "" {
		fmt.Printf("  Title:    %s\n", it.Title)
	}
	if it.Error != "" {
		fmt.Printf("  Error:    %s\n", it.Error)
	}
	fmt.Printf("  Created:  %s\n", it.CreatedAt.Local().Format(time.RFC3339))
}

func printBatch(r domain.BatchReport) {
	fmt.Printf("Batch %s %s: %d completed, %d failed, %d skipped\n",
		r.BatchID, r.State, r.CompletedCount, r.FailedCount, r.SkippedCount)
	for _, it := range r.Items {
		line := fmt.Sprintf("  %2d. %-10s %s", it.Index+1, it.Status, truncate(it.URL, 60))
		if it.Error != "" {
			line += "  (" + it.Error + ")"
		}
		fmt.Println(line)
	}
}

// readBatchFile reads one URL per line. Problems are numbered by file line.
func readBatchFile(path string) (valid []string, problems []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	valid, problems = domain.ValidateBatchURLs(lines)
	return valid, problems, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	defer func() {
		if api != nil {
			api.close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
