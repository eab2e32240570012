package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/deepdefend/deepdefend-cli/internal/api"
	"github.com/deepdefend/deepdefend-cli/internal/config"
	"github.com/deepdefend/deepdefend-cli/internal/export"
	"github.com/deepdefend/deepdefend-cli/internal/poll"
	"github.com/deepdefend/deepdefend-cli/internal/report"
	"github.com/deepdefend/deepdefend-cli/internal/storage"
	"github.com/deepdefend/deepdefend-cli/internal/video"
	"github.com/deepdefend/deepdefend-cli/internal/workflow"
	"github.com/deepdefend/deepdefend-cli/pkg/logger"
)

func newClient(cfg config.Config) *api.Client {
	return api.New(cfg.APIBase, api.WithTimeout(cfg.HTTPTimeout))
}

func openArchive(cfg config.Config) (*storage.Archive, error) {
	return storage.Open(cfg.ArchivePath)
}

func main() {
	log := logger.GetLogger()

	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Debugf("Executing command: %s", command)

	switch command {
	case "analyze":
		handleAnalyze()
	case "history":
		handleHistory()
	case "stats":
		handleStats()
	case "intervals":
		handleIntervals()
	case "export":
		handleExport()
	case "watch":
		handleWatch()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 ____                  ____        __                _
|  _ \  ___  ___ _ __ |  _ \  ___ / _| ___ _ __   __| |
| | | |/ _ \/ _ \ '_ \| | | |/ _ \ |_ / _ \ '_ \ / _' |
| |_| |  __/  __/ |_) | |_| |  __/  _|  __/ | | | (_| |
|____/ \___|\___| .__/|____/ \___|_|  \___|_| |_|\__,_|
                |_|
           Deepfake Video Analysis CLI
`
	fmt.Println(banner)
}

func handleAnalyze() {
	log := logger.GetLogger()
	cfg := config.Load()

	// Separate the video path from flags.
	args := os.Args[2:]
	var videoPath string
	var flagArgs []string
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && videoPath == "" {
			videoPath = arg
		} else {
			flagArgs = append(flagArgs, args[i:]...)
			break
		}
	}

	analyzeCmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	remoteURL := analyzeCmd.String("url", "", "Remote video URL to download and analyze (alternative to a local file)")
	intervalDuration := analyzeCmd.Float64("interval-duration", api.DefaultIntervalDuration, "Analysis window length in seconds")
	jsonOut := analyzeCmd.Bool("json", false, "Export the raw result as a JSON artifact")
	htmlOut := analyzeCmd.Bool("html", false, "Export a self-contained HTML report")
	outDir := analyzeCmd.String("out", cfg.ExportDir, "Directory for exported artifacts")
	noArchive := analyzeCmd.Bool("no-archive", false, "Skip saving the result to the local archive")
	analyzeCmd.Parse(flagArgs)

	if *remoteURL != "" && videoPath != "" {
		fmt.Println("Error: cannot specify both a video file and --url")
		log.Errorf("Both video file and --url specified")
		os.Exit(1)
	}
	if *remoteURL == "" && videoPath == "" {
		fmt.Println("Error: video file path or --url required")
		fmt.Println("Usage: deepdefend analyze <video_file> [--interval-duration <sec>] [--json] [--html]")
		fmt.Println("   OR: deepdefend analyze --url <url> [--interval-duration <sec>] [--json] [--html]")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout+5*time.Minute)
	defer cancel()

	if *remoteURL != "" {
		if !video.IsRemoteURL(*remoteURL) {
			fmt.Printf("Error: %q is not an http(s) URL\n", *remoteURL)
			os.Exit(1)
		}
		fmt.Println("📥 Downloading video...")
		fmt.Println("   This may take a few moments depending on video length")

		downloaded, meta, err := video.FetchRemote(ctx, *remoteURL, cfg.TempDir)
		if err != nil {
			fmt.Printf("\n❌ Failed to download video: %v\n", err)
			log.Errorf("Remote fetch failed: %v", err)
			os.Exit(1)
		}
		defer os.Remove(downloaded)
		fmt.Printf("✅ Downloaded: %s\n", meta.Title)
		videoPath = downloaded
	}

	// Local probe is display-only context; the service computes its own
	// numbers. A missing ffprobe just skips this block.
	if info, err := video.Probe(ctx, videoPath); err == nil {
		fmt.Printf("🎬 %s  %.1fs  %.1f fps  %s\n",
			info.Filename, info.Duration, info.FPS, humanize.Bytes(uint64(info.FileSizeMB*(1<<20))))
	} else {
		log.Debugf("ffprobe unavailable or failed: %v", err)
	}

	client := newClient(cfg)
	w := workflow.New(client, workflow.WithMaxUploadBytes(cfg.MaxUploadBytes))

	if err := w.Select(videoPath); err != nil {
		fmt.Printf("❌ %v\n", err)
		log.Errorf("Selection rejected: %v", err)
		os.Exit(1)
	}

	fmt.Println("🔍 Analyzing video...")
	fmt.Println("   The service processes every interval before answering")

	result, err := w.Submit(ctx, *intervalDuration)
	if err != nil {
		fmt.Printf("\n❌ Analysis failed: %v\n", err)
		os.Exit(1)
	}

	rep := report.Normalize(result)
	printReport(rep)

	if !*noArchive {
		archive, err := openArchive(cfg)
		if err != nil {
			fmt.Printf("⚠️  Archive unavailable: %v\n", err)
			log.Warnf("Archive open failed: %v", err)
		} else {
			defer archive.Close()
			if _, err := archive.SaveResult(result, filepath.Base(videoPath)); err != nil {
				fmt.Printf("⚠️  Failed to archive result: %v\n", err)
				log.Warnf("Archive save failed: %v", err)
			} else {
				log.Debugf("Archived analysis %s", result.AnalysisID)
			}
		}
	}

	exportArtifacts(result, rep, *jsonOut, *htmlOut, *outDir)
}

// exportArtifacts writes the requested artifacts. A failed export is reported
// and exits non-zero; the rendered report above is already on screen.
func exportArtifacts(result *api.AnalysisResult, rep *report.Report, jsonOut, htmlOut bool, outDir string) {
	log := logger.GetLogger()
	failed := false

	if jsonOut {
		path, err := export.WriteJSON(result, outDir)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			log.Errorf("JSON export failed: %v", err)
			failed = true
		} else {
			fmt.Printf("💾 JSON snapshot: %s\n", path)
		}
	}
	if htmlOut {
		path, err := export.WriteHTML(rep, time.Now(), outDir)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			log.Errorf("HTML export failed: %v", err)
			failed = true
		} else {
			fmt.Printf("💾 HTML report: %s\n", path)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func printReport(rep *report.Report) {
	icon := "✅"
	if rep.Verdict == api.VerdictDeepfake {
		icon = "🚨"
	}

	fmt.Printf("\n%s Verdict: %s (%d%% confidence)\n", icon, rep.Verdict, rep.Confidence)
	fmt.Printf("   Analysis ID: %s\n", rep.AnalysisID)
	if rep.Filename != "" {
		fmt.Printf("   File:        %s\n", rep.Filename)
	}
	if rep.Timestamp != "" {
		fmt.Printf("   Analyzed:    %s\n", rep.Timestamp)
	}

	if rep.HasOverallScores {
		fmt.Println("\n📊 Manipulation scores:")
		printScore("Video", rep.VideoScore)
		printScore("Audio", rep.AudioScore)
		printScore("Combined", rep.CombinedScore)
	}

	if rep.DetailedAnalysis != "" {
		fmt.Printf("\n📝 %s\n", rep.DetailedAnalysis)
	}

	if len(rep.Intervals) > 0 {
		fmt.Printf("\n⚠️  Suspicious intervals (%d of %d analyzed):\n", len(rep.Intervals), rep.TotalIntervalsAnalyzed)
		for _, it := range rep.Intervals {
			fmt.Printf("   %s  video %d%%  audio %d%%\n", it.Label, it.VideoPct, it.AudioPct)
			if len(it.VideoRegions) > 0 {
				fmt.Printf("      video regions: %s\n", strings.Join(it.VideoRegions, ", "))
			}
			if len(it.AudioRegions) > 0 {
				fmt.Printf("      audio regions: %s\n", strings.Join(it.AudioRegions, ", "))
			}
		}
	} else if rep.TotalIntervalsAnalyzed > 0 {
		fmt.Printf("\n✅ No suspicious intervals across %d analyzed\n", rep.TotalIntervalsAnalyzed)
	}
	fmt.Println()
}

func printScore(label string, pct int) {
	marker := map[string]string{
		report.SeverityHigh:   "🔴",
		report.SeverityMedium: "🟡",
		report.SeverityLow:    "🟢",
	}[report.Severity(pct)]
	fmt.Printf("   %s %-8s %3d%%\n", marker, label, pct)
}

func handleHistory() {
	log := logger.GetLogger()
	cfg := config.Load()

	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	limit := historyCmd.Int("limit", cfg.HistoryLimit, "Maximum number of records")
	local := historyCmd.Bool("local", false, "Read from the local archive instead of the service")
	historyCmd.Parse(os.Args[2:])

	if *local {
		archive, err := openArchive(cfg)
		if err != nil {
			fmt.Printf("❌ Failed to open archive: %v\n", err)
			log.Errorf("Archive open failed: %v", err)
			os.Exit(1)
		}
		defer archive.Close()

		records, err := archive.ListRecent(*limit)
		if err != nil {
			fmt.Printf("❌ Failed to read archive: %v\n", err)
			os.Exit(1)
		}
		if len(records) == 0 {
			fmt.Println("\n📭 No archived analyses")
			return
		}

		fmt.Printf("\n📚 %d archived analysis(es):\n\n", len(records))
		for i, r := range records {
			fmt.Printf("%d. %s  %s (%d%%)\n", i+1, r.Filename, r.Verdict, r.Confidence)
			fmt.Printf("   ID: %s  analyzed: %s\n", r.AnalysisID, r.AnalyzedAt)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	items, err := newClient(cfg).History(ctx, *limit)
	if err != nil {
		fmt.Printf("❌ Failed to fetch history: %v\n", err)
		log.Errorf("History fetch failed: %v", err)
		os.Exit(1)
	}

	printHistory(items)
}

func printHistory(items []api.HistoryItem) {
	if len(items) == 0 {
		fmt.Println("\n📭 No analyses yet")
		return
	}

	fmt.Printf("\n📚 %d recent analysis(es):\n\n", len(items))
	for i, it := range items {
		fmt.Printf("%d. %s  %s (%d%%)\n", i+1, it.Filename, it.Verdict, report.RoundConfidence(it.Confidence))
		fmt.Printf("   ID: %s  duration: %.1fs  analyzed: %s\n", it.AnalysisID, it.VideoDuration, it.Timestamp)
	}
}

func handleStats() {
	log := logger.GetLogger()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	stats, err := newClient(cfg).Stats(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to fetch stats: %v\n", err)
		log.Errorf("Stats fetch failed: %v", err)
		os.Exit(1)
	}

	printStats(stats)
}

func printStats(stats *api.StatsSnapshot) {
	fmt.Println("\n📈 Service totals:")
	fmt.Printf("   Analyses:          %d\n", stats.TotalAnalyses)
	fmt.Printf("   Deepfakes:         %d\n", stats.DeepfakesDetected)
	fmt.Printf("   Real videos:       %d\n", stats.RealVideos)
	fmt.Printf("   Avg confidence:    %d%%\n", report.NormalizePercent(stats.AvgConfidence))
	fmt.Printf("   Avg video score:   %d%%\n", report.NormalizePercent(stats.AvgVideoScore))
	fmt.Printf("   Avg audio score:   %d%%\n", report.NormalizePercent(stats.AvgAudioScore))
}

func handleIntervals() {
	log := logger.GetLogger()
	cfg := config.Load()

	if len(os.Args) < 3 {
		fmt.Println("Usage: deepdefend intervals <analysis_id>")
		os.Exit(1)
	}
	analysisID := os.Args[2]

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()

	intervals, err := newClient(cfg).Intervals(ctx, analysisID)
	if err != nil {
		fmt.Printf("❌ Failed to fetch intervals: %v\n", err)
		log.Errorf("Intervals fetch failed: %v", err)
		os.Exit(1)
	}

	suspicious := report.SuspiciousOnly(intervals)
	if len(suspicious) == 0 {
		fmt.Printf("\n✅ No suspicious intervals in analysis %s (%d total)\n", analysisID, len(intervals))
		return
	}

	fmt.Printf("\n⚠️  %d suspicious interval(s) of %d in analysis %s:\n\n", len(suspicious), len(intervals), analysisID)
	for _, it := range suspicious {
		fmt.Printf("   #%d  %s  video %d%%  audio %d%%  combined %d%%\n",
			it.IntervalID, it.TimeRange,
			report.NormalizePercent(it.VideoScore),
			report.NormalizePercent(it.AudioScore),
			report.NormalizePercent(it.CombinedScore))
	}
}

func handleExport() {
	log := logger.GetLogger()
	cfg := config.Load()

	if len(os.Args) < 3 || strings.HasPrefix(os.Args[2], "-") {
		fmt.Println("Usage: deepdefend export <analysis_id> [--json] [--html] [--out <dir>]")
		os.Exit(1)
	}
	analysisID := os.Args[2]

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	jsonOut := exportCmd.Bool("json", true, "Export the raw result as a JSON artifact")
	htmlOut := exportCmd.Bool("html", false, "Export a self-contained HTML report")
	outDir := exportCmd.String("out", cfg.ExportDir, "Directory for exported artifacts")
	exportCmd.Parse(os.Args[3:])

	archive, err := openArchive(cfg)
	if err != nil {
		fmt.Printf("❌ Failed to open archive: %v\n", err)
		log.Errorf("Archive open failed: %v", err)
		os.Exit(1)
	}
	defer archive.Close()

	record, err := archive.GetByAnalysisID(analysisID)
	if err != nil {
		fmt.Printf("❌ Analysis %s not found in the archive\n", analysisID)
		log.Warnf("Archive lookup failed: %v", err)
		os.Exit(1)
	}

	result, err := record.Result()
	if err != nil {
		fmt.Printf("❌ Archived payload is unreadable: %v\n", err)
		os.Exit(1)
	}

	exportArtifacts(result, report.Normalize(result), *jsonOut, *htmlOut, *outDir)
}

func handleWatch() {
	log := logger.GetLogger()
	cfg := config.Load()

	watchCmd := flag.NewFlagSet("watch", flag.ExitOnError)
	refresh := watchCmd.Duration("refresh", cfg.RefreshInterval, "Revalidation interval")
	limit := watchCmd.Int("limit", cfg.HistoryLimit, "History records per refresh")
	watchCmd.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newClient(cfg)
	historySrc := poll.NewHistorySource(client, *limit, *refresh)
	defer historySrc.Close()
	statsSrc := poll.NewStatsSource(client, *refresh)
	defer statsSrc.Close()

	historySrc.Start(ctx)
	statsSrc.Start(ctx)

	fmt.Printf("👀 Watching %s every %s (Ctrl-C to stop)\n", cfg.APIBase, *refresh)

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()

	render := func() {
		statsSnap := statsSrc.Get(ctx)
		historySnap := historySrc.Get(ctx)

		fmt.Printf("\n⏱  %s\n", time.Now().Format("15:04:05"))
		switch statsSnap.Status() {
		case poll.Loading:
			fmt.Println("   stats: loading...")
		case poll.Stale:
			fmt.Printf("   stats: stale (%v)\n", statsSnap.Err)
			if statsSnap.HasValue {
				printStats(statsSnap.Value)
			}
		default:
			printStats(statsSnap.Value)
		}

		switch historySnap.Status() {
		case poll.Loading:
			fmt.Println("   history: loading...")
		case poll.Stale:
			fmt.Printf("   history: stale (%v)\n", historySnap.Err)
			if historySnap.HasValue {
				printHistory(historySnap.Value)
			}
		default:
			printHistory(historySnap.Value)
		}
	}

	render()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n👋 Stopped")
			log.Debugf("Watch stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			render()
		}
	}
}

func printUsage() {
	fmt.Println("DeepDefend - Deepfake Video Analysis CLI")
	fmt.Println("\nEnvironment:")
	fmt.Println("  DEEPDEFEND_API_BASE       Analysis service endpoint (default: /api)")
	fmt.Println("  DEEPDEFEND_ARCHIVE_PATH   Local SQLite archive (default: deepdefend.sqlite3)")
	fmt.Println("  DEEPDEFEND_EXPORT_DIR     Artifact output directory (default: .)")
	fmt.Println("  DEEPDEFEND_MAX_UPLOAD_MB  Upload size limit in MB (default: 2)")
	fmt.Println("  LOG_LEVEL                 DEBUG, INFO, WARN, ERROR (default: INFO)")
	fmt.Println("\nUsage:")
	fmt.Println("  deepdefend analyze <video_file> [--interval-duration <sec>] [--json] [--html] [--out <dir>] [--no-archive]")
	fmt.Println("  deepdefend analyze --url <url> [--interval-duration <sec>] [--json] [--html]")
	fmt.Println("  deepdefend history [--limit <n>] [--local]")
	fmt.Println("  deepdefend stats")
	fmt.Println("  deepdefend intervals <analysis_id>")
	fmt.Println("  deepdefend export <analysis_id> [--json] [--html] [--out <dir>]")
	fmt.Println("  deepdefend watch [--refresh <duration>] [--limit <n>]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Analyze a local clip and keep both artifacts")
	fmt.Println("  deepdefend analyze clip.mp4 --json --html --out reports/")
	fmt.Println()
	fmt.Println("  # Analyze a remote video with 1.5s windows")
	fmt.Println("  deepdefend analyze --url \"https://example.com/watch?v=abc\" --interval-duration 1.5")
	fmt.Println()
	fmt.Println("  # Live dashboard refreshing every 10 seconds")
	fmt.Println("  deepdefend watch --refresh 10s")
}
