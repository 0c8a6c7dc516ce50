package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/eegbands/internal/cli"
	"github.com/linuxmatters/eegbands/internal/logging"
	"github.com/linuxmatters/eegbands/internal/mains"
	"github.com/linuxmatters/eegbands/internal/processor"
	"github.com/linuxmatters/eegbands/internal/recording"
	"github.com/linuxmatters/eegbands/internal/store"
	"github.com/linuxmatters/eegbands/internal/ui"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version  bool     `short:"v" help:"Show version information"`
	Config   string   `short:"c" type:"path" env:"EEGBANDS_CONFIG" help:"Path to YAML config file (optional)"`
	Output   string   `short:"o" type:"path" env:"EEGBANDS_OUTPUT" placeholder:"dir" help:"Directory for result files (default: next to each recording)"`
	Seconds  float64  `short:"s" placeholder:"n" help:"Analyse only the first N seconds (0 or unset analyses the whole recording)"`
	Channels []string `default:"AF7,AF8" env:"EEGBANDS_CHANNELS" help:"Electrodes to analyse"`
	Notch    string   `default:"off" env:"EEGBANDS_NOTCH" help:"Mains notch: off, auto (from timezone) or a frequency in Hz"`
	Logs     bool     `help:"Save a detailed text report per recording"`
	EDF      bool     `name:"edf" help:"Export each loaded recording as EDF"`
	DB       string   `name:"db" type:"path" env:"EEGBANDS_DB" placeholder:"file" help:"SQLite database that collects every run"`
	Files    []string `arg:"" name:"recordings" help:"Muse CSV recordings or directories of eeg_recording_*.csv files" type:"path" optional:""`
}

// outcome is what a processed recording leaves for the console summary
type outcome struct {
	inputPath string
	meta      *recording.Metadata
	result    *processor.Result
	history   map[string]float64
	saved     []savedFile
	warnings  []string
}

type savedFile struct {
	label string
	path  string
}

func main() {
	os.Exit(run())
}

// run drives the whole CLI and returns the exit code. Deferred cleanup runs
// before main exits.
func run() int {
	// A missing .env file is fine; anything else is worth reporting
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		cli.PrintWarning(fmt.Sprintf("could not load .env: %v", err))
	}

	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("eegbands"),
		kong.Description("EEG band power analysis for Muse headband recordings"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		return 0
	}

	if len(cliArgs.Files) == 0 {
		cli.PrintError("No input files specified")
		ctx.PrintUsage(false)
		return 1
	}

	files, err := expandInputs(cliArgs.Files)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	config, notch, err := buildConfig(cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	if cliArgs.Output != "" {
		if err := os.MkdirAll(cliArgs.Output, 0o755); err != nil {
			cli.PrintError(fmt.Sprintf("cannot create output directory: %v", err))
			return 1
		}
	}

	logger, closeLog := newDebugLogger("eegbands-debug.log")
	defer closeLog()
	logger.WithFields(logrus.Fields{
		"version": version,
		"files":   len(files),
		"notch":   notch.Source,
	}).Info("starting")

	var db *store.Store
	if cliArgs.DB != "" {
		db, err = store.NewStore(cliArgs.DB)
		if err != nil {
			cli.PrintError(fmt.Sprintf("cannot open database: %v", err))
			return 1
		}
		defer db.Close()
	}

	model := ui.NewModel(files)
	model.Log = logger.WithField("component", "ui")

	p := tea.NewProgram(model, tea.WithAltScreen())

	outcomes := make([]*outcome, len(files))
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i, inputPath := range files {
			p.Send(ui.FileStartMsg{FileIndex: i, FileName: inputPath})

			entry := logger.WithField("file", filepath.Base(inputPath))
			out, err := processFile(inputPath, cliArgs, config, &notch, db, entry, func(e processor.Event) {
				p.Send(ui.ProgressMsg{Event: e})
			})
			if err != nil {
				entry.WithError(err).Error("processing failed")
				p.Send(ui.FileCompleteMsg{FileIndex: i, Error: err})
				continue
			}
			outcomes[i] = out

			report := out.result.Report
			p.Send(ui.FileCompleteMsg{
				FileIndex:     i,
				Policy:        report.Policy,
				EpochsTotal:   report.EpochsTotal,
				EpochsFinal:   report.EpochsFinal,
				RejectionRate: report.RejectionRate,
				AlphaMean:     meanAlpha(out.result.Summary),
				OutputPath:    out.saved[0].path,
			})
		}

		logger.Info("all files complete")
		p.Send(ui.AllCompleteMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		return 1
	}
	if m, ok := final.(ui.Model); !ok || !m.Done {
		cli.PrintError("interrupted")
		return 130
	}
	<-done

	failed := 0
	for i, out := range outcomes {
		if out == nil {
			failed++
			continue
		}
		logging.DisplayResults(os.Stdout, files[i], out.meta, out.result, out.history)
		fmt.Println()
		for _, s := range out.saved {
			cli.PrintSaved(s.label, s.path)
		}
		for _, w := range out.warnings {
			cli.PrintWarning(w)
		}
		fmt.Println()
	}
	if failed > 0 {
		cli.PrintError(fmt.Sprintf("%d of %d recording(s) failed, see eegbands-debug.log", failed, len(files)))
		return 1
	}
	return 0
}

// buildConfig loads the optional config file and applies the flags on top
func buildConfig(args *CLI) (*processor.Config, mains.Notch, error) {
	config := processor.DefaultConfig()
	if args.Config != "" {
		var err error
		if config, err = processor.LoadConfig(args.Config); err != nil {
			return nil, mains.Notch{}, err
		}
	}

	notch, err := mains.Resolve(args.Notch)
	if err != nil {
		return nil, mains.Notch{}, err
	}
	if notch.Enabled {
		config.NotchEnabled = true
		config.NotchFreq = notch.Frequency
	}

	if args.Seconds != 0 {
		seconds := args.Seconds
		config.Seconds = &seconds
	}

	if err := config.Validate(); err != nil {
		return nil, mains.Notch{}, err
	}
	return config, notch, nil
}

// newDebugLogger writes JSON entries to path, or discards them when the file
// cannot be created. The returned func closes the file.
func newDebugLogger(path string) (*logrus.Logger, func()) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)

	f, err := os.Create(path)
	if err != nil {
		logger.SetOutput(io.Discard)
		return logger, func() {}
	}
	logger.SetOutput(f)
	return logger, func() {
		logger.SetOutput(io.Discard)
		_ = f.Close()
	}
}

// processFile loads, processes and saves one recording. Failures of the
// optional outputs (report, EDF, database) become warnings.
func processFile(inputPath string, args *CLI, config *processor.Config, notch *mains.Notch,
	db *store.Store, entry *logrus.Entry, send processor.ProgressFunc) (*outcome, error) {
	startTime := time.Now()

	buf, meta, err := recording.Open(inputPath, recording.Options{Channels: args.Channels})
	if err != nil {
		return nil, err
	}
	entry.WithFields(logrus.Fields{
		"sample_rate": meta.SampleRate,
		"samples":     meta.Samples,
		"dropped":     meta.DroppedRows,
		"resampled":   meta.Resampled,
	}).Info("recording loaded")

	out := &outcome{inputPath: inputPath, meta: meta}

	if args.EDF {
		edfPath := logging.OutputPath(inputPath, args.Output, logging.EDFSuffix)
		base := filepath.Base(inputPath)
		err := recording.WriteEDF(edfPath, buf, recording.EDFOptions{
			RecordingID: base[:len(base)-len(filepath.Ext(base))],
		})
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("EDF export failed: %v", err))
		} else {
			out.saved = append(out.saved, savedFile{"EDF", edfPath})
		}
	}

	result, err := processor.ProcessRecording(buf, config, processor.Tee(processor.NewLogObserver(entry), send))
	if err != nil {
		return nil, err
	}
	out.result = result

	powersPath := logging.OutputPath(inputPath, args.Output, logging.BandPowersSuffix)
	if err := logging.WriteBandPowersCSV(powersPath, result.Records); err != nil {
		return nil, err
	}
	summaryPath := logging.OutputPath(inputPath, args.Output, logging.SummarySuffix)
	if err := logging.WriteSummaryCSV(summaryPath, result.Summary); err != nil {
		return nil, err
	}
	// Band powers first: the UI shows saved[0]
	out.saved = append([]savedFile{{"Band powers", powersPath}, {"Summary", summaryPath}}, out.saved...)

	if args.Logs {
		reportPath := logging.OutputPath(inputPath, args.Output, logging.ReportSuffix)
		err := logging.GenerateReport(logging.ReportData{
			InputPath:  inputPath,
			ReportPath: reportPath,
			StartTime:  startTime,
			EndTime:    time.Now(),
			Metadata:   meta,
			Notch:      notch,
			Result:     result,
		})
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("report failed: %v", err))
		} else {
			out.saved = append(out.saved, savedFile{"Report", reportPath})
		}
	}

	if db != nil {
		source := filepath.Base(inputPath)
		history, err := db.ChannelAlphaMeans(source)
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("database read failed: %v", err))
		}
		out.history = history
		if _, err := db.SaveRun(source, result); err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("database write failed: %v", err))
		} else {
			entry.WithField("run_id", result.RunID).Info("run stored")
		}
	}

	return out, nil
}

// meanAlpha averages the per-channel alpha means of channels with epochs
func meanAlpha(summary []processor.ChannelSummary) float64 {
	var sum float64
	n := 0
	for _, s := range summary {
		if s.Epochs > 0 {
			sum += s.Mean.Alpha
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
