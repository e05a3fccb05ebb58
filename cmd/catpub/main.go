package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
	"github.com/janelia-flyem/catpub/publish"
	"github.com/mattn/go-isatty"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Display the version and exit.
	showVersion = flag.Bool("version", false, "")

	// Write a gzipped tarball of the export alongside it.
	makeArchive = flag.Bool("archive", false, "")

	// Suppress the progress bar even on a terminal.
	noProgress = flag.Bool("noprogress", false, "")

	// Log file, overriding any [logging] section of the configuration.
	logfile = flag.String("logfile", "", "")
)

const helpMessage = `
catpub exports annotations, neurons, landmarks and volumes from a CATMAID
server into a deterministic plaintext directory layout.

Usage: catpub [options] <config.toml> <out dir> [credentials.json]

  where config.toml      = TOML file describing the data to export
        out dir          = directory to create; it must not already exist
        credentials.json = optional JSON file with server, project_id,
                           api_token, http_user and http_password

  Credentials missing from the file and configuration are read from the
  CATMAID_SERVER, CATMAID_PROJECT_ID, CATMAID_API_TOKEN, CATMAID_HTTP_USER
  and CATMAID_HTTP_PASSWORD environment variables.

	-logfile    =string   Send log messages to a rotating log file.
	-archive    (flag)    Also write <out dir>.tar.gz
	-noprogress (flag)    Don't show a progress bar.
	-version    (flag)    Show version and exit.
	-verbose    (flag)    Run in verbose mode.
	-h, -help   (flag)    Show help message
`

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("catpub %s\n", catpub.Version())
		os.Exit(0)
	}
	if *showHelp || flag.NArg() < 2 || flag.NArg() > 3 {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		catpub.SetLogMode(catpub.DebugMode)
	}

	opts := publish.Options{
		ConfigPath: flag.Arg(0),
		OutDir:     flag.Arg(1),
	}
	if flag.NArg() == 3 {
		opts.CredentialsPath = flag.Arg(2)
	}

	if err := setLogger(opts.ConfigPath); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	defer catpub.Shutdown()

	if !*noProgress && isatty.IsTerminal(os.Stderr.Fd()) {
		opts.Progress = os.Stderr
	}

	// Capture ctrl+c and other interrupts so partial requests are abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Printf("Export failed: %v\n", err)
		catpub.Shutdown()
		os.Exit(1)
	}
}

// setLogger sends logs to the -logfile target or the configured log file.
func setLogger(configPath string) error {
	if *logfile != "" {
		lc := catpub.LogConfig{Logfile: *logfile}
		lc.SetLogger()
		return nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Logging.SetLogger()
	return nil
}

func run(ctx context.Context, opts publish.Options, w io.Writer) error {
	res, err := publish.FromConfig(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported to %s (%s)\n", res.OutDir, humanize.Bytes(uint64(res.Size)))
	for _, dir := range res.Directories() {
		fmt.Fprintf(w, "  %s/\n", dir)
	}
	if !*makeArchive {
		return nil
	}
	dst := publish.ArchivePath(res.OutDir)
	if err := publish.Archive(res.OutDir, dst); err != nil {
		return err
	}
	fi, err := os.Stat(dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Archived to %s (%s)\n", dst, humanize.Bytes(uint64(fi.Size())))
	return nil
}
