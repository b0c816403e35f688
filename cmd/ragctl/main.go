package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/seanblong/ragconsole/internal/binder"
	"github.com/seanblong/ragconsole/internal/config"
	"github.com/seanblong/ragconsole/internal/console"
	"github.com/seanblong/ragconsole/internal/ragapi"
	"github.com/spf13/pflag"
)

const commands = `Usage: ragctl <command> [flags]

Commands:
  ask <question...>        Ask a question (--rag, --filters)
  search <query...>        Retrieve the k closest chunks (-k)
  documents                List indexed documents
  summarize [lines...]     Summarize texts, one per line (--file, or stdin)
  stats                    Show document and chunk counts

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("ragctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	useRAG := fs.Bool("rag", false, "Use RAG (Retrieval-Augmented Generation) for ask")
	filters := fs.String("filters", "", "Filter expression for ask with --rag, e.g. contains(path, `docx`)")
	k := fs.IntP("k", "k", 5, "Number of results for search")
	file := fs.StringP("file", "f", "", "Read texts to summarize from file")
	quiet := fs.BoolP("quiet", "q", false, "Do not show a spinner")
	fs.Usage = func() {
		fmt.Fprint(stderr, commands)
		fmt.Fprint(stderr, fs.FlagUsages())
	}

	cfg, err := config.Load("", fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()

	client, err := ragapi.NewHTTPClient(cfg.ClientConfig())
	if err != nil {
		logger.Error().Err(err).Msg("failed to create API client")
		return 2
	}
	b := binder.New(client, logger)

	pos := fs.Args()
	if len(pos) == 0 {
		fs.Usage()
		return 2
	}
	cmd, rest := pos[0], pos[1:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	spin := func(description string, fn func() binder.View) binder.View {
		if *quiet {
			return fn()
		}
		done := console.Spinner(stderr, description)
		defer done()
		return fn()
	}

	var v binder.View
	switch cmd {
	case "ask":
		v = spin("Processing your question...", func() binder.View {
			return b.Ask(ctx, binder.AskForm{
				Question: strings.Join(rest, " "),
				APIKey:   cfg.APIKey,
				UseRAG:   *useRAG,
				Filters:  *filters,
			})
		})
	case "search":
		if !b.SearchEnabled() {
			fmt.Fprintln(stderr, "search is not available: no retrieve endpoint configured")
			return 2
		}
		v = spin("Searching...", func() binder.View {
			return b.Search(ctx, binder.SearchForm{Query: strings.Join(rest, " "), K: *k})
		})
	case "documents", "docs":
		v = spin("Fetching documents...", func() binder.View {
			return b.ListDocuments(ctx)
		})
	case "summarize":
		texts, err := readTexts(rest, *file, stdin)
		if err != nil {
			logger.Error().Err(err).Msg("failed to read texts")
			return 2
		}
		v = spin("Summarizing texts...", func() binder.View {
			return b.Summarize(ctx, binder.SummarizeForm{Texts: texts, APIKey: cfg.APIKey})
		})
	case "stats", "statistics":
		v = spin("Fetching statistics...", func() binder.View {
			return b.Statistics(ctx)
		})
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return 2
	}

	console.Render(stdout, v)
	if v.Failed() {
		return 1
	}
	return 0
}

// readTexts returns the summarize input: positional args one per line, else
// the file, else stdin. A single trailing newline is dropped.
func readTexts(args []string, path string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}
	var b []byte
	var err error
	if path != "" {
		b, err = os.ReadFile(path)
	} else {
		b, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", err
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return strings.TrimSuffix(s, "\n"), nil
}
