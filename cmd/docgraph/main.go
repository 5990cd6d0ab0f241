package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/siherrmann/docgraph"
	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/server"
	"github.com/siherrmann/docgraph/services"
	"github.com/siherrmann/docgraph/services/hugot"
	"github.com/siherrmann/docgraph/services/llm"
	"github.com/siherrmann/docgraph/services/local"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docgraph",
		Usage: "Document ingestion and graph-augmented retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a document into the index and knowledge graph",
				ArgsUsage: "<name> <path>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mime",
						Usage: "MIME type of the document",
						Value: "text/plain",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question over the ingested documents",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "User the answer is security-trimmed for",
						Value:   "local",
					},
				},
			},
			{
				Name:      "reprocess",
				Usage:     "Re-run the ingestion pipeline for a stored document",
				ArgsUsage: "<document-id>",
				Action:    reprocessCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the query API over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestCommand(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: docgraph ingest <name> <path>")
	}

	dg, cleanup, err := newDocGraph(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	doc, err := dg.Ingest(ctx, c.Args().Get(0), c.Args().Get(1), c.String("mime"))
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %v as %v (%v chunks, %v entities)\n",
		doc.Name, doc.ID, doc.Stats.ChunkCount, len(doc.Entities))
	return nil
}

func askCommand(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: docgraph ask <question>")
	}

	dg, cleanup, err := newDocGraph(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := dg.Ask(ctx, strings.Join(c.Args().Slice(), " "), c.String("user"))
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, citation := range result.Citations {
			fmt.Printf("  [%d] %v", i+1, citation.DocumentName)
			if citation.Section != "" {
				fmt.Printf(", %v", citation.Section)
			}
			if citation.Page != nil {
				fmt.Printf(", page %d", *citation.Page)
			}
			fmt.Println()
		}
	}
	return nil
}

func reprocessCommand(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: docgraph reprocess <document-id>")
	}
	documentID, err := uuid.Parse(c.Args().Get(0))
	if err != nil {
		return helper.NewError("invalid document id", err)
	}

	dg, cleanup, err := newDocGraph(c)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	if err := dg.Reprocess(ctx, documentID); err != nil {
		return err
	}
	fmt.Printf("Reprocessed %v\n", documentID)
	return nil
}

func serveCommand(c *cli.Context) error {
	config, err := LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	dg, cleanup, err := newDocGraphFromConfig(config)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := config.Server.Addr
	if c.String("addr") != "" {
		addr = c.String("addr")
	}

	ctx, cancel := signalContext()
	defer cancel()

	return server.NewServer(dg, slog.Default()).ListenAndServe(ctx, addr)
}

func newDocGraph(c *cli.Context) (*docgraph.DocGraph, func() error, error) {
	config, err := LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	return newDocGraphFromConfig(config)
}

func newDocGraphFromConfig(config *Config) (*docgraph.DocGraph, func() error, error) {
	llmConfig := llm.Config{
		BaseURL:        config.LLM.BaseURL,
		Token:          config.LLM.Token,
		ChatModel:      config.LLM.ChatModel,
		EmbeddingModel: config.LLM.EmbeddingModel,
	}

	client, err := llm.NewClient(llmConfig, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	knowledge, err := llm.NewExtractor(llmConfig, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	var embedder services.Embedder = client
	var closeEmbedder func() error
	if config.Embedding.Local {
		modelName := config.Embedding.Model
		if modelName == "" {
			modelName = hugot.DefaultModel
		}
		localEmbedder, err := hugot.NewLocalEmbedder(modelName)
		if err != nil {
			return nil, nil, err
		}
		embedder = localEmbedder
		closeEmbedder = localEmbedder.Close
	}

	opts := docgraph.DefaultOptions()
	opts.GraphWritesPerSecond = config.Ingestion.GraphWritesPerSecond
	if config.Ingestion.ChunkWindow > 0 {
		opts.Pipeline.Chunking.WindowSize = config.Ingestion.ChunkWindow
	}
	if config.Ingestion.ChunkOverlap >= 0 {
		opts.Pipeline.Chunking.Overlap = config.Ingestion.ChunkOverlap
	}

	dg, err := docgraph.NewWithPostgres(
		config.DatabaseConfiguration(),
		config.Embedding.Dimension,
		docgraph.Collaborators{
			Extractor: local.NewFileExtractor(),
			Embedder:  embedder,
			Completer: client,
			Knowledge: knowledge,
			Trimmer:   local.NewOpenTrimmer(),
			Redactor:  local.NewRegexRedactor(),
		},
		opts,
	)
	if err != nil {
		if closeEmbedder != nil {
			_ = closeEmbedder()
		}
		return nil, nil, err
	}

	closeAll := func() error {
		if closeEmbedder != nil {
			_ = closeEmbedder()
		}
		return dg.Close()
	}
	return dg, closeAll, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %v", c.String("log-level"))
	}

	handler := helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	})
	slog.SetDefault(slog.New(handler))
	return nil
}
