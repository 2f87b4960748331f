package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/di"
	"github.com/mailtriage/mailtriage/internal/extract"
)

var (
	inputFile = flag.String("file", "", "Input file with JSON email descriptions (use stdin if not specified)")
)

// emailInput is the wire shape of one email description. Headers arrive as
// ordered name/value pairs so repeated headers keep their order.
type emailInput struct {
	Subject         string      `json:"subject"`
	From            string      `json:"from"`
	FromDisplayName string      `json:"from_display_name"`
	ReplyTo         string      `json:"reply_to"`
	To              string      `json:"to"`
	BodyHTML        string      `json:"body_html"`
	BodyText        string      `json:"body_text"`
	Headers         [][2]string `json:"headers"`
	Links           []string    `json:"links"`
	Images          [][]byte    `json:"images"`
}

func main() {
	flag.Parse()

	container, err := di.BuildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		orch *core.Orchestrator,
		store core.ReputationStore,
	) error {
		defer logger.Sync()
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close reputation store", zap.Error(err))
			}
		}()

		// Hot-swap the orchestration config when the file changes. The
		// swap happens between analyses, never during one.
		v := cfg.GetViper()
		v.OnConfigChange(func(fsnotify.Event) {
			if err := orch.Reload(cfg.GetOrchestration()); err != nil {
				logger.Error("Rejected config change", zap.Error(err))
			}
		})
		v.WatchConfig()

		in := io.Reader(os.Stdin)
		if *inputFile != "" {
			f, err := os.Open(*inputFile)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer f.Close()
			in = f
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return process(ctx, in, os.Stdout, orch, logger)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mailtriage: %v\n", err)
		os.Exit(1)
	}
}

// process decodes email descriptions from in and writes one verdict per
// input, until the input ends or ctx is canceled. A pending read is
// unblocked on shutdown by closing the input.
func process(ctx context.Context, in io.Reader, out io.Writer, orch *core.Orchestrator, logger *zap.Logger) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if c, ok := in.(io.Closer); ok {
				c.Close()
			}
		case <-done:
		}
	}()

	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)
	for {
		if ctx.Err() != nil {
			logger.Info("Shutting down")
			return nil
		}
		var input emailInput
		if err := dec.Decode(&input); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to decode email description: %w", err)
		}
		verdict := orch.Analyze(ctx, buildRecord(&input))
		if err := enc.Encode(verdict); err != nil {
			return fmt.Errorf("failed to write verdict: %w", err)
		}
	}
}

// buildRecord normalizes one input into the record the agents consume. The
// From field may carry a full RFC 5322 address; the display name and bare
// address are split apart here.
func buildRecord(in *emailInput) *core.EmailRecord {
	rec := &core.EmailRecord{
		Subject:         extract.SanitizeUTF8(in.Subject),
		From:            in.From,
		FromDisplayName: in.FromDisplayName,
		ReplyTo:         in.ReplyTo,
		To:              in.To,
		BodyHTML:        extract.SanitizeUTF8(in.BodyHTML),
		BodyText:        extract.SanitizeUTF8(in.BodyText),
		Links:           in.Links,
		Images:          in.Images,
	}
	if addr, err := mail.ParseAddress(in.From); err == nil {
		rec.From = addr.Address
		if rec.FromDisplayName == "" {
			rec.FromDisplayName = addr.Name
		}
	}
	if addr, err := mail.ParseAddress(in.ReplyTo); err == nil {
		rec.ReplyTo = addr.Address
	}
	rec.Headers = make(core.Header, 0, len(in.Headers))
	for _, h := range in.Headers {
		rec.Headers = append(rec.Headers, core.HeaderField{Name: h[0], Value: h[1]})
	}
	if rec.ReplyTo == "" {
		if v := rec.Headers.Get("Reply-To"); v != "" {
			if addr, err := mail.ParseAddress(v); err == nil {
				rec.ReplyTo = addr.Address
			}
		}
	}
	return rec
}
