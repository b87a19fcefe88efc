/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
// Package logging provides the vault's logfmt loggers. Every line carries a
// source tag naming the subsystem that wrote it, so ingestion, chat and
// storage events can be filtered apart.
package logging

import (
	"fmt"
	stdlog "log"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Log source tags used in structured logger contexts. SourceIngest covers
// report extraction, SourceAssistant the summaries and consultant chat.
const (
	SourceApp        = "app"
	SourceWeb        = "web"
	SourceWebRequest = "web_request"
	SourceDB         = "db"
	SourceIngest     = "ingest"
	SourceAssistant  = "assistant"
	SourceArchive    = "archive"
	SourceLLM        = "llm"
)

var (
	initOnce   sync.Once
	baseLogger *log.Logger

	// derived loggers copy the level when created, so SetLevel updates each.
	mu      sync.Mutex
	derived []*log.Logger
)

// Init configures the base logger and stdlib log output. Timestamps are UTC
// regardless of the timezone used to bucket test dates.
func Init() {
	initOnce.Do(func() {
		baseLogger = log.NewWithOptions(os.Stdout, log.Options{
			TimeFunction:    log.NowUTC,
			TimeFormat:      time.RFC3339Nano,
			Level:           log.DebugLevel,
			ReportTimestamp: true,
			Formatter:       log.LogfmtFormatter,
		})

		stdLogger := baseLogger.With("source", SourceApp).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})

		stdlog.SetFlags(0)
		stdlog.SetOutput(stdLogger.Writer())
	})
}

// Logger returns a logfmt logger tagged with the provided source.
func Logger(source string) *log.Logger {
	return derive(source)
}

// StdLogger returns a stdlib logger that writes logfmt output with a source.
func StdLogger(source string) *stdlog.Logger {
	return derive(source).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
}

func derive(source string) *log.Logger {
	Init()

	mu.Lock()
	defer mu.Unlock()

	l := baseLogger.With("source", source)
	derived = append(derived, l)

	return l
}

// SetLevel changes the minimum level of every vault logger.
func SetLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}

	Init()

	mu.Lock()
	defer mu.Unlock()

	baseLogger.SetLevel(level)
	for _, l := range derived {
		l.SetLevel(level)
	}

	return nil
}
