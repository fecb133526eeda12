package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jessevdk/go-flags"

	"nuclight.org/tgweb/app/storage"
	e "nuclight.org/tgweb/pkg/entities"
	"nuclight.org/tgweb/pkg/logger"
)

var opts struct {
	DBPath string `long:"db-path" env:"JOURNAL_PATH" required:"true" description:"path to the sqlite request journal"`
	Count  int    `short:"c" long:"count" default:"20" description:"number of latest requests to list"`
	Failed bool   `long:"failed" description:"list only failed requests"`
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	log := logger.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.NewSQLite(ctx, opts.DBPath)
	if err != nil {
		log.Error("creating sqlite3 database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("closing sqlite3 database", "error", err)
		}
	}()

	stats, err := db.Stats(ctx)
	if err != nil {
		log.Error("loading journal stats", "error", err)
		os.Exit(1)
	}

	requests, err := db.ListRequests(ctx, opts.Count)
	if err != nil {
		log.Error("listing requests from database", "error", err)
		os.Exit(1)
	}

	if opts.Failed {
		requests = failedOnly(requests)
	}

	printStats(os.Stdout, stats)
	printRequests(os.Stdout, requests)
}

func printStats(w io.Writer, stats []e.TypeStats) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(headerRow).
		Headers("TYPE", "TOTAL", "OK", "ERROR", "FATAL", "PENDING")

	for _, s := range stats {
		t.Row(s.Type, itoa(s.Total), itoa(s.Ok), itoa(s.Errors), itoa(s.Fatal), itoa(s.Pending))
	}

	fmt.Fprintln(w, t.Render())
}

func printRequests(w io.Writer, requests []e.Request) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(headerRow).
		Headers("ID", "TYPE", "SENT", "OUTCOME", "LATENCY", "DETAIL")

	for _, r := range requests {
		t.Row(
			itoa(r.ID),
			r.Type,
			r.SentAt.Format(time.DateTime),
			string(r.Outcome()),
			latency(r),
			detail(r),
		)
	}

	fmt.Fprintln(w, t.Render())
}

func headerRow(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return lipgloss.NewStyle()
}

func failedOnly(requests []e.Request) []e.Request {
	out := requests[:0]
	for _, r := range requests {
		if o := r.Outcome(); o == e.OutcomeError || o == e.OutcomeFatal {
			out = append(out, r)
		}
	}
	return out
}

func latency(r e.Request) string {
	if r.Outcome() == e.OutcomePending {
		return "-"
	}
	return r.Latency().String()
}

func detail(r e.Request) string {
	switch {
	case r.ErrorMessage != nil:
		code := int32(0)
		if r.ErrorCode != nil {
			code = *r.ErrorCode
		}
		return fmt.Sprintf("%d %s", code, *r.ErrorMessage)
	case r.ResultType != nil:
		return *r.ResultType
	default:
		return ""
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
