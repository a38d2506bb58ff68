package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/tgpurge/internal/constants"
	"github.com/aatumaykin/tgpurge/internal/export"
	"github.com/aatumaykin/tgpurge/internal/journal"
	"github.com/aatumaykin/tgpurge/internal/logger"
	"github.com/aatumaykin/tgpurge/internal/matcher"
	"github.com/aatumaykin/tgpurge/internal/purge"
	"github.com/aatumaykin/tgpurge/internal/report"
	"github.com/aatumaykin/tgpurge/internal/retry"
)

// RunOptions tune one Run call.
type RunOptions struct {
	AssumeYes bool // skip the live-mode confirmation
}

// Result describes a finished pipeline.
type Result struct {
	RunID       string
	StartedAt   time.Time
	Cutoff      time.Time
	Candidates  int
	Chats       int
	Stats       purge.Stats
	Cancelled   bool // the user declined the confirmation
	PreviewFile string
	ErrorsFile  string
	GuideFile   string
	JournalFile string
}

// plan is the frozen input of one pipeline: cutoff and predicate are
// computed once and never change afterwards.
type plan struct {
	runID     string
	startedAt time.Time
	cutoff    time.Time
	matcher   *matcher.Matcher
	filter    purge.ChatFilter
	log       *logger.Logger
}

func (a *App) newPlan() (*plan, error) {
	sel := a.config.Selection
	m, err := matcher.New(sel.Keywords, matcher.Options{
		CaseSensitive: sel.CaseSensitive,
		WholeWords:    sel.WholeWords,
	})
	if err != nil {
		return nil, err
	}

	now := a.now()
	runID := journal.NewRunID()
	return &plan{
		runID:     runID,
		startedAt: now,
		cutoff:    purge.Cutoff(now, sel.Retention()),
		matcher:   m,
		filter: purge.ChatFilter{
			IncludeTypes: sel.IncludeChatTypes,
			ExcludeChats: sel.ExcludeChats,
		},
		log: a.logger.With(logger.Field{Key: "run_id", Value: runID}),
	}, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) printPlan(p *plan) {
	a.printf(constants.MsgCutoff, p.cutoff.Format("2006-01-02 15:04:05"), a.config.Selection.HoursToKeep)
	if p.matcher.Empty() {
		a.printf(constants.MsgNoKeywordFilter)
	} else {
		a.printf(constants.MsgKeywords, strings.Join(p.matcher.Keywords(), ", "))
	}
}

// load reads the source messages: the export file when configured, the live
// account otherwise.
func (a *App) load(ctx context.Context, p *plan, s Session) ([]purge.Message, error) {
	src := a.config.Source
	if src.Live() {
		p.log.Info("listing own messages", logger.Field{Key: "before", Value: p.cutoff.Format(time.RFC3339)})
		return s.ListOwnMessages(ctx, p.cutoff, p.filter)
	}

	p.log.Info("loading export", logger.Field{Key: "path", Value: src.ExportPath}, logger.Field{Key: "format", Value: src.Format})
	return export.Load(src.ExportPath, export.Format(strings.ToLower(src.Format)), export.Options{
		OwnerID:   a.config.Selection.OwnerID,
		OwnerName: a.config.Selection.OwnerName,
	})
}

// selectCandidates loads the source and applies the selector, then writes
// the preview file.
func (a *App) selectCandidates(ctx context.Context, p *plan, s Session, res *Result) ([]purge.ChatGroup, error) {
	messages, err := a.load(ctx, p, s)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	groups := purge.Select(messages, p.cutoff, p.matcher, p.filter)
	res.Candidates = purge.CountMessages(groups)
	res.Chats = len(groups)
	if a.metrics != nil {
		a.metrics.SetCandidates(res.Candidates)
	}
	p.log.Info("candidates selected",
		logger.Field{Key: "messages", Value: len(messages)},
		logger.Field{Key: "candidates", Value: res.Candidates},
		logger.Field{Key: "chats", Value: res.Chats})
	for _, g := range groups {
		for _, m := range g.Messages {
			p.log.Debug("candidate",
				logger.Field{Key: "chat", Value: g.ChatName},
				logger.Field{Key: "message_id", Value: m.ID},
				logger.Field{Key: "text", Value: report.Truncate(m.Text, constants.PreviewTextLength)})
		}
	}

	if res.Candidates == 0 {
		a.printf(constants.MsgNoCandidates)
		return groups, nil
	}
	a.printf(constants.MsgCandidates, res.Candidates, res.Chats)

	path, err := report.SavePreview(a.config.Output.Dir, p.startedAt, report.Rows(groups, p.matcher))
	if err != nil {
		return nil, fmt.Errorf("failed to save preview: %w", err)
	}
	res.PreviewFile = path
	a.printf(constants.MsgPreviewSaved, path)
	return groups, nil
}

// Run executes the full pipeline once. A summary is printed whenever
// deletion started, and the error report is written when the ledger is not
// empty, also after cancellation. Only configuration and data errors are
// returned before deletion starts.
func (a *App) Run(ctx context.Context, opts RunOptions) (Result, error) {
	p, err := a.newPlan()
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: p.runID, StartedAt: p.startedAt, Cutoff: p.cutoff}
	dryRun := a.config.Deletion.DryRun

	if dryRun {
		a.printf(constants.MsgDryRunBanner)
	} else {
		a.printf(constants.MsgLiveBanner)
	}
	a.printPlan(p)

	err = a.withSession(ctx, true, func(ctx context.Context, s Session) error {
		groups, err := a.selectCandidates(ctx, p, s, &res)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			a.printf("%s", report.Summarize(res.Stats))
			return nil
		}
		if !dryRun && !opts.AssumeYes && !a.confirm() {
			res.Cancelled = true
			a.printf(constants.MsgCancelled)
			return nil
		}
		return a.delete(ctx, p, s, groups, &res)
	})
	return res, err
}

// confirm asks for an explicit "yes" before live deletion.
func (a *App) confirm() bool {
	a.printf(constants.MsgConfirm)
	line, _ := a.in.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func (a *App) delete(ctx context.Context, p *plan, s Session, groups []purge.ChatGroup, res *Result) error {
	del := a.config.Deletion

	jw, jpath, err := journal.Open(journal.Config{Driver: a.config.Journal.Driver, Dir: a.config.Journal.Path}, p.startedAt)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if cerr := jw.Close(); cerr != nil {
			p.log.Warn("failed to close journal", logger.Field{Key: "error", Value: cerr.Error()})
		}
	}()
	res.JournalFile = jpath

	options := []purge.Option{
		purge.WithJournal(journal.NewRecorder(jw, p.runID)),
		purge.WithLogger(p.log),
	}
	if a.metrics != nil {
		options = append(options, purge.WithMetrics(a.metrics))
	}
	if a.sleep != nil {
		options = append(options, purge.WithSleeper(a.sleep))
	}

	var transport purge.Transport
	if !del.DryRun {
		transport = s
	}
	resolver := purge.NewResolver(s, retry.Config{Logger: p.log, Sleep: a.sleep}, p.log)
	deleter := purge.NewDeleter(transport, resolver, purge.Options{
		BatchSize: del.BatchSize,
		Delay:     del.Delay(),
		DryRun:    del.DryRun,
		Revoke:    del.Revoke,
	}, options...)

	stats, runErr := deleter.Run(ctx, groups)
	res.Stats = stats
	if runErr != nil {
		a.printf(constants.MsgInterrupted, runErr)
		p.log.Warn("run interrupted", logger.Field{Key: "error", Value: runErr.Error()})
	}

	if path, err := report.SaveErrors(a.config.Output.Dir, p.startedAt, stats); err != nil {
		p.log.Error("failed to save error report", err)
	} else if path != "" {
		res.ErrorsFile = path
		a.printf(constants.MsgErrorsSaved, path)
	}

	a.printf("%s", report.Summarize(stats))
	a.notify(ctx, p, stats)

	return runErr
}

// notify sends the summary; failures are logged only.
func (a *App) notify(ctx context.Context, p *plan, stats purge.Stats) {
	if a.notifier == nil {
		return
	}
	text := report.Short(stats, a.config.Deletion.DryRun) + "\n\n" + report.Summarize(stats)
	if err := a.notifier.Send(context.WithoutCancel(ctx), text); err != nil {
		p.log.Error("failed to send notification", err)
	}
}

// Preview selects candidates, writes the preview file and prints the
// keyword summary. Nothing is deleted.
func (a *App) Preview(ctx context.Context) (Result, error) {
	p, err := a.newPlan()
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: p.runID, StartedAt: p.startedAt, Cutoff: p.cutoff}
	a.printPlan(p)

	err = a.withSession(ctx, a.config.Source.Live(), func(ctx context.Context, s Session) error {
		groups, err := a.selectCandidates(ctx, p, s, &res)
		if err != nil || len(groups) == 0 {
			return err
		}
		report.PrintKeywordSummary(a.out, report.SummarizeRows(report.Rows(groups, p.matcher)))
		return nil
	})
	return res, err
}

// Guide selects candidates and writes the preview and the markdown guide
// for manual deletion.
func (a *App) Guide(ctx context.Context) (Result, error) {
	p, err := a.newPlan()
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: p.runID, StartedAt: p.startedAt, Cutoff: p.cutoff}
	a.printPlan(p)

	err = a.withSession(ctx, a.config.Source.Live(), func(ctx context.Context, s Session) error {
		groups, err := a.selectCandidates(ctx, p, s, &res)
		if err != nil || len(groups) == 0 {
			return err
		}
		path, err := report.SaveGuide(a.config.Output.Dir, p.startedAt, groups, res.PreviewFile)
		if err != nil {
			return fmt.Errorf("failed to save guide: %w", err)
		}
		res.GuideFile = path
		a.printf(constants.MsgGuideSaved, path)
		return nil
	})
	return res, err
}
