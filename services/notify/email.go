// Package notify turns grade workflow outcomes into e-mails for the academic office.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

type EmailNotifier struct {
	mailer core.EmailService
	to     []mail.Address
	logger core.Logger
}

var _ grade.Notifier = (*EmailNotifier)(nil) // interface compliance check

func NewEmailNotifier(conf *core.Config, mailer core.EmailService, logger core.Logger) *EmailNotifier {
	return &EmailNotifier{
		mailer: mailer,
		to:     conf.Email.NotifyEmails,
		logger: logger,
	}
}

// Notify mails rejections and releases that affected at least one grade.
func (n *EmailNotifier) Notify(_ context.Context, o grade.Outcome) {
	n.logger.Info(fmt.Sprintf("%s: %s", o.Action, o.Result.Message()), o.Actor)

	if len(n.to) == 0 || o.Result.Affected == 0 {
		return
	}
	var msg *core.EmailMessage
	switch o.Action {
	case grade.ActionReject:
		msg = n.rejected(o)
	case grade.ActionRelease:
		msg = n.released(o)
	default:
		return
	}
	n.mailer.SendMessages(msg)
}

func (n *EmailNotifier) rejected(o grade.Outcome) *core.EmailMessage {
	lines := []string{
		fmt.Sprintf("%s rejected %s.", actorName(o), plural(o.Result.Affected, "grade")),
		"Reason: " + o.Reason,
	}
	lines = append(lines, batchLines(o.Grades)...)
	return &core.EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("%s rejected", plural(o.Result.Affected, "grade")),
		Lines:   lines,
	}
}

func (n *EmailNotifier) released(o grade.Outcome) *core.EmailMessage {
	lines := []string{fmt.Sprintf("%s released %s.", actorName(o), plural(o.Result.Affected, "grade"))}
	lines = append(lines, batchLines(o.Grades)...)
	return &core.EmailMessage{
		To:      n.to,
		Subject: fmt.Sprintf("%s released", plural(o.Result.Affected, "grade")),
		Lines:   lines,
	}
}

func actorName(o grade.Outcome) string {
	if o.Actor.Name != "" {
		return o.Actor.Name
	}
	return o.Actor.ID
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// batchLines counts the grades per class/term/exam, sorted for stable output.
func batchLines(grades []grade.Grade) []string {
	counts := make(map[string]int)
	for _, g := range grades {
		counts[strings.Join([]string{g.ClassID, g.Term, g.ExamType}, " / ")]++
	}
	lines := make([]string, 0, len(counts))
	for k, c := range counts {
		lines = append(lines, fmt.Sprintf("%s: %d", k, c))
	}
	sort.Strings(lines)
	return lines
}
