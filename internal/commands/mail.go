package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"edger/internal/config"
	"edger/internal/exitcode"
	"edger/internal/output"
	"edger/internal/service"
)

func init() {
	Register(&InboxCmd{})
	Register(&SearchCmd{})
	Register(&ShowCmd{})
	Register(&ThreadCmd{})
	Register(&LabelsCmd{})
	Register(&MarkCmd{})
}

// listingFlags select a message listing. Commands taking a message reference
// re-list with the same flags to resolve listing numbers.
type listingFlags struct {
	label     string
	query     string
	max       int
	pageToken string
}

func (l *listingFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&l.label, "label", "", "label name or id (default INBOX)")
	fs.StringVar(&l.query, "query", "", "Gmail search query")
	fs.IntVar(&l.max, "max", 0, "messages per page")
	fs.StringVar(&l.pageToken, "page-token", "", "page token from a previous listing")
}

// messageQuery builds the listing query. Without label or query the inbox
// is listed.
func (l *listingFlags) messageQuery(ctx context.Context, cfg *config.Config, m service.Mail, extra string) (service.MessageQuery, error) {
	text := strings.TrimSpace(strings.Join([]string{l.query, extra}, " "))
	maxResults := int64(l.max)
	if maxResults <= 0 {
		maxResults = int64(cfg.Settings.MaxResults)
	}
	switch {
	case l.label != "":
		id, err := resolveLabel(ctx, m, l.label)
		if err != nil {
			return service.MessageQuery{}, err
		}
		q := service.LabelQuery(id, maxResults, l.pageToken)
		q.Q = text
		return q, nil
	case text != "":
		return service.SearchQuery(text, maxResults, l.pageToken), nil
	default:
		return service.LabelQuery(service.LabelInbox, maxResults, l.pageToken), nil
	}
}

// resolveLabel maps a label name or id to its id.
func resolveLabel(ctx context.Context, m service.Mail, name string) (string, error) {
	labels, err := m.Labels(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if l.ID == name {
			return l.ID, nil
		}
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l.ID, nil
		}
	}
	return "", usageErrorf("unknown label: %s", name)
}

func listMessages(ctx context.Context, cfg *config.Config, svc *service.Service, l *listingFlags, extra string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	q, err := l.messageQuery(ctx, cfg, svc.Mail, extra)
	if err != nil {
		return fail(errOut, err)
	}

	msgs, page, err := service.ListAndFetch(ctx, svc.Mail, q, service.FormatMetadata)
	if err != nil {
		return fail(errOut, err)
	}
	if len(msgs) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no messages found")
		}
		return exitcode.Success
	}
	for i, m := range msgs {
		output.FormatMessageLine(out, i+1, m, loc)
	}
	if page.NextPageToken != "" && !cfg.Quiet {
		fmt.Fprintf(out, "more: --page-token %s\n", page.NextPageToken)
	}
	return exitcode.Success
}

// lookupMessage resolves ref (a listing number or id) to a message ref.
func lookupMessage(ctx context.Context, cfg *config.Config, m service.Mail, l *listingFlags, ref string) (service.MessageRef, error) {
	if ref == "" {
		return service.MessageRef{}, ErrRefRequired
	}
	if !isAllDigits(ref) {
		return service.MessageRef{ID: ref}, nil
	}
	q, err := l.messageQuery(ctx, cfg, m, "")
	if err != nil {
		return service.MessageRef{}, err
	}
	page, err := m.ListMessages(ctx, q)
	if err != nil {
		return service.MessageRef{}, err
	}
	id, err := resolveMessage(ref, page)
	if err != nil {
		return service.MessageRef{}, err
	}
	for _, r := range page.Messages {
		if r.ID == id {
			return r, nil
		}
	}
	return service.MessageRef{ID: id}, nil
}

// InboxCmd lists messages.
type InboxCmd struct {
	listing listingFlags
}

func (c *InboxCmd) Name() string      { return "inbox" }
func (c *InboxCmd) Aliases() []string { return []string{"mail"} }
func (c *InboxCmd) Synopsis() string  { return "List messages (unread marked with *)" }
func (c *InboxCmd) Usage() string {
	return "edger inbox [common flags] [--label <name>] [--query <q>] [--max <n>] [--page-token <t>]"
}
func (c *InboxCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *InboxCmd) RegisterFlags(fs *flag.FlagSet) { c.listing.register(fs) }

func (c *InboxCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return fail(errOut, usageErrorf("unexpected argument: %s", args[0]))
	}
	return listMessages(ctx, cfg, svc, &c.listing, "", out, errOut)
}

// SearchCmd lists messages matching a Gmail query.
type SearchCmd struct {
	listing listingFlags
}

func (c *SearchCmd) Name() string      { return "search" }
func (c *SearchCmd) Aliases() []string { return nil }
func (c *SearchCmd) Synopsis() string  { return "Search messages with Gmail query syntax" }
func (c *SearchCmd) Usage() string {
	return "edger search [common flags] [--label <name>] [--max <n>] [--page-token <t>] <query...>"
}
func (c *SearchCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *SearchCmd) RegisterFlags(fs *flag.FlagSet) { c.listing.register(fs) }

func (c *SearchCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" && c.listing.query == "" {
		return fail(errOut, usageErrorf("search query required"))
	}
	return listMessages(ctx, cfg, svc, &c.listing, q, out, errOut)
}

// ShowCmd prints one message.
type ShowCmd struct {
	listing listingFlags
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show a message" }
func (c *ShowCmd) Usage() string {
	return "edger show [common flags] [listing flags] <ref>"
}
func (c *ShowCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) { c.listing.register(fs) }

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	ref, err := lookupMessage(ctx, cfg, svc.Mail, &c.listing, firstArg(args))
	if err != nil {
		return fail(errOut, err)
	}
	m, err := svc.Mail.GetMessage(ctx, ref.ID, service.FormatFull)
	if err != nil {
		return fail(errOut, err)
	}
	output.FormatMessage(out, m, loc)
	return exitcode.Success
}

// ThreadCmd prints the thread of a message.
type ThreadCmd struct {
	listing listingFlags
}

func (c *ThreadCmd) Name() string      { return "thread" }
func (c *ThreadCmd) Aliases() []string { return nil }
func (c *ThreadCmd) Synopsis() string  { return "Show the conversation a message belongs to" }
func (c *ThreadCmd) Usage() string {
	return "edger thread [common flags] [listing flags] <ref>"
}
func (c *ThreadCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *ThreadCmd) RegisterFlags(fs *flag.FlagSet) { c.listing.register(fs) }

func (c *ThreadCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	loc, err := location(cfg)
	if err != nil {
		return fail(errOut, err)
	}
	ref, err := lookupMessage(ctx, cfg, svc.Mail, &c.listing, firstArg(args))
	if err != nil {
		return fail(errOut, err)
	}
	if ref.ThreadID == "" {
		m, err := svc.Mail.GetMessage(ctx, ref.ID, service.FormatMinimal)
		if err != nil {
			return fail(errOut, err)
		}
		ref.ThreadID = m.ThreadID
	}
	th, err := svc.Mail.GetThread(ctx, ref.ThreadID, service.FormatFull)
	if err != nil {
		return fail(errOut, err)
	}
	output.FormatThread(out, th, loc)
	return exitcode.Success
}

// LabelsCmd lists mailbox labels.
type LabelsCmd struct{}

func (c *LabelsCmd) Name() string         { return "labels" }
func (c *LabelsCmd) Aliases() []string    { return nil }
func (c *LabelsCmd) Synopsis() string     { return "List Gmail labels" }
func (c *LabelsCmd) Usage() string        { return "edger labels [common flags]" }
func (c *LabelsCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *LabelsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LabelsCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	labels, err := svc.Mail.Labels(ctx)
	if err != nil {
		return fail(errOut, err)
	}
	for _, l := range labels {
		output.FormatLabel(out, l)
	}
	return exitcode.Success
}

// MarkCmd changes the labels of a message.
type MarkCmd struct {
	listing listingFlags
}

func (c *MarkCmd) Name() string      { return "mark" }
func (c *MarkCmd) Aliases() []string { return nil }
func (c *MarkCmd) Synopsis() string  { return "Mark a message read/unread/starred or change its labels" }
func (c *MarkCmd) Usage() string {
	return "edger mark [common flags] [listing flags] <read|unread|star|unstar|label|unlabel> <ref> [label...]"
}
func (c *MarkCmd) Needs() service.Needs { return service.NeedsGoogle }

func (c *MarkCmd) RegisterFlags(fs *flag.FlagSet) { c.listing.register(fs) }

func (c *MarkCmd) Run(ctx context.Context, cfg *config.Config, svc *service.Service, args []string, out, errOut io.Writer) int {
	if err := requireGoogle(svc); err != nil {
		return fail(errOut, err)
	}
	if len(args) == 0 {
		return fail(errOut, usageErrorf("action required: read, unread, star, unstar, label or unlabel"))
	}
	action, rest := args[0], args[1:]

	var labels []string
	switch action {
	case "read", "unread", "star", "unstar":
		if len(rest) > 1 {
			return fail(errOut, usageErrorf("unexpected argument: %s", rest[1]))
		}
	case "label", "unlabel":
		if len(rest) < 2 {
			return fail(errOut, usageErrorf("label required"))
		}
		for _, name := range rest[1:] {
			id, err := resolveLabel(ctx, svc.Mail, name)
			if err != nil {
				return fail(errOut, err)
			}
			labels = append(labels, id)
		}
	default:
		return fail(errOut, usageErrorf("unknown action: %s", action))
	}

	ref, err := lookupMessage(ctx, cfg, svc.Mail, &c.listing, firstArg(rest))
	if err != nil {
		return fail(errOut, err)
	}

	switch action {
	case "read":
		err = service.MarkRead(ctx, svc.Mail, ref.ID)
	case "unread":
		err = service.MarkUnread(ctx, svc.Mail, ref.ID)
	case "star":
		err = service.AddLabels(ctx, svc.Mail, ref.ID, service.LabelStarred)
	case "unstar":
		err = service.RemoveLabels(ctx, svc.Mail, ref.ID, service.LabelStarred)
	case "label":
		err = service.AddLabels(ctx, svc.Mail, ref.ID, labels...)
	case "unlabel":
		err = service.RemoveLabels(ctx, svc.Mail, ref.ID, labels...)
	}
	if err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
