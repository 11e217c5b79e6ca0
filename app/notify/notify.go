// Package notify delivers batch failure and completion messages to webhooks and slack
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
)

const defaultErrorTemplate = `mockstudio batch {{.BatchID}} failed at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}
product: {{.Product}}, variations: {{.Variations}}
error: {{.Error}}{{if .Link}}
{{.Link}}{{end}}`

const defaultCompletionTemplate = `mockstudio batch {{.BatchID}} completed at {{.TS.Format "2006-01-02T15:04:05Z07:00"}}
product: {{.Product}}, {{.Variations}} mockup(s) rendered in {{.Duration}}{{if .Link}}
{{.Link}}{{end}}`

// Params defines notification settings
type Params struct {
	EnabledError       bool
	EnabledCompletion  bool
	ErrorTemplate      string // optional file with text/template for failures
	CompletionTemplate string // optional file with text/template for completions
	Link               string // absolute studio url added to messages
}

// SendersParams defines where messages go
type SendersParams struct {
	Destinations []string // http(s) webhook urls and slack:channel
	SlackToken   string
	Timeout      time.Duration
}

// Service sends messages to all destinations
type Service struct {
	Params
	notifiers map[string]notify.Notifier // by destination kind
	targets   []string
}

// Event describes finished batch
type Event struct {
	BatchID    string
	Product    string
	Variations int
	Error      string
	Duration   time.Duration
	TS         time.Time
	Link       string
}

// NewService makes notification service, returns nil if no destinations defined
func NewService(p Params, sp SendersParams) *Service {
	res := &Service{Params: p, notifiers: map[string]notify.Notifier{}}
	for _, d := range sp.Destinations {
		d = strings.TrimSpace(d)
		kind := destinationKind(d)
		switch kind {
		case "webhook":
			if _, ok := res.notifiers[kind]; !ok {
				res.notifiers[kind] = notify.NewWebhook(notify.WebhookParams{Timeout: sp.Timeout})
			}
		case "slack":
			if sp.SlackToken == "" {
				log.Printf("[WARN] slack token not set, destination %s ignored", d)
				continue
			}
			if _, ok := res.notifiers[kind]; !ok {
				res.notifiers[kind] = notify.NewSlack(sp.SlackToken)
			}
		default:
			log.Printf("[WARN] unsupported notification destination %q", d)
			continue
		}
		res.targets = append(res.targets, d)
	}
	if len(res.targets) == 0 {
		return nil
	}
	log.Printf("[DEBUG] notification destinations: %d", len(res.targets))
	return res
}

// Send text to every target, errors are collected
func (s *Service) Send(ctx context.Context, text string) error {
	var errs []error
	for _, target := range s.targets {
		kind := destinationKind(target)
		n, ok := s.notifiers[kind]
		if !ok {
			errs = append(errs, fmt.Errorf("no notifier for %s", target))
			continue
		}
		if err := n.Send(ctx, target, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

func destinationKind(target string) string {
	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return "webhook"
	case strings.HasPrefix(target, "slack:"):
		return "slack"
	default:
		return ""
	}
}

// BatchFailed sends failure message if enabled, errors are logged only
func (s *Service) BatchFailed(ctx context.Context, ev Event) {
	if s == nil || !s.EnabledError {
		return
	}
	s.deliver(ctx, s.ErrorTemplate, defaultErrorTemplate, ev)
}

// BatchCompleted sends completion message if enabled, errors are logged only
func (s *Service) BatchCompleted(ctx context.Context, ev Event) {
	if s == nil || !s.EnabledCompletion {
		return
	}
	s.deliver(ctx, s.CompletionTemplate, defaultCompletionTemplate, ev)
}

func (s *Service) deliver(ctx context.Context, file, fallback string, ev Event) {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	if ev.Link == "" {
		ev.Link = s.Link
	}
	text, err := s.makeText(file, fallback, ev)
	if err != nil {
		log.Printf("[WARN] can't make notification for batch %s, %v", ev.BatchID, err)
		return
	}
	if err := s.Send(ctx, text); err != nil {
		log.Printf("[WARN] failed to send notification for batch %s, %v", ev.BatchID, err)
	}
}

// makeText renders event with the template from file, default template used if file is not set or broken
func (s *Service) makeText(file, fallback string, ev Event) (string, error) {
	tmpl := fallback
	if file != "" {
		data, err := os.ReadFile(file) // #nosec G304 - path comes from trusted config
		if err != nil {
			log.Printf("[WARN] can't read template %s, using default: %v", file, err)
		} else if _, err = template.New("check").Parse(string(data)); err != nil {
			log.Printf("[WARN] can't parse template %s, using default: %v", file, err)
		} else {
			tmpl = string(data)
		}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("can't parse message template: %w", err)
	}
	buf := bytes.Buffer{}
	if err = t.Execute(&buf, ev); err != nil {
		return "", fmt.Errorf("failed to apply template: %w", err)
	}
	return buf.String(), nil
}

// IsOnError status enabling on-error notification
func (s *Service) IsOnError() bool { return s != nil && s.EnabledError }

// IsOnCompletion status enabling on-completion notification
func (s *Service) IsOnCompletion() bool { return s != nil && s.EnabledCompletion }
