package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/delordemm1/account-guard/internal/notification/templates"
)

// --- Constants for Type Safety ---
type Channel string
type Priority string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// --- Data Structures ---

// Content holds the specific message data for each channel.
type Content struct {
	EmailSubject  string
	EmailHTMLBody string
	EmailTextBody string
	SMSText       string
}

// Notification is the universal object used to send any notification.
type Notification struct {
	Recipient string // email address or phone number, depending on the channels
	Channels  []Channel
	Priority  Priority
	Content   Content
}

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMSSender delivers a single text message.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// --- Public Service ---

// Service dispatches notifications. Send returns once delivery has been scheduled;
// delivery failures are logged, never returned.
type Service interface {
	Send(ctx context.Context, n Notification) error
	Render(ctx context.Context, id string, data any) (templates.Rendered, error)
	// Drain blocks until scheduled deliveries finish or ctx is done.
	Drain(ctx context.Context) error
}

type service struct {
	log         *slog.Logger
	renderer    templates.Renderer
	emailSender EmailSender
	smsSender   SMSSender
	inflight    sync.WaitGroup
}

// NewService creates a new notification service.
func NewService(log *slog.Logger, renderer templates.Renderer, emailSender EmailSender, smsSender SMSSender) Service {
	return &service{
		log:         log,
		renderer:    renderer,
		emailSender: emailSender,
		smsSender:   smsSender,
	}
}

// Send routes the notification to each requested channel on its own goroutine.
// Delivery is detached from ctx cancellation so a finished request does not abort it.
func (s *service) Send(ctx context.Context, n Notification) error {
	if n.Recipient == "" {
		return errors.New("notification has no recipient")
	}
	ctx = context.WithoutCancel(ctx)

	for _, channel := range n.Channels {
		s.inflight.Add(1)
		go func(ch Channel) {
			defer s.inflight.Done()

			var err error
			switch ch {
			case ChannelEmail:
				s.log.Info("dispatching email notification", "priority", n.Priority)
				err = s.emailSender.Send(ctx, n.Recipient, n.Content.EmailSubject, n.Content.EmailHTMLBody, n.Content.EmailTextBody)
			case ChannelSMS:
				s.log.Info("dispatching sms notification", "priority", n.Priority)
				err = s.smsSender.Send(ctx, n.Recipient, n.Content.SMSText)
			default:
				s.log.Warn("unsupported notification channel", "channel", ch)
			}

			if err != nil {
				s.log.Error("failed to send notification", "channel", ch, "error", err)
			}
		}(channel)
	}
	return nil
}

func (s *service) Render(ctx context.Context, id string, data any) (templates.Rendered, error) {
	return s.renderer.RenderAny(ctx, id, data)
}

func (s *service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendTemplate renders the typed template h with data and sends the result over channels.
func SendTemplate[T any](ctx context.Context, svc Service, h templates.Handle[T], recipient string, channels []Channel, priority Priority, data T) error {
	rendered, err := svc.Render(ctx, h.ID(), data)
	if err != nil {
		return fmt.Errorf("render %s: %w", h.ID(), err)
	}
	return svc.Send(ctx, Notification{
		Recipient: recipient,
		Channels:  channels,
		Priority:  priority,
		Content: Content{
			EmailSubject:  rendered.Subject,
			EmailHTMLBody: rendered.EmailHTML,
			EmailTextBody: rendered.EmailText,
			SMSText:       rendered.SMSText,
		},
	})
}
