package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-optimizer/internal/generation"
	"resume-optimizer/internal/queue"
	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/telemetry"
)

const paymentStatusPaid = "paid"

// Generator runs a generation pipeline.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

// Service turns paid checkouts into payment-verified generations.
type Service struct {
	Events    EventRepo
	Generator Generator
	// Queue receives paid generations. Nil runs them in-process.
	Queue queue.Client
	Now   func() time.Time
	// Go runs inline fulfillment. Nil starts a goroutine.
	Go func(func())
}

// NewService constructs a payments service.
func NewService(events EventRepo, gen Generator, q queue.Client) *Service {
	return &Service{
		Events:    events,
		Generator: gen,
		Queue:     q,
		Now:       time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleCheckout records a completed checkout once and dispatches its
// generation. Redelivered sessions report OutcomeDuplicate.
func (s *Service) HandleCheckout(ctx context.Context, requestID string, c Checkout) (Outcome, error) {
	if !strings.EqualFold(c.PaymentStatus, paymentStatusPaid) {
		metrics.IncPaymentEvent(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return "", fmt.Errorf("%w: missing session id", ErrInvalidMetadata)
	}

	meta := c.Metadata
	if strings.TrimSpace(meta[keyEmail]) == "" && c.CustomerEmail != "" {
		meta = make(map[string]string, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[keyEmail] = c.CustomerEmail
	}

	order, err := DecodeMetadata(meta)
	if err != nil {
		metrics.IncPaymentEvent("invalid")
		return "", err
	}
	order.SessionID = c.SessionID
	order.AmountPaid = c.AmountTotal

	claimed, err := s.Events.Claim(ctx, Event{
		SessionID:  order.SessionID,
		Email:      order.Email,
		TemplateID: order.TemplateID,
		AmountPaid: order.AmountPaid,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("claim payment event: %w", err)
	}
	if !claimed {
		telemetry.Info("payments.duplicate", map[string]any{
			"request_id": requestID,
			"session_id": order.SessionID,
		})
		metrics.IncPaymentEvent(string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	if err := s.dispatch(ctx, requestID, order); err != nil {
		if rerr := s.Events.Release(context.WithoutCancel(ctx), order.SessionID); rerr != nil {
			telemetry.Warn("payments.release_failed", map[string]any{
				"session_id": order.SessionID,
				"error":      rerr,
			})
		}
		metrics.IncPaymentEvent("dispatch_failed")
		return "", fmt.Errorf("dispatch paid generation: %w", err)
	}

	telemetry.Info("payments.dispatched", map[string]any{
		"request_id":  requestID,
		"session_id":  order.SessionID,
		"template_id": order.TemplateID,
		"amount_paid": order.AmountPaid,
		"queued":      s.Queue != nil,
	})
	metrics.IncPaymentEvent(string(OutcomeDispatched))
	return OutcomeDispatched, nil
}

func (s *Service) dispatch(ctx context.Context, requestID string, order Order) error {
	if s.Queue != nil {
		payload := toPayload(order)
		return s.Queue.Send(ctx, queue.Message{
			Kind:           queue.KindPaidGeneration,
			Version:        queue.CurrentVersion,
			RequestID:      requestID,
			EnqueuedAt:     s.now().Format(time.RFC3339Nano),
			PaidGeneration: &payload,
		})
	}

	run := func() {
		bg := generation.WithRequestID(context.Background(), requestID)
		if err := s.Fulfill(bg, order); err != nil {
			telemetry.Error("payments.fulfill_failed", map[string]any{
				"request_id": requestID,
				"session_id": order.SessionID,
				"error":      err,
			})
		}
	}
	if s.Go != nil {
		s.Go(run)
	} else {
		go run()
	}
	return nil
}

// Fulfill runs the paid generation for order unless the session already has
// a delivered job.
func (s *Service) Fulfill(ctx context.Context, order Order) error {
	ev, err := s.Events.Get(ctx, order.SessionID)
	switch {
	case err == nil && ev.JobID != "":
		telemetry.Info("payments.already_fulfilled", map[string]any{
			"session_id": order.SessionID,
			"job_id":     ev.JobID,
		})
		return nil
	case errors.Is(err, ErrNotFound):
		if _, err := s.Events.Claim(ctx, Event{
			SessionID:  order.SessionID,
			Email:      order.Email,
			TemplateID: order.TemplateID,
			AmountPaid: order.AmountPaid,
			ReceivedAt: s.now(),
		}); err != nil {
			return fmt.Errorf("claim payment event: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load payment event: %w", err)
	}

	res, err := s.Generator.Generate(ctx, generation.Request{
		Email:            order.Email,
		ResumeContent:    order.ResumeContent,
		JobDescription:   order.JobDescription,
		FileName:         order.FileName,
		TemplateID:       order.TemplateID,
		PaymentVerified:  true,
		PaymentSessionID: order.SessionID,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("paid generation not delivered: %s", res.Message)
	}

	if err := s.Events.SetJobID(ctx, order.SessionID, res.JobID); err != nil {
		telemetry.Warn("payments.set_job_failed", map[string]any{
			"session_id": order.SessionID,
			"job_id":     res.JobID,
			"error":      err,
		})
	}
	return nil
}

// ProcessPaidGeneration fulfills a queued paid generation.
func (s *Service) ProcessPaidGeneration(ctx context.Context, p queue.PaidGeneration) error {
	return s.Fulfill(ctx, Order{
		SessionID:      p.SessionID,
		Email:          p.Email,
		TemplateID:     p.TemplateID,
		ResumeContent:  p.ResumeContent,
		JobDescription: p.JobDescription,
		FileName:       p.FileName,
		AmountPaid:     p.AmountPaid,
	})
}

func toPayload(o Order) queue.PaidGeneration {
	return queue.PaidGeneration{
		SessionID:      o.SessionID,
		Email:          o.Email,
		TemplateID:     o.TemplateID,
		ResumeContent:  o.ResumeContent,
		JobDescription: o.JobDescription,
		FileName:       o.FileName,
		AmountPaid:     o.AmountPaid,
	}
}
