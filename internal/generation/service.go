package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"resume-optimizer/internal/eligibility"
	"resume-optimizer/internal/intel"
	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/mail"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/prompt"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/resume"
	"resume-optimizer/internal/sanitize"
	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/storage/object"
	"resume-optimizer/internal/shared/telemetry"
	"resume-optimizer/internal/shared/tracing"
	"resume-optimizer/internal/shared/util"
	"resume-optimizer/internal/templates"
	"resume-optimizer/internal/usage"
)

const (
	DefaultAITimeout    = 90 * time.Second
	DefaultEmailTimeout = 20 * time.Second
	DefaultSignedURLTTL = 72 * time.Hour

	messageSuccess = "Your optimized resume is on its way to your inbox."
	messageFailed  = "Processing failed. We'll follow up by email."
)

// Service runs the generation pipeline: validate, authorize, compose, call
// the model, parse, render, deliver, then record usage.
type Service struct {
	Jobs        Repo
	Eligibility *eligibility.Service
	Usage       *usage.Service
	LLM         llm.Client
	Renderer    *render.Service
	Store       object.ObjectStore
	Mail        mail.Sender
	Intel       *intel.Service

	AITimeout    time.Duration
	EmailTimeout time.Duration
	SignedURLTTL time.Duration
	Now          func() time.Time
	// Go runs background work. Nil starts a goroutine.
	Go func(func())
}

// NewService constructs a Service with default timeouts.
func NewService(jobs Repo, elig *eligibility.Service, ledger *usage.Service, client llm.Client, renderer *render.Service, store object.ObjectStore, sender mail.Sender, intelSvc *intel.Service) *Service {
	return &Service{
		Jobs:         jobs,
		Eligibility:  elig,
		Usage:        ledger,
		LLM:          client,
		Renderer:     renderer,
		Store:        store,
		Mail:         sender,
		Intel:        intelSvc,
		AITimeout:    DefaultAITimeout,
		EmailTimeout: DefaultEmailTimeout,
		SignedURLTTL: DefaultSignedURLTTL,
		Now:          time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Get returns a job by ID.
func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.Jobs.Get(ctx, id)
}

// ListByEmail returns recent jobs for email.
func (s *Service) ListByEmail(ctx context.Context, email string, limit int) ([]Job, error) {
	return s.Jobs.ListByEmail(ctx, usage.NormalizeEmail(email), limit)
}

type input struct {
	email    string
	resume   string
	jd       string
	template templates.Template
}

// Generate runs one generation. A non-nil error is always a *StageError and
// the Result carries the user-facing message. Eligibility denials are not
// errors: they return Success=false with the decision filled in.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracing.Start(ctx, "generation.generate",
		attribute.String("template_id", req.TemplateID),
		attribute.Bool("payment_verified", req.PaymentVerified),
	)
	res, err := s.generate(ctx, req)
	tracing.End(span, err)
	return res, err
}

func (s *Service) generate(ctx context.Context, req Request) (Result, error) {
	in, err := s.validate(req)
	if err != nil {
		metrics.IncGenerationFailed(CodeValidationFailed)
		return Result{Code: CodeValidationFailed, Message: validationMessage(err)}, err
	}

	var reservation *usage.Reservation
	var session Session
	if req.PaymentVerified {
		acct, err := s.Usage.Ensure(ctx, in.email)
		if err != nil {
			metrics.IncGenerationFailed(CodePersistenceFailed)
			return Result{Code: CodePersistenceFailed, Message: messageFailed}, stageErr(StageEligibility, CodePersistenceFailed, err)
		}
		session = Session{AccountType: acct.AccountType, FreeResumesUsed: acct.FreeResumesUsed}
	} else {
		id := eligibility.NewIdentity(in.email, req.IP, req.UserAgent, req.Referrer)
		decision, r, err := s.Eligibility.Authorize(ctx, id, in.template.ID)
		if err != nil {
			metrics.IncGenerationFailed(CodePersistenceFailed)
			return Result{Code: CodePersistenceFailed, Message: messageFailed}, stageErr(StageEligibility, CodePersistenceFailed, err)
		}
		session = Session{AccountType: decision.AccountType, FreeResumesUsed: decision.FreeResumesUsed}
		if !decision.Allowed {
			return Result{
				Code:                CodeEligibilityDenied,
				Message:             decision.Message,
				Reason:              decision.Reason,
				RequiresPayment:     decision.RequiresPayment,
				PaymentTemplateName: decision.PaymentTemplateName,
				OriginalPrice:       decision.OriginalPrice,
				DiscountedPrice:     decision.DiscountedPrice,
				Session:             session,
			}, nil
		}
		reservation = r
	}

	job, err := s.startJob(ctx, in, req)
	if err != nil {
		s.release(ctx, reservation, job.ID)
		if job.ID != "" {
			_, _ = s.Jobs.Transition(detach(ctx), job.ID, StatusFailed, Update{
				At:           s.now(),
				ErrorCode:    CodePersistenceFailed,
				ErrorMessage: sanitizeError(err),
			})
		}
		metrics.IncGenerationFailed(CodePersistenceFailed)
		return Result{Code: CodePersistenceFailed, Message: messageFailed, Session: session}, stageErr(StageJob, CodePersistenceFailed, err)
	}
	startedAt := s.now()
	metrics.IncGenerationStarted()
	s.logStatus(ctx, job, StatusProcessing, "pending->processing", nil)

	out, err := s.run(ctx, job, in)
	if err == nil {
		var acct usage.Account
		acct, err = s.recordDelivery(ctx, in.email, reservation, req.PaymentVerified)
		if err == nil {
			session = Session{AccountType: acct.AccountType, FreeResumesUsed: acct.FreeResumesUsed}
		}
	}
	if err != nil {
		s.fail(ctx, job, reservation, out.doc, err, startedAt)
		return Result{
			Code:    CodeOf(err),
			Message: messageFailed,
			JobID:   job.ID,
			Session: session,
		}, err
	}

	completed, terr := s.Jobs.Transition(ctx, job.ID, StatusCompleted, Update{At: s.now(), ResultSummary: out.summary})
	if terr != nil {
		// Delivery and usage are already recorded; the job row is stale.
		telemetry.Error("generation.complete_transition_failed", map[string]any{
			"request_id": RequestID(ctx),
			"job_id":     job.ID,
			"error":      terr,
		})
	} else {
		job = completed
	}
	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDuration(s.now().Sub(startedAt))
	s.logStatus(ctx, job, StatusCompleted, "processing->completed", map[string]any{
		"duration_ms": float64(s.now().Sub(startedAt).Microseconds()) / 1000.0,
		"degraded":    out.degraded,
	})

	s.extractIntel(ctx, job.ID, in, out.doc)

	return Result{
		Success:     true,
		Message:     messageSuccess,
		JobID:       job.ID,
		Session:     session,
		DownloadURL: out.downloadURL,
	}, nil
}

func (s *Service) validate(req Request) (input, error) {
	email := usage.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return input{}, stageErr(StageValidate, CodeValidationFailed, &sanitize.RejectError{Reason: sanitize.ReasonTooShort, Field: "email", Detail: "a valid email is required"})
	}
	tpl, err := templates.Get(req.TemplateID)
	if err != nil {
		return input{}, stageErr(StageValidate, CodeValidationFailed, err)
	}
	resumeText := sanitize.Sanitize(req.ResumeContent)
	if err := sanitize.Validate(resumeText, req.FileName); err != nil {
		return input{}, stageErr(StageValidate, CodeValidationFailed, err)
	}
	jd := sanitize.Sanitize(req.JobDescription)
	if err := sanitize.ValidateContent(jd, sanitize.KindJobDescription); err != nil {
		return input{}, stageErr(StageValidate, CodeValidationFailed, err)
	}
	return input{email: email, resume: resumeText, jd: jd, template: tpl}, nil
}

func validationMessage(err error) string {
	if errors.Is(err, templates.ErrTemplateNotFound) {
		return "Unknown template."
	}
	if rej, ok := sanitize.AsReject(err); ok {
		if rej.Field == "email" {
			return "A valid email is required."
		}
		switch rej.Reason {
		case sanitize.ReasonTooShort:
			return fmt.Sprintf("The %s is too short.", fieldLabel(rej.Field))
		case sanitize.ReasonTooLong:
			return fmt.Sprintf("The %s is too long.", fieldLabel(rej.Field))
		case sanitize.ReasonUnsupportedExtension, sanitize.ReasonInvalidFileName:
			return "Unsupported file type. Upload a PDF, DOCX, DOC, TXT or RTF file."
		}
	}
	return "The submitted content could not be accepted."
}

func fieldLabel(field string) string {
	switch field {
	case "jobDescription":
		return "job description"
	case "resumeContent", "resume":
		return "resume"
	default:
		return field
	}
}

func (s *Service) startJob(ctx context.Context, in input, req Request) (Job, error) {
	now := s.now()
	job := Job{
		ID:               uuid.NewString(),
		RequesterEmail:   in.email,
		TemplateID:       in.template.ID,
		Status:           StatusPending,
		PaymentVerified:  req.PaymentVerified,
		PaymentSessionID: req.PaymentSessionID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	started, err := s.Jobs.Transition(ctx, job.ID, StatusProcessing, Update{At: now})
	if err != nil {
		return job, fmt.Errorf("start job: %w", err)
	}
	return started, nil
}

type output struct {
	doc         resume.Document
	degraded    bool
	downloadURL string
	summary     string
}

// run executes the slow stages. The returned output carries whatever was
// produced before a failure so the failure email can use the name.
func (s *Service) run(ctx context.Context, job Job, in input) (output, error) {
	var out output
	text := prompt.Compose(in.resume, in.jd, in.template.ID)

	raw, err := s.complete(ctx, text)
	if err != nil {
		return out, err
	}

	parsed := parser.Parse(raw)
	out.doc = parsed.Document
	out.degraded = parsed.Degraded
	if parsed.Degraded {
		metrics.IncParseDegraded()
		telemetry.Warn("generation.parse_degraded", map[string]any{
			"request_id": RequestID(ctx),
			"job_id":     job.ID,
			"email":      job.RequesterEmail,
			"raw_chars":  len(raw),
		})
	}

	_, span := tracing.Start(ctx, "generation.render_pdf")
	pdf, err := s.Renderer.Render(out.doc, in.template.ID, render.FormatPDF)
	tracing.End(span, err)
	if err != nil {
		return out, stageErr(StageRender, CodeRenderFailed, err)
	}

	key := fmt.Sprintf("generated/%s/%s.pdf", util.HashUserKey(in.email), job.ID)
	uctx, span := tracing.Start(ctx, "generation.upload")
	url, err := s.upload(uctx, key, pdf.Data)
	tracing.End(span, err)
	if err != nil {
		return out, stageErr(StageUpload, CodeStorageFailed, err)
	}
	out.downloadURL = url

	html, err := s.Renderer.RenderEmail(out.doc, in.template.ID, map[string]string{"DOWNLOAD_URL": url})
	if err != nil {
		return out, stageErr(StageRender, CodeRenderFailed, err)
	}

	msg := mail.Message{
		To:      in.email,
		Subject: render.EmailSubject(in.template.ID),
		HTML:    html,
		Attachments: []mail.Attachment{{
			FileName:    attachmentName(out.doc, in.template),
			ContentType: pdf.ContentType,
			Data:        pdf.Data,
		}},
	}
	if err := s.send(ctx, msg); err != nil {
		return out, stageErr(StageEmail, CodeUpstreamEmailFailed, err)
	}

	out.summary = summarize(parsed, len(pdf.Data))
	return out, nil
}

func (s *Service) complete(ctx context.Context, text string) (string, error) {
	if s.LLM == nil {
		return "", stageErr(StageModel, CodeUpstreamModelFailed, errors.New("llm client not configured"))
	}
	timeout := s.AITimeout
	if timeout <= 0 {
		timeout = DefaultAITimeout
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := s.LLM.Complete(mctx, text)
	if err != nil {
		if llm.IsTimeout(err) || errors.Is(mctx.Err(), context.DeadlineExceeded) {
			return "", stageErr(StageModel, CodeUpstreamModelTimeout, err)
		}
		return "", stageErr(StageModel, CodeUpstreamModelFailed, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", stageErr(StageModel, CodeUpstreamModelFailed, llm.ErrEmptyResponse)
	}
	return raw, nil
}

func (s *Service) upload(ctx context.Context, key string, data []byte) (string, error) {
	if _, err := object.Upload(ctx, s.Store, data, key, "application/pdf"); err != nil {
		return "", fmt.Errorf("upload pdf: %w", err)
	}
	ttl := s.SignedURLTTL
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	url, err := s.Store.SignedURL(ctx, key, ttl)
	if err != nil {
		return "", fmt.Errorf("sign pdf url: %w", err)
	}
	return url, nil
}

func (s *Service) send(ctx context.Context, msg mail.Message) error {
	if s.Mail == nil {
		return errors.New("mail sender not configured")
	}
	timeout := s.EmailTimeout
	if timeout <= 0 {
		timeout = DefaultEmailTimeout
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	mctx, span := tracing.Start(mctx, "generation.email")
	err := s.Mail.Send(mctx, msg)
	tracing.End(span, err)
	return err
}

// recordDelivery writes the ledger after delivery. Free generations commit
// the reservation; paid ones only count the generation.
func (s *Service) recordDelivery(ctx context.Context, email string, reservation *usage.Reservation, paid bool) (usage.Account, error) {
	if paid || reservation == nil {
		acct, err := s.Usage.RecordPaid(ctx, email)
		if err != nil {
			return usage.Account{}, stageErr(StageLedger, CodePersistenceFailed, err)
		}
		return acct, nil
	}
	acct, err := s.Usage.Commit(ctx, reservation.ID)
	if errors.Is(err, usage.ErrReservationNotFound) {
		// The hold expired while the pipeline ran; count the delivery anyway.
		telemetry.Warn("generation.reservation_expired", map[string]any{
			"request_id":     RequestID(ctx),
			"email":          email,
			"reservation_id": reservation.ID,
		})
		acct, err = s.Usage.RecordUsage(ctx, email)
	}
	if err != nil {
		return usage.Account{}, stageErr(StageLedger, CodePersistenceFailed, err)
	}
	return acct, nil
}

func (s *Service) release(ctx context.Context, reservation *usage.Reservation, jobID string) {
	if reservation == nil {
		return
	}
	if err := s.Usage.Release(detach(ctx), reservation.ID); err != nil {
		telemetry.Warn("generation.release_failed", map[string]any{
			"request_id":     RequestID(ctx),
			"job_id":         jobID,
			"reservation_id": reservation.ID,
			"error":          err,
		})
	}
}

func (s *Service) fail(ctx context.Context, job Job, reservation *usage.Reservation, doc resume.Document, err error, startedAt time.Time) {
	// Cleanup must run even when the request context is already done.
	bg := detach(ctx)
	s.release(ctx, reservation, job.ID)

	code := CodeOf(err)
	stage := ""
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	if _, terr := s.Jobs.Transition(bg, job.ID, StatusFailed, Update{
		At:           s.now(),
		ErrorCode:    code,
		ErrorMessage: sanitizeError(err),
	}); terr != nil {
		telemetry.Error("generation.fail_transition_failed", map[string]any{
			"request_id": RequestID(ctx),
			"job_id":     job.ID,
			"error":      terr,
		})
	}
	metrics.IncGenerationFailed(code)
	metrics.ObserveGenerationDuration(s.now().Sub(startedAt))
	s.logStatus(ctx, job, StatusFailed, "processing->failed", map[string]any{
		"stage":      stage,
		"error_code": code,
		"error":      sanitizeError(err),
	})
	s.notifyFailure(bg, job, doc)
}

func (s *Service) notifyFailure(ctx context.Context, job Job, doc resume.Document) {
	if s.Mail == nil {
		return
	}
	html, err := render.FailureEmail(doc.PersonalInfo.Name, job.ID)
	if err == nil {
		err = s.send(ctx, mail.Message{
			To:      job.RequesterEmail,
			Subject: "We couldn't finish your resume",
			HTML:    html,
		})
	}
	if err != nil {
		telemetry.Warn("generation.failure_notice_failed", map[string]any{
			"request_id": RequestID(ctx),
			"job_id":     job.ID,
			"email":      job.RequesterEmail,
			"error":      err,
		})
	}
}

func (s *Service) extractIntel(ctx context.Context, jobID string, in input, doc resume.Document) {
	if s.Intel == nil {
		return
	}
	bg := detach(ctx)
	work := func() { s.Intel.Record(bg, jobID, in.email, doc, in.jd) }
	if s.Go != nil {
		s.Go(work)
		return
	}
	go work()
}

func (s *Service) logStatus(ctx context.Context, job Job, status Status, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        RequestID(ctx),
		"job_id":            job.ID,
		"email":             job.RequesterEmail,
		"template_id":       job.TemplateID,
		"payment_verified":  job.PaymentVerified,
		"status":            status,
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("generation.status", fields)
}

func attachmentName(doc resume.Document, tpl templates.Template) string {
	name := strings.TrimSpace(doc.PersonalInfo.Name)
	if name == "" {
		name = "resume"
	}
	base, err := util.SanitizeFileName(strings.ReplaceAll(name, " ", "_") + "_" + tpl.ID + ".pdf")
	if err != nil {
		return "resume.pdf"
	}
	return base
}

func summarize(p parser.Parsed, pdfBytes int) string {
	names := make([]string, 0, len(p.Sections))
	for _, sec := range p.Sections {
		names = append(names, string(sec))
	}
	sections := "raw"
	if len(names) > 0 {
		sections = strings.Join(names, ",")
	}
	return fmt.Sprintf("sections=%s degraded=%t pdf_bytes=%d", sections, p.Degraded, pdfBytes)
}
