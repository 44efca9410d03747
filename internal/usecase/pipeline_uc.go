// File: internal/usecase/pipeline_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-image-bot/internal/domain"
	"whatsapp-image-bot/internal/domain/model"
	"whatsapp-image-bot/internal/domain/ports/adapter"
	"whatsapp-image-bot/internal/domain/ports/repository"
	"whatsapp-image-bot/internal/infra/logging"
	"whatsapp-image-bot/internal/infra/metrics"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// PipelineUseCase drives one inbound event through the full pipeline:
// dedup -> ensure user -> classify -> (pending state | command | process).
type PipelineUseCase interface {
	HandleEvent(ctx context.Context, ev model.InboundEvent) error
}

// AddressLocker serializes the per-address critical section around pending
// consumption. Held narrowly: never across transform, upload or dispatch.
type AddressLocker interface {
	TryLock(ctx context.Context, address string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, address, token string) error
}

// Replies resolves the user-facing message catalog.
type Replies interface {
	T(key string, args ...interface{}) string
}

// backgroundDirective is the fixed prompt the `background` keyword maps to;
// any other instruction is routed to the provider verbatim.
const backgroundDirective = "Remove the background completely, keeping only the main subject, while maintaining the original composition and object placement"

type pipelineUC struct {
	ledger    LedgerUseCase
	pending   repository.PendingImageRepository
	dedup     repository.EventDeduper
	locker    AddressLocker
	transform adapter.TransformAdapter
	store     adapter.MediaStore
	messenger adapter.Messenger
	replies   Replies

	costPerImage  int
	checkoutURL   string
	uploadTimeout time.Duration

	log *zerolog.Logger
	dev bool
}

func NewPipelineUseCase(
	ledger LedgerUseCase,
	pending repository.PendingImageRepository,
	dedup repository.EventDeduper,
	locker AddressLocker,
	transform adapter.TransformAdapter,
	store adapter.MediaStore,
	messenger adapter.Messenger,
	replies Replies,
	costPerImage int,
	checkoutURL string,
	uploadTimeout time.Duration,
	logger *zerolog.Logger,
	dev bool,
) *pipelineUC {
	if costPerImage <= 0 {
		costPerImage = 1
	}
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &pipelineUC{
		ledger:        ledger,
		pending:       pending,
		dedup:         dedup,
		locker:        locker,
		transform:     transform,
		store:         store,
		messenger:     messenger,
		replies:       replies,
		costPerImage:  costPerImage,
		checkoutURL:   checkoutURL,
		uploadTimeout: uploadTimeout,
		log:           logger,
		dev:           dev,
	}
}

func (p *pipelineUC) HandleEvent(ctx context.Context, ev model.InboundEvent) error {
	ctx = logging.WithEventID(ctx, ev.EventID)
	ctx = logging.WithAddress(ctx, logging.Redact(ev.From, p.dev))
	log := logging.With(ctx, p.log)
	defer logging.TraceDuration(log, "PipelineUC.HandleEvent")()

	// At-least-once inbound delivery: drop redelivered events before any
	// side effect.
	first, err := p.dedup.ClaimEvent(ctx, ev.EventID)
	if err != nil {
		return err
	}
	if !first {
		metrics.IncWebhookEvent("duplicate")
		log.Debug().Msg("duplicate event dropped")
		return nil
	}

	user, err := p.ledger.EnsureUser(ctx, ev.From)
	if err != nil {
		return err
	}

	classified := ev.Classify()
	switch classified.Kind {
	case model.KindImage:
		metrics.IncWebhookEvent("image")
		return p.handleImage(ctx, log, user, ev, classified)
	case model.KindCommand:
		metrics.IncWebhookEvent("command")
		return p.handleCommand(ctx, log, user, classified.Command)
	case model.KindInstruction:
		metrics.IncWebhookEvent("instruction")
		return p.handleInstruction(ctx, log, user, classified.Instruction)
	default:
		metrics.IncWebhookEvent("unknown")
		p.reply(ctx, log, user.Address, p.replies.T("unknown_event"), "")
		return nil
	}
}

// handleImage stores the pending image (latest wins) and sends the action
// prompt. The prompt never requires credits.
func (p *pipelineUC) handleImage(ctx context.Context, log *zerolog.Logger, user *model.User, ev model.InboundEvent, classified model.ClassifiedEvent) error {
	pending := &model.PendingImage{
		Address:    user.Address,
		ImageURL:   classified.ImageURL,
		EventID:    ev.EventID,
		ReceivedAt: time.Now(),
	}
	if err := p.pending.Set(ctx, pending); err != nil {
		return err
	}
	log.Info().Msg("pending image stored")
	p.reply(ctx, log, user.Address, p.replies.T("action_prompt"), "")
	return nil
}

// handleCommand answers directly from the ledger or static text. Commands
// never consume a pending image.
func (p *pipelineUC) handleCommand(ctx context.Context, log *zerolog.Logger, user *model.User, cmd model.CommandKind) error {
	switch cmd {
	case model.CommandBalance:
		balance, err := p.ledger.Balance(ctx, user.Address)
		if err != nil {
			return err
		}
		p.reply(ctx, log, user.Address, p.replies.T("balance", balance), "")
	case model.CommandBuy:
		p.reply(ctx, log, user.Address, p.replies.T("buy", p.checkoutURL), "")
	case model.CommandHelp:
		p.reply(ctx, log, user.Address, p.replies.T("help"), "")
	}
	return nil
}

// handleInstruction consumes the pending image (exactly once) and runs the
// processing stage.
func (p *pipelineUC) handleInstruction(ctx context.Context, log *zerolog.Logger, user *model.User, instruction string) error {
	// The per-address lock covers only pending consumption so slow external
	// calls for one user never serialize others.
	token, lockErr := p.locker.TryLock(ctx, user.Address, 10*time.Second)
	pending, takeErr := p.pending.Take(ctx, user.Address)
	if lockErr == nil {
		_ = p.locker.Unlock(ctx, user.Address, token)
	}
	if takeErr != nil {
		switch {
		case errors.Is(takeErr, domain.ErrStalePending):
			log.Info().Msg("pending image expired")
			p.reply(ctx, log, user.Address, p.replies.T("resend_image"), "")
			return nil
		case errors.Is(takeErr, domain.ErrNotFound):
			p.reply(ctx, log, user.Address, p.replies.T("send_image_first"), "")
			return nil
		default:
			return takeErr
		}
	}

	return p.process(ctx, log, user, pending, instruction)
}

// process is the Processing stage of the state machine. The ordering is the
// key correctness decision: the debit commits only after the user-visible
// artifact exists in durable storage.
func (p *pipelineUC) process(ctx context.Context, log *zerolog.Logger, user *model.User, pending *model.PendingImage, instruction string) error {
	job := model.NewJob(user.Address, pending.ImageURL, instruction)
	ctx = logging.WithJobID(ctx, job.ID)
	log = logging.With(ctx, p.log)
	start := time.Now()

	// Pre-check: no transform attempt without at least one credit.
	ok, err := p.ledger.HasCredits(ctx, user.Address)
	if err != nil {
		return err
	}
	if !ok {
		metrics.PrecheckBlocked()
		p.finishJob(log, job, model.JobFailed, "insufficient_credits", start)
		p.reply(ctx, log, user.Address, p.replies.T("out_of_credits"), "")
		return nil
	}

	sourceURL, err := p.ensurePublicSource(ctx, log, job)
	if err != nil {
		p.finishJob(log, job, model.JobFailed, failClass(err), start)
		p.reply(ctx, log, user.Address, p.replies.T("processing_failed"), "")
		return nil
	}

	prompt := instruction
	if model.IsBackground(instruction) {
		prompt = backgroundDirective
	}

	callStart := time.Now()
	result, err := p.transform.Transform(ctx, sourceURL, prompt)
	metrics.ObserveTransform(p.transform.Name(), time.Since(callStart).Milliseconds(), err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("transform failed")
		p.finishJob(log, job, model.JobFailed, failClass(err), start)
		p.reply(ctx, log, user.Address, p.replies.T("processing_failed"), "")
		return nil
	}

	key := job.ObjectKey("processed", extFor(result.ContentType))
	upCtx, cancel := context.WithTimeout(ctx, p.uploadTimeout)
	upStart := time.Now()
	publicURL, err := p.store.Store(upCtx, result.Data, result.ContentType, key)
	cancel()
	metrics.ObserveUpload(time.Since(upStart).Milliseconds(), err == nil)
	if err != nil {
		log.Warn().Err(err).Str("object_key", key).Msg("upload failed")
		p.finishJob(log, job, model.JobFailed, failClass(err), start)
		p.reply(ctx, log, user.Address, p.replies.T("processing_failed"), "")
		return nil
	}

	// Balance is checked at debit time, not at pipeline start: a purchase
	// landing mid-job is visible here, and a race that drained the balance
	// fails the job without charging.
	balance, err := p.ledger.Debit(ctx, user.Address, p.costPerImage)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			metrics.PrecheckBlocked()
			p.finishJob(log, job, model.JobFailed, "insufficient_credits", start)
			p.reply(ctx, log, user.Address, p.replies.T("out_of_credits"), "")
			return nil
		}
		p.finishJob(log, job, model.JobFailed, "ledger_error", start)
		p.reply(ctx, log, user.Address, p.replies.T("processing_failed"), "")
		return err
	}

	job.ResultURL = publicURL
	p.finishJob(log, job, model.JobDelivered, "", start)
	p.reply(ctx, log, user.Address, p.replies.T("result_ready", balance), publicURL)
	return nil
}

// ensurePublicSource re-hosts platform-held media so the transform service
// can fetch it; URLs that are already public pass through untouched.
func (p *pipelineUC) ensurePublicSource(ctx context.Context, log *zerolog.Logger, job *model.Job) (string, error) {
	if !p.messenger.NeedsRehost(job.SourceURL) {
		return job.SourceURL, nil
	}
	data, ctype, err := p.messenger.FetchMedia(ctx, job.SourceURL)
	if err != nil {
		return "", err
	}
	key := job.ObjectKey("original", extFor(ctype))
	upCtx, cancel := context.WithTimeout(ctx, p.uploadTimeout)
	defer cancel()
	publicURL, err := p.store.Store(upCtx, data, ctype, key)
	if err != nil {
		return "", err
	}
	log.Info().Str("object_key", key).Msg("inbound media re-hosted")
	return publicURL, nil
}

// reply is best effort: a dispatch failure is logged and counted, never
// propagated, and never reverses a committed debit.
func (p *pipelineUC) reply(ctx context.Context, log *zerolog.Logger, address, text, mediaURL string) {
	if err := p.messenger.Send(ctx, address, text, mediaURL); err != nil {
		metrics.IncReply("failed")
		log.Error().Err(err).Msg("reply dispatch failed")
		return
	}
	metrics.IncReply("sent")
}

func (p *pipelineUC) finishJob(log *zerolog.Logger, job *model.Job, status model.JobStatus, class string, start time.Time) {
	job.Status = status
	job.FailClass = class
	metrics.IncJob(string(status), class)
	evt := log.Info()
	if status == model.JobFailed {
		evt = log.Warn()
	}
	evt.Str("status", string(status)).
		Str("class", class).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("job finished")
}

// failClass maps the error taxonomy to a metrics/log label.
func failClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrTransformTimeout):
		return "transform_timeout"
	case errors.Is(err, domain.ErrTransformRejected):
		return "transform_rejected"
	case errors.Is(err, domain.ErrTransformUnavailable):
		return "transform_unavailable"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return "unsupported_media"
	default:
		return "internal"
	}
}

// extFor mirrors the upload key extension to the artifact's content type.
func extFor(contentType string) string {
	ctype := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ctype {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
