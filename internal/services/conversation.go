package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/immuned/rheumabot/internal/catalog"
	"github.com/immuned/rheumabot/internal/metrics"
	"github.com/immuned/rheumabot/internal/models"
	"github.com/immuned/rheumabot/internal/session"
)

const introMessage = "Olá! Este é um questionário sobre saúde reumatológica realizado pela Immuned. " +
	"Por favor, responda às perguntas a seguir para que possamos avaliar sua condição."

// SessionStore is the keyed session state the engine mutates. Update must be
// atomic per key and report session.ErrNotFound for absent keys; GetOrCreate
// must never return two distinct sessions for one phone.
type SessionStore interface {
	GetOrCreate(phone string) (models.Session, bool)
	Update(phone string, fn func(*models.Session) error) error
	Remove(phone string)
	Len() int
}

// ResultSink persists finalized questionnaires. A sink failure is reported
// by the engine but never reopens or repeats a questionnaire.
type ResultSink interface {
	SaveResult(ctx context.Context, r *models.Result) error
}

// Outbound carries post-commit messages toward the gateway. Implementations
// must not block the caller.
type Outbound interface {
	Enqueue(phone, text string)
}

// ConversationService drives the per-participant state machine: one state
// AWAITING_ANSWER(k) per catalog ordinal, terminal on the last answer. All
// validation and mutation for a phone happens inside the store's per-key
// Update, so duplicate gateway deliveries cannot double-advance a session.
type ConversationService struct {
	store SessionStore
	sink  ResultSink
	out   Outbound
	cat   *catalog.Catalog
	now   func() time.Time
}

func NewConversationService(store SessionStore, sink ResultSink, out Outbound, cat *catalog.Catalog) *ConversationService {
	return &ConversationService{
		store: store,
		sink:  sink,
		out:   out,
		cat:   cat,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Sentinel outcomes of the atomic validate-then-commit step. None of them is
// surfaced to the webhook caller; each maps to a local recovery.
var (
	errStaleOrdinal  = errors.New("ordinal advanced concurrently")
	errInvalidAnswer = errors.New("unparseable or out-of-range answer")
	errComplete      = errors.New("session already complete")
)

// HandleInbound processes one webhook message for phone. It always returns
// nil for participant-level conditions (invalid answers, duplicates, lost
// races); only infrastructure misuse would produce an error, and today there
// is none, so the webhook handler can ACK unconditionally.
func (s *ConversationService) HandleInbound(ctx context.Context, phone, text string) error {
	text = strings.TrimSpace(text)

	sess, created := s.store.GetOrCreate(phone)
	if created {
		// Auto-enrollment: first contact starts a fresh questionnaire. The
		// triggering text is not treated as an answer.
		s.begin(phone)
		metrics.IncInbound(metrics.InboundEnrolled)
		return nil
	}

	observed := sess.Ordinal
	var (
		question  models.Question
		nextQ     models.Question
		hasNext   bool
		completed []models.Answer
	)
	err := s.store.Update(phone, func(live *models.Session) error {
		// Another delivery won the race for this ordinal; treat this one as
		// the duplicate and ignore it.
		if live.Ordinal != observed {
			return errStaleOrdinal
		}
		q, ok := s.cat.Question(live.Ordinal)
		if !ok {
			return errComplete
		}
		question = q
		sel, convErr := strconv.Atoi(text)
		if convErr != nil || sel < 1 || sel > len(q.Options) {
			return errInvalidAnswer
		}
		// Capture the (question, answer) pairing now; it is never re-derived
		// from the catalog after the ordinal moves.
		live.Answers = append(live.Answers, models.Answer{
			Ordinal: live.Ordinal,
			Prompt:  q.Prompt,
			Label:   q.Options[sel-1],
			Rank:    sel,
		})
		live.Ordinal++
		if nq, ok := s.cat.Question(live.Ordinal); ok {
			nextQ, hasNext = nq, true
		} else {
			completed = append([]models.Answer(nil), live.Answers...)
		}
		return nil
	})

	switch {
	case err == nil && completed != nil:
		s.finalize(ctx, phone, completed)
		metrics.IncInbound(metrics.InboundCompleted)
	case err == nil && hasNext:
		s.out.Enqueue(phone, s.cat.Render(nextQ))
		metrics.IncInbound(metrics.InboundAnswered)
	case errors.Is(err, errInvalidAnswer):
		// Defined recovery: re-send the full prompt, state untouched.
		s.out.Enqueue(phone, s.cat.Render(question))
		metrics.IncInbound(metrics.InboundInvalid)
	case errors.Is(err, errStaleOrdinal):
		metrics.IncInbound(metrics.InboundDuplicate)
	case errors.Is(err, errComplete):
		// Finalization already committed but removal had not landed yet.
		// Per the state machine, a complete session addressed again is "no
		// session": drop it and start over.
		s.store.Remove(phone)
		if _, created := s.store.GetOrCreate(phone); created {
			s.begin(phone)
		}
		metrics.IncInbound(metrics.InboundEnrolled)
	case errors.Is(err, session.ErrNotFound):
		// Session vanished between GetOrCreate and Update (concurrent
		// finalization). Start fresh.
		if _, created := s.store.GetOrCreate(phone); created {
			s.begin(phone)
			metrics.IncInbound(metrics.InboundEnrolled)
		} else {
			metrics.IncInbound(metrics.InboundDuplicate)
		}
	default:
		log.Printf("conversation: handle inbound for %s: %v", phone, err)
		metrics.IncInbound(metrics.InboundIgnored)
	}
	metrics.SetActiveSessions(s.store.Len())
	return nil
}

// Enroll starts a questionnaire for phone unless one is already in progress.
// It reports whether a new session was created.
func (s *ConversationService) Enroll(phone string) bool {
	_, created := s.store.GetOrCreate(phone)
	if created {
		s.begin(phone)
		metrics.SetActiveSessions(s.store.Len())
	}
	return created
}

// begin commits the intro-sent bit, then queues the intro and question 0.
// Commit-before-send: the session state never depends on delivery outcome.
func (s *ConversationService) begin(phone string) {
	if err := s.store.Update(phone, func(live *models.Session) error {
		live.IntroSent = true
		return nil
	}); err != nil {
		// Session evaporated before we marked it; the next inbound message
		// will re-enroll.
		log.Printf("conversation: mark intro for %s: %v", phone, err)
		return
	}
	s.out.Enqueue(phone, introMessage)
	if q, ok := s.cat.Question(0); ok {
		s.out.Enqueue(phone, s.cat.Render(q))
	}
}

// finalize scores the answers, hands the result to the sink, sends the
// severity-dependent closing text and removes the session. Removal is
// unconditional: a sink failure is logged, never retried inline, and the
// questionnaire never repeats.
func (s *ConversationService) finalize(ctx context.Context, phone string, answers []models.Answer) {
	score := Score(answers)
	result := &models.Result{
		ID:          uuid.NewString(),
		Phone:       phone,
		Score:       score,
		Answers:     answers,
		CompletedAt: s.now(),
	}
	// The handoff is bounded; a slow sink is treated as failed, not awaited.
	sinkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.sink.SaveResult(sinkCtx, result); err != nil {
		log.Printf("conversation: persist result for %s: %v", phone, err)
	}
	s.out.Enqueue(phone, ClosingMessage(score.Severity))
	s.store.Remove(phone)
	metrics.IncCompleted(string(score.Severity))
}
