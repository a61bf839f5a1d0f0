package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/immuned/rheumabot/internal/catalog"
	"github.com/immuned/rheumabot/internal/models"
	"github.com/immuned/rheumabot/internal/session"
)

type stubOutbound struct {
	mu       sync.Mutex
	messages []struct{ Phone, Text string }
}

func (o *stubOutbound) Enqueue(phone, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, struct{ Phone, Text string }{phone, text})
}

func (o *stubOutbound) sent() []struct{ Phone, Text string } {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]struct{ Phone, Text string }(nil), o.messages...)
}

func (o *stubOutbound) lastText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return ""
	}
	return o.messages[len(o.messages)-1].Text
}

type stubSink struct {
	mu      sync.Mutex
	results []*models.Result
	fail    bool
}

func (s *stubSink) SaveResult(_ context.Context, r *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.results = append(s.results, r)
	return nil
}

func (s *stubSink) saved() []*models.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Result(nil), s.results...)
}

func newTestService(t *testing.T) (*ConversationService, *session.Store, *stubOutbound, *stubSink) {
	t.Helper()
	store := session.NewStore()
	out := &stubOutbound{}
	sink := &stubSink{}
	return NewConversationService(store, sink, out, catalog.Default()), store, out, sink
}

const phone = "5511987654321"

func TestAutoEnrollmentOnFirstContact(t *testing.T) {
	svc, store, out, _ := newTestService(t)
	if err := svc.HandleInbound(context.Background(), phone, "Oi"); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	sess, created := store.GetOrCreate(phone)
	if created {
		t.Fatalf("session should already exist")
	}
	if sess.Ordinal != 0 || len(sess.Answers) != 0 {
		t.Fatalf("fresh session = %+v", sess)
	}
	if !sess.IntroSent {
		t.Fatalf("IntroSent not recorded on session")
	}
	msgs := out.sent()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want intro + question 0", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "questionário sobre saúde reumatológica") {
		t.Fatalf("first message is not the intro: %q", msgs[0].Text)
	}
	if !strings.Contains(msgs[1].Text, "dor nas articulações") {
		t.Fatalf("second message is not question 0: %q", msgs[1].Text)
	}
}

func TestFirstContactTextIsNotAnAnswer(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	// A numeric first message only enrolls; it must not answer question 0.
	_ = svc.HandleInbound(context.Background(), phone, "2")
	sess, _ := store.GetOrCreate(phone)
	if sess.Ordinal != 0 || len(sess.Answers) != 0 {
		t.Fatalf("first-contact text was applied as answer: %+v", sess)
	}
}

func TestValidAnswerAdvances(t *testing.T) {
	svc, store, out, _ := newTestService(t)
	_ = svc.HandleInbound(context.Background(), phone, "Oi")
	if err := svc.HandleInbound(context.Background(), phone, "3"); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	sess, _ := store.GetOrCreate(phone)
	if sess.Ordinal != 1 || len(sess.Answers) != 1 {
		t.Fatalf("session after answer = %+v", sess)
	}
	a := sess.Answers[0]
	if a.Ordinal != 0 || a.Rank != 3 || a.Label != "3. Frequentemente" {
		t.Fatalf("answer = %+v", a)
	}
	if !strings.Contains(a.Prompt, "frequência você sentiu dor") {
		t.Fatalf("answer paired with wrong prompt: %q", a.Prompt)
	}
	if !strings.Contains(out.lastText(), "intensidade") {
		t.Fatalf("next question not sent: %q", out.lastText())
	}
}

func TestInvalidAnswerReprompts(t *testing.T) {
	svc, store, out, _ := newTestService(t)
	_ = svc.HandleInbound(context.Background(), phone, "Oi")
	question0 := out.lastText()

	for _, bad := range []string{"abc", "0", "5", "-1", ""} {
		before, _ := store.GetOrCreate(phone)
		_ = svc.HandleInbound(context.Background(), phone, bad)
		after, _ := store.GetOrCreate(phone)
		if after.Ordinal != before.Ordinal || len(after.Answers) != len(before.Answers) {
			t.Fatalf("invalid input %q mutated session: %+v -> %+v", bad, before, after)
		}
		if got := out.lastText(); got != question0 {
			t.Fatalf("invalid input %q: re-prompt = %q, want full question text", bad, got)
		}
	}
}

func TestInvalidAnswerTwiceIsIdempotent(t *testing.T) {
	svc, store, out, _ := newTestService(t)
	_ = svc.HandleInbound(context.Background(), phone, "Oi")

	_ = svc.HandleInbound(context.Background(), phone, "99")
	first, _ := store.GetOrCreate(phone)
	firstPrompt := out.lastText()
	_ = svc.HandleInbound(context.Background(), phone, "99")
	second, _ := store.GetOrCreate(phone)
	secondPrompt := out.lastText()

	if first.Ordinal != second.Ordinal || len(first.Answers) != len(second.Answers) {
		t.Fatalf("repeated invalid input changed state: %+v vs %+v", first, second)
	}
	if firstPrompt != secondPrompt {
		t.Fatalf("re-prompts differ: %q vs %q", firstPrompt, secondPrompt)
	}
}

func walk(t *testing.T, svc *ConversationService, ranks []int) {
	t.Helper()
	_ = svc.HandleInbound(context.Background(), phone, "Oi")
	for _, r := range ranks {
		if err := svc.HandleInbound(context.Background(), phone, fmt.Sprintf("%d", r)); err != nil {
			t.Fatalf("answer %d: %v", r, err)
		}
	}
}

func TestCompletionSevere(t *testing.T) {
	svc, store, out, sink := newTestService(t)
	walk(t, svc, []int{1, 2, 1, 4, 2, 1, 3, 2})

	saved := sink.saved()
	if len(saved) != 1 {
		t.Fatalf("saved %d results, want 1", len(saved))
	}
	r := saved[0]
	if r.Score.Numeric != 16 || r.Score.Severity != models.SeveritySevere {
		t.Fatalf("score = %+v, want 16/severe", r.Score)
	}
	if r.Phone != phone || r.ID == "" {
		t.Fatalf("result = %+v", r)
	}
	if len(r.Answers) != 8 {
		t.Fatalf("result has %d answers", len(r.Answers))
	}
	for i, a := range r.Answers {
		if a.Ordinal != i {
			t.Fatalf("answer %d has ordinal %d", i, a.Ordinal)
		}
	}
	closing := out.lastText()
	if closing != "Obrigado por responder às perguntas!" {
		t.Fatalf("closing = %q, want base thank-you without addendum", closing)
	}
	if _, created := store.GetOrCreate(phone); !created {
		t.Fatalf("session not removed after finalization")
	}
}

func TestCompletionVerySevere(t *testing.T) {
	svc, _, out, sink := newTestService(t)
	walk(t, svc, []int{4, 4, 4, 4, 4, 4, 4, 4})

	saved := sink.saved()
	if len(saved) != 1 {
		t.Fatalf("saved %d results, want 1", len(saved))
	}
	if saved[0].Score.Numeric != 32 || saved[0].Score.Severity != models.SeverityVerySevere {
		t.Fatalf("score = %+v, want 32/very_severe", saved[0].Score)
	}
	if !strings.Contains(out.lastText(), "consulte um médico imediatamente") {
		t.Fatalf("closing missing urgent addendum: %q", out.lastText())
	}
}

func TestSinkFailureStillFinalizes(t *testing.T) {
	svc, store, out, sink := newTestService(t)
	sink.fail = true
	walk(t, svc, []int{1, 1, 1, 1, 1, 1, 1, 1})

	if _, created := store.GetOrCreate(phone); !created {
		t.Fatalf("session survived a failed sink handoff")
	}
	if !strings.Contains(out.lastText(), "Obrigado") {
		t.Fatalf("closing message not sent on sink failure: %q", out.lastText())
	}
}

func TestContactAfterCompletionStartsFresh(t *testing.T) {
	svc, store, out, _ := newTestService(t)
	walk(t, svc, []int{1, 1, 1, 1, 1, 1, 1, 1})

	_ = svc.HandleInbound(context.Background(), phone, "Oi de novo")
	sess, created := store.GetOrCreate(phone)
	if created {
		t.Fatalf("no session after post-completion contact")
	}
	if sess.Ordinal != 0 || len(sess.Answers) != 0 {
		t.Fatalf("restarted session = %+v", sess)
	}
	if !strings.Contains(out.lastText(), "dor nas articulações") {
		t.Fatalf("question 0 not re-sent on restart: %q", out.lastText())
	}
}

// Invariant check under racing duplicate deliveries: answers never outrun the
// ordinal and no ordinal is answered twice.
func TestConcurrentDuplicatesNeverDoubleAdvance(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	_ = svc.HandleInbound(context.Background(), phone, "Oi")

	const dups = 8
	var wg sync.WaitGroup
	for i := 0; i < dups; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.HandleInbound(context.Background(), phone, "2")
		}()
	}
	wg.Wait()

	sess, _ := store.GetOrCreate(phone)
	if len(sess.Answers) != sess.Ordinal {
		t.Fatalf("len(answers)=%d != ordinal=%d", len(sess.Answers), sess.Ordinal)
	}
	seen := map[int]bool{}
	for i, a := range sess.Answers {
		if seen[a.Ordinal] {
			t.Fatalf("ordinal %d answered twice", a.Ordinal)
		}
		seen[a.Ordinal] = true
		if a.Ordinal != i {
			t.Fatalf("answer %d recorded for ordinal %d", i, a.Ordinal)
		}
	}
}

// Two different participants progress independently without cross-talk.
func TestParticipantsIsolated(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	other := "5521912340000"

	_ = svc.HandleInbound(context.Background(), phone, "Oi")
	_ = svc.HandleInbound(context.Background(), other, "Oi")

	var wg sync.WaitGroup
	for _, p := range []string{phone, other} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for _, r := range []int{1, 2, 3} {
				_ = svc.HandleInbound(context.Background(), p, fmt.Sprintf("%d", r))
			}
		}(p)
	}
	wg.Wait()

	for _, p := range []string{phone, other} {
		sess, _ := store.GetOrCreate(p)
		if sess.Ordinal != 3 || len(sess.Answers) != 3 {
			t.Fatalf("session for %s = %+v", p, sess)
		}
		for i, a := range sess.Answers {
			if a.Rank != i+1 {
				t.Fatalf("cross-contaminated answers for %s: %+v", p, sess.Answers)
			}
		}
	}

	// The second participant's enrollment must send its own intro: the
	// intro-sent bit is per session, never shared.
	sessOther, _ := store.GetOrCreate(other)
	if !sessOther.IntroSent {
		t.Fatalf("second participant missing intro")
	}
}
