package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/quizbot/quiz"
	"github.com/m3rciful/quizbot/quiz/authoring"
	"github.com/m3rciful/quizbot/quiz/play"
)

type recorder struct {
	replies []string
}

func (r *recorder) Reply(_ context.Context, text string) error {
	r.replies = append(r.replies, text)
	return nil
}

func (r *recorder) last() string {
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

type memRepo struct {
	mu        sync.Mutex
	questions []quiz.Question
	panicOn   bool
}

func (m *memRepo) Append(_ context.Context, q quiz.Question) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, q)
	return len(m.questions)
}

func (m *memRepo) Persist(context.Context) error { return nil }

func (m *memRepo) All() []quiz.Question {
	if m.panicOn {
		panic("repository exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]quiz.Question(nil), m.questions...)
}

func (m *memRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.questions)
}

type harness struct {
	repo *memRepo
	auth *authoring.Service
	play *play.Service
	d    *Dispatcher
	out  *recorder
}

func newHarness() *harness {
	repo := &memRepo{}
	a := authoring.New(repo)
	p := play.New(repo)
	return &harness{repo: repo, auth: a, play: p, d: New(a, p), out: &recorder{}}
}

func (h *harness) send(t *testing.T, ch, user int64, name, text string) string {
	t.Helper()
	before := len(h.out.replies)
	if err := h.d.Handle(context.Background(), Message{Channel: ch, User: user, UserName: name, Text: text}, h.out); err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	if len(h.out.replies) == before {
		return ""
	}
	return h.out.last()
}

func TestRoute(t *testing.T) {
	cases := map[string]string{
		"!abort":          "abort",
		"!createQuestion": "create_question",
		"!question":       "question",
		"!answer 1":       "answer",
		"!answer":         "answer",
		"!save":           "text",
		"!abort now":      "text",
		"hello":           "text",
	}
	for in, want := range cases {
		if got := Route(in); got != want {
			t.Fatalf("Route(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAuthorThenPlay(t *testing.T) {
	h := newHarness()
	for _, in := range []string{"!createQuestion", "Capital of France?", "wrong Berlin", "right Paris", "!save"} {
		h.send(t, 1, 7, "Ann", in)
	}
	if h.out.last() != authoring.MsgSaved {
		t.Fatalf("save reply %q", h.out.last())
	}
	all := h.repo.All()
	if len(all) != 1 || all[0].Text != "Capital of France?" || len(all[0].Answers) != 2 {
		t.Fatalf("repo = %+v", all)
	}

	asked := h.send(t, 1, 8, "Bo", "!question")
	if !strings.Contains(asked, "Capital of France?") {
		t.Fatalf("ask reply %q", asked)
	}
	if got := h.send(t, 1, 8, "Bo", "!answer 2"); got != "Bo, congratulations your answer was right." {
		t.Fatalf("answer reply %q", got)
	}
	if got := h.send(t, 1, 8, "Bo", "!answer 1"); got != play.MsgNoSession {
		t.Fatalf("follow-up reply %q", got)
	}
}

func TestTextWithoutSessionIsIgnored(t *testing.T) {
	h := newHarness()
	for _, in := range []string{"hello", "!save", "right Paris"} {
		if got := h.send(t, 1, 7, "Ann", in); got != "" {
			t.Fatalf("%q produced reply %q", in, got)
		}
	}
}

func TestCommandsBeatAuthoringInput(t *testing.T) {
	h := newHarness()
	h.send(t, 1, 7, "Ann", "!createQuestion")
	if got := h.send(t, 1, 7, "Ann", "!question"); got != play.MsgNoQuestions {
		t.Fatalf("!question during authoring replied %q", got)
	}
	sess, _ := h.auth.Session(authoring.Key{Channel: 1, User: 7})
	if sess.Phase != authoring.PhaseAwaitingQuestionText {
		t.Fatal("command was consumed as question text")
	}
}

// Anything starting with "!answer" belongs to the play flow, even while
// authoring; only exact tokens route the other commands.
func TestAnswerPrefixBeatsAuthoringInput(t *testing.T) {
	h := newHarness()
	key := authoring.Key{Channel: 1, User: 7}
	h.send(t, 1, 7, "Ann", "!createQuestion")
	h.send(t, 1, 7, "Ann", "Pick one")

	for _, in := range []string{"!answers are below", "!answer 1 please"} {
		if got := h.send(t, 1, 7, "Ann", in); got != play.MsgInvalid {
			t.Fatalf("%q replied %q", in, got)
		}
	}
	if got := h.send(t, 1, 7, "Ann", "!question please"); got != authoring.MsgInvalidAnswer {
		t.Fatalf("inexact command replied %q", got)
	}
	if got := h.send(t, 1, 7, "Ann", "right !answer 1"); got != authoring.MsgAnswerNoted {
		t.Fatalf("answer text replied %q", got)
	}
	sess, _ := h.auth.Session(key)
	if len(sess.Question.Answers) != 1 || sess.Question.Answers[0].Text != "!answer 1" {
		t.Fatalf("answers = %+v", sess.Question.Answers)
	}
}

func TestAbortClearsBothFlows(t *testing.T) {
	h := newHarness()
	h.repo.Append(context.Background(), quiz.Question{Text: "Q", Answers: []quiz.Answer{{Text: "a", Correct: true}}})
	h.send(t, 1, 7, "Ann", "!question")
	h.send(t, 1, 7, "Ann", "!createQuestion")

	if got := h.send(t, 1, 7, "Ann", "!abort"); got != "" {
		t.Fatalf("abort replied %q", got)
	}
	if h.auth.Active(authoring.Key{Channel: 1, User: 7}) || h.play.Active(1) {
		t.Fatal("abort left a session behind")
	}
	if got := h.send(t, 1, 7, "Ann", "!abort"); got != "" {
		t.Fatalf("idle abort replied %q", got)
	}
}

func TestAbortOnlyTouchesSendersAuthoring(t *testing.T) {
	h := newHarness()
	h.send(t, 1, 7, "Ann", "!createQuestion")
	h.send(t, 1, 8, "Bo", "!abort")
	if !h.auth.Active(authoring.Key{Channel: 1, User: 7}) {
		t.Fatal("another user's abort removed the session")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness()
	h.repo.panicOn = true
	if got := h.send(t, 1, 7, "Ann", "!question"); got != MsgUnexpected {
		t.Fatalf("reply %q", got)
	}
	h.repo.panicOn = false
	if got := h.send(t, 1, 7, "Ann", "!question"); got != play.MsgNoQuestions {
		t.Fatalf("after recovery reply %q", got)
	}
}

func TestReplierFunc(t *testing.T) {
	var got string
	r := ReplierFunc(func(_ context.Context, text string) error { got = text; return nil })
	d := newHarness().d
	if err := d.Handle(context.Background(), Message{Channel: 1, User: 1, Text: "!question"}, r); err != nil {
		t.Fatal(err)
	}
	if got != play.MsgNoQuestions {
		t.Fatalf("reply %q", got)
	}
}
