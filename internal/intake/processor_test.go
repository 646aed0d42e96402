package intake

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/classifier"
	"github.com/mbpp-digital/intake/internal/knowledge"
	"github.com/mbpp-digital/intake/internal/models"
	"github.com/mbpp-digital/intake/internal/router"
	"github.com/mbpp-digital/intake/internal/session"
	"github.com/mbpp-digital/intake/internal/storage"
	"github.com/mbpp-digital/intake/internal/ticket"
	"github.com/mbpp-digital/intake/internal/workflow"
	"github.com/mbpp-digital/intake/pkg/database"
)

type harness struct {
	processor *Processor
	sessions  *session.Store
	tickets   *ticket.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Run())

	blobs, err := storage.NewLocalBlobStore(t.TempDir(), "http://localhost:8080/attachments", logger)
	require.NoError(t, err)

	cls := classifier.NewRules()
	sessions := session.NewStore(db, logger)
	tickets := ticket.NewStore(db, logger)
	ticketSvc := ticket.NewService(db, tickets, blobs, logger)
	engine := workflow.NewEngine(cls, logger, 3)
	rt := router.New(cls, logger)
	answerer := &knowledge.Static{Reply: "MBPP counters are open 8am to 5pm on weekdays."}

	return &harness{
		processor: NewProcessor(sessions, engine, rt, ticketSvc, answerer, logger),
		sessions:  sessions,
		tickets:   tickets,
	}
}

func (h *harness) turn(t *testing.T, sessionID, text string) *models.TurnResponse {
	t.Helper()
	resp, err := h.processor.ProcessTurn(context.Background(), models.TurnRequest{
		SessionID: sessionID,
		Text:      text,
	})
	require.NoError(t, err)
	return resp
}

func (h *harness) imageTurn(t *testing.T, sessionID string, image []byte) *models.TurnResponse {
	t.Helper()
	resp, err := h.processor.ProcessTurn(context.Background(), models.TurnRequest{
		SessionID:  sessionID,
		Attachment: image,
	})
	require.NoError(t, err)
	return resp
}

func TestComplaintConversation(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-complaint"

	resp := h.turn(t, sid, "I have a complaint about the service")
	assert.Contains(t, resp.PromptText, "service complaint")

	resp = h.turn(t, sid, "Service Complaint / Feedback")
	assert.Contains(t, resp.PromptText, "describe the issue")

	resp = h.turn(t, sid, "The MBPP website is not working")
	assert.Contains(t, resp.PromptText, "internet connection")

	resp = h.turn(t, sid, "Yes, still not working")
	assert.Contains(t, resp.PromptText, "summary of your complaint")

	resp = h.turn(t, sid, "Yes")
	require.NotEmpty(t, resp.TicketNumber)
	assert.Contains(t, resp.PromptText, resp.TicketNumber)

	tkt, err := h.tickets.GetByNumber(resp.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "Service/ System Error", tkt.Category)
	assert.Equal(t, "Aduan", tkt.Feedback)

	// the dialogue is over, the session is free for anything else
	resp = h.turn(t, sid, "hello")
	assert.Contains(t, resp.PromptText, "How can I help")
}

func TestComplaintTriagedAwayFromIncident(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-triage"

	h.turn(t, sid, "MBPP website is down")
	h.turn(t, sid, "Not an incident (Service Complaint)")
	h.turn(t, sid, "Website shows error 500")
	resp := h.turn(t, sid, "Yes")
	assert.Contains(t, resp.PromptText, "summary of your complaint")

	resp = h.turn(t, sid, "Yes")
	require.NotEmpty(t, resp.TicketNumber)

	tkt, err := h.tickets.GetByNumber(resp.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "Service/ System Error", tkt.Category)
	assert.Equal(t, "Website shows error 500", tkt.Details)
}

func TestTextIncidentConversation(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-incident"

	resp := h.turn(t, sid, "I want to report an incident")
	assert.Contains(t, resp.PromptText, "describe the incident")

	resp = h.turn(t, sid, "Fallen tree at Jalan Burma blocking half the road")
	assert.Contains(t, resp.PromptText, "Is that right?")

	resp = h.turn(t, sid, "Yes")
	assert.Equal(t, classifier.DefaultHazardQuestion, resp.PromptText)

	resp = h.turn(t, sid, "Yes")
	assert.Contains(t, resp.PromptText, "summary of your incident report")

	resp = h.turn(t, sid, "Yes")
	require.NotEmpty(t, resp.TicketNumber)

	tkt, err := h.tickets.GetByNumber(resp.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "Bencana Alam", tkt.Category)
	assert.Equal(t, "Pokok Tumbang", tkt.SubCategory)
	assert.NotEmpty(t, tkt.Location)
	assert.True(t, tkt.BlockedRoad)
}

func TestIncidentAsksForLocationWhenMissing(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-no-location"

	h.turn(t, sid, "I want to report an incident")
	h.turn(t, sid, "There is a big flood near my house")

	resp := h.turn(t, sid, "Yes")
	assert.Contains(t, resp.PromptText, "street name or area")

	h.turn(t, sid, "Lebuh Armenian")
	h.turn(t, sid, "Yes")
	resp = h.turn(t, sid, "Yes")
	require.NotEmpty(t, resp.TicketNumber)

	tkt, err := h.tickets.GetByNumber(resp.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "Lebuh Armenian", tkt.Location)
	assert.Equal(t, "Bencana Alam", tkt.Category)
	assert.Equal(t, "Banjir", tkt.SubCategory)
}

func TestImageIncidentConversation(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-image"
	image := []byte{0xff, 0xd8, 0xff, 0xe0}

	resp := h.imageTurn(t, sid, image)
	assert.Contains(t, resp.PromptText, "Image detected")

	resp = h.turn(t, sid, "Yes, report an incident")
	assert.Contains(t, resp.PromptText, "describe what's happening")

	resp = h.turn(t, sid, "Rubbish piled up at Lorong Kulit")
	assert.Equal(t, classifier.DefaultHazardQuestion, resp.PromptText)

	resp = h.turn(t, sid, "No")
	assert.Contains(t, resp.PromptText, "Image attached: Yes")

	resp = h.turn(t, sid, "Yes")
	require.NotEmpty(t, resp.TicketNumber)
	assert.NotEmpty(t, resp.AttachmentEchoURL)

	tkt, err := h.tickets.GetByNumber(resp.TicketNumber)
	require.NoError(t, err)
	assert.NotEmpty(t, tkt.ImageURL)
	assert.Equal(t, "Pengurusan Sampah", tkt.Category)
	assert.False(t, tkt.BlockedRoad)
}

func TestStartOverCancelsWorkflow(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-cancel"

	h.turn(t, sid, "I want to report an incident")
	resp := h.turn(t, sid, "start over")
	assert.Contains(t, resp.PromptText, "cancelled")

	sess, err := h.sessions.Get(sid)
	require.NoError(t, err)
	assert.Nil(t, sess.ActiveWorkflow)

	// the next message routes fresh instead of continuing the old dialogue
	resp = h.turn(t, sid, "What are MBPP's opening hours?")
	assert.Contains(t, resp.PromptText, "8am to 5pm")
}

func TestKnowledgeQuery(t *testing.T) {
	h := newHarness(t)

	resp := h.turn(t, "sess-kb", "What are MBPP's opening hours?")
	assert.Contains(t, resp.PromptText, "8am to 5pm")
	assert.Empty(t, resp.TicketNumber)
}

func TestGeneralChatGuidance(t *testing.T) {
	h := newHarness(t)

	resp := h.turn(t, "sess-chat", "hello there")
	assert.Contains(t, resp.PromptText, "How can I help")
	assert.Contains(t, resp.QuickReplies, "Report an Incident")
}

func TestExpiredSessionStartsFresh(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-expire"

	h.turn(t, sid, "I want to report an incident")
	h.turn(t, sid, "Fallen tree at Jalan Burma")

	// the reaper removes the idle session
	removed, err := h.sessions.SweepExpired(time.Now().Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	// mid-dialogue answer lands on a fresh session and routes from scratch
	resp := h.turn(t, sid, "Yes")
	assert.NotContains(t, resp.PromptText, "Is that right?")
	assert.Empty(t, resp.TicketNumber)

	sess, err := h.sessions.Get(sid)
	require.NoError(t, err)
	assert.Nil(t, sess.ActiveWorkflow)
}

func TestConcurrentTurnsOnSameSessionSerialise(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-concurrent"

	h.turn(t, sid, "I want to report an incident")

	// one of these advances the dialogue, the other two draw clarifications;
	// none of them may corrupt the stored session
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.processor.ProcessTurn(context.Background(), models.TurnRequest{
				SessionID: sid,
				Text:      "There is a big flood near my house",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := h.sessions.Get(sid)
	require.NoError(t, err)
	require.NotNil(t, sess.ActiveWorkflow)
	assert.False(t, sess.ActiveWorkflow.State.IsTerminal())
}

func TestDuplicateConfirmationIsIdempotent(t *testing.T) {
	h := newHarness(t)
	const sid = "sess-dup"

	h.turn(t, sid, "I want to report an incident")
	h.turn(t, sid, "Fallen tree at Jalan Burma")
	h.turn(t, sid, "Yes")
	h.turn(t, sid, "Yes")

	first := h.turn(t, sid, "Yes")
	require.NotEmpty(t, first.TicketNumber)

	// a second confirmation after completion routes as a fresh message,
	// not a second submission
	second := h.turn(t, sid, "Yes")
	assert.Empty(t, second.TicketNumber)

	_, err := h.tickets.GetByNumber(first.TicketNumber)
	assert.NoError(t, err)
}
