// Package bot implements the conversational intake engine for CentralFlow.
//
// The engine is a per-conversation finite state machine that turns an
// unstructured inbound message stream into a structured customer record and a
// support ticket. Each turn is decided purely from the conversation's current
// stage, its accumulated collected data and the new inbound text; the only
// side effect is the completion step, which materializes the customer and
// ticket through the store in a single transaction.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andressabgomes/centralflow-sub000/internal/botconfig"
	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/util"
)

// Materializer persists the customer and ticket for a completed intake flow.
// Implementations must be atomic: on error no record may have been written
// and the conversation must be left unchanged, so the user's next message
// retries completion from the same stage.
type Materializer interface {
	Complete(ctx context.Context, conv *models.Conversation, collected map[string]string) (customerID, ticketID int64, err error)
}

// TurnResult is the engine's decision for one inbound message.
type TurnResult struct {
	NextStage  models.Stage
	Collected  map[string]string
	Reply      string
	Completed  bool
	CustomerID int64
	TicketID   int64
}

// Engine drives the intake conversation flow. It holds no per-conversation
// state; everything it needs arrives with each turn, so a single instance
// serves all conversations.
type Engine struct {
	templates    *botconfig.Provider
	materializer Materializer
}

// NewEngine creates an intake engine using the given reply templates and
// completion materializer.
func NewEngine(templates *botconfig.Provider, materializer Materializer) *Engine {
	return &Engine{templates: templates, materializer: materializer}
}

// ProcessTurn interprets one inbound message against the conversation's
// current stage and returns the updated collected data, the next stage and
// the reply to send. Invalid input never fails: the engine re-prompts and
// stays on the same stage. The returned collected map is always a copy; the
// input map is never mutated.
//
// The only error path is a persistence failure at completion. In that case
// the conversation has not advanced and no reply should be sent, so a resend
// by the user retries completion.
func (e *Engine) ProcessTurn(ctx context.Context, conv *models.Conversation, inboundText string) (TurnResult, error) {
	tmpl := e.templates.Get()
	collected := copyData(conv.CollectedData)
	stage := conv.Stage
	if stage == "" {
		stage = models.StageIdentify
	}
	slog.Debug("Engine.ProcessTurn", "conversationID", conv.ID, "stage", stage, "bodyLength", len(inboundText))

	switch stage {
	case models.StageIdentify:
		// Entry stage: the triggering message's text is irrelevant, emit the
		// person type prompt.
		return TurnResult{NextStage: models.StagePersonType, Collected: collected, Reply: tmpl.Welcome}, nil

	case models.StagePersonType:
		return e.handlePersonType(tmpl, collected, inboundText), nil

	case models.StageDocument:
		personType, ok := personTypeOf(collected)
		if !ok {
			return e.reset(conv, tmpl), nil
		}
		return e.handleDocument(tmpl, collected, personType, inboundText), nil

	case models.StageName:
		personType, ok := personTypeOf(collected)
		if !ok {
			return e.reset(conv, tmpl), nil
		}
		return e.handleName(tmpl, collected, personType, inboundText), nil

	case models.StageContactReason:
		if _, ok := personTypeOf(collected); !ok || collected[models.DataKeyDocument] == "" || collectedName(collected) == "" {
			return e.reset(conv, tmpl), nil
		}
		return e.handleContactReason(ctx, tmpl, conv, collected, inboundText)

	case models.StageCompleted:
		// Absorbing: no reply, no mutation.
		return TurnResult{NextStage: models.StageCompleted, Collected: collected}, nil

	default:
		slog.Warn("Engine.ProcessTurn unknown stage, resetting", "conversationID", conv.ID, "stage", stage)
		return e.reset(conv, tmpl), nil
	}
}

func (e *Engine) handlePersonType(tmpl botconfig.Templates, collected map[string]string, text string) TurnResult {
	switch strings.TrimSpace(text) {
	case "1":
		collected[models.DataKeyPersonType] = string(models.PersonTypeIndividual)
		return TurnResult{NextStage: models.StageDocument, Collected: collected, Reply: tmpl.DocumentPromptIndividual}
	case "2":
		collected[models.DataKeyPersonType] = string(models.PersonTypeOrganization)
		return TurnResult{NextStage: models.StageDocument, Collected: collected, Reply: tmpl.DocumentPromptOrganization}
	default:
		return TurnResult{NextStage: models.StagePersonType, Collected: collected, Reply: tmpl.InvalidPersonType}
	}
}

func (e *Engine) handleDocument(tmpl botconfig.Templates, collected map[string]string, personType models.PersonType, text string) TurnResult {
	digits := util.DigitsOnly(text)

	expected := models.CPFDigits
	docType := models.DocumentTypeCPF
	label := "CPF"
	namePrompt := tmpl.NamePromptIndividual
	if personType == models.PersonTypeOrganization {
		expected = models.CNPJDigits
		docType = models.DocumentTypeCNPJ
		label = "CNPJ"
		namePrompt = tmpl.NamePromptOrganization
	}

	// Digit count is the only validation performed; no checksum or registry
	// lookup. Formatting punctuation was already stripped above.
	if len(digits) != expected {
		reply := fmt.Sprintf(tmpl.InvalidDocument, label, label, expected)
		return TurnResult{NextStage: models.StageDocument, Collected: collected, Reply: reply}
	}

	collected[models.DataKeyDocument] = digits
	collected[models.DataKeyDocumentType] = string(docType)
	return TurnResult{NextStage: models.StageName, Collected: collected, Reply: namePrompt}
}

func (e *Engine) handleName(tmpl botconfig.Templates, collected map[string]string, personType models.PersonType, text string) TurnResult {
	name := strings.TrimSpace(text)
	if len([]rune(name)) < models.MinNameLength {
		return TurnResult{NextStage: models.StageName, Collected: collected, Reply: tmpl.InvalidName}
	}

	if personType == models.PersonTypeOrganization {
		collected[models.DataKeyCompanyName] = name
	} else {
		collected[models.DataKeyCustomerName] = name
	}
	reply := fmt.Sprintf(tmpl.ReasonPrompt, renderReasonList(tmpl.Reasons))
	return TurnResult{NextStage: models.StageContactReason, Collected: collected, Reply: reply}
}

func (e *Engine) handleContactReason(ctx context.Context, tmpl botconfig.Templates, conv *models.Conversation, collected map[string]string, text string) (TurnResult, error) {
	reason, ok := reasonFor(tmpl.Reasons, strings.TrimSpace(text))
	if !ok {
		reply := fmt.Sprintf(tmpl.InvalidReason, renderReasonList(tmpl.Reasons))
		return TurnResult{NextStage: models.StageContactReason, Collected: collected, Reply: reply}, nil
	}

	collected[models.DataKeyContactReason] = reason

	customerID, ticketID, err := e.materializer.Complete(ctx, conv, collected)
	if err != nil {
		// The conversation must not advance: the user's next message
		// re-attempts completion with the same collected data.
		slog.Error("Engine completion failed", "error", err, "conversationID", conv.ID)
		return TurnResult{}, fmt.Errorf("intake completion failed: %w", err)
	}

	reply := fmt.Sprintf(tmpl.Summary, collectedName(collected), collected[models.DataKeyDocument], reason, ticketID)
	slog.Info("Engine intake flow completed", "conversationID", conv.ID, "customerID", customerID, "ticketID", ticketID)
	return TurnResult{
		NextStage:  models.StageCompleted,
		Collected:  collected,
		Reply:      reply,
		Completed:  true,
		CustomerID: customerID,
		TicketID:   ticketID,
	}, nil
}

// reset handles corrupt collected data: a stage expected a field that a prior
// stage should have set but it is missing. Proceeding would be undefined
// behavior, so the flow restarts from the entry prompt with a fresh bag.
func (e *Engine) reset(conv *models.Conversation, tmpl botconfig.Templates) TurnResult {
	slog.Warn("Engine resetting conversation with corrupt collected data", "conversationID", conv.ID, "stage", conv.Stage)
	return TurnResult{NextStage: models.StagePersonType, Collected: make(map[string]string), Reply: tmpl.Welcome}
}

// personTypeOf reads and validates the person type collected earlier.
func personTypeOf(collected map[string]string) (models.PersonType, bool) {
	switch models.PersonType(collected[models.DataKeyPersonType]) {
	case models.PersonTypeIndividual:
		return models.PersonTypeIndividual, true
	case models.PersonTypeOrganization:
		return models.PersonTypeOrganization, true
	default:
		return "", false
	}
}

// collectedName returns whichever name field the flow populated.
func collectedName(collected map[string]string) string {
	if name := collected[models.DataKeyCustomerName]; name != "" {
		return name
	}
	return collected[models.DataKeyCompanyName]
}

// reasonFor maps a menu choice "1".."5" to its reason label.
func reasonFor(reasons []string, choice string) (string, bool) {
	if len(choice) != 1 || choice[0] < '1' || choice[0] > byte('0'+len(reasons)) {
		return "", false
	}
	return reasons[choice[0]-'1'], true
}

// renderReasonList renders the numbered contact reason menu.
func renderReasonList(reasons []string) string {
	var b strings.Builder
	for i, r := range reasons {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d - %s", i+1, r)
	}
	return b.String()
}

// copyData returns a copy of the collected data map, never nil.
func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
