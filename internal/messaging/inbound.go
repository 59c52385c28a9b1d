package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/andressabgomes/centralflow-sub000/internal/bot"
	"github.com/andressabgomes/centralflow-sub000/internal/models"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
	"github.com/google/uuid"
)

// DedupCacheLifeWindow bounds how long a message ID stays in the in-process
// dedup cache. The store keeps the durable record; the cache only short-cuts
// the common case of a provider retrying within seconds.
const DedupCacheLifeWindow = 10 * time.Minute

// InboundHandler drives the intake pipeline: it consumes a channel's
// response stream, deduplicates deliveries, serializes turns per phone
// number and feeds the bot engine.
type InboundHandler struct {
	store   store.Store
	engine  *bot.Engine
	service Service

	dedupCache *bigcache.BigCache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInboundHandler creates an inbound pipeline over the given store, engine
// and delivery channel.
func NewInboundHandler(st store.Store, engine *bot.Engine, service Service) *InboundHandler {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(DedupCacheLifeWindow))
	if err != nil {
		// The store-backed dedup still holds; only the fast path is lost.
		slog.Warn("InboundHandler dedup cache unavailable", "error", err)
		cache = nil
	}
	return &InboundHandler{
		store:      st,
		engine:     engine,
		service:    service,
		dedupCache: cache,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Run consumes the channel's response stream until the context is cancelled
// or the stream closes. Each message is handled in its own goroutine; the
// per-phone mutex keeps turns for the same conversation serial.
func (h *InboundHandler) Run(ctx context.Context) {
	slog.Info("InboundHandler starting")
	for {
		select {
		case <-ctx.Done():
			slog.Info("InboundHandler stopping due to context cancellation")
			return
		case resp, ok := <-h.service.Responses():
			if !ok {
				slog.Info("InboundHandler response stream closed")
				return
			}
			go func(resp models.Response) {
				if err := h.HandleInbound(ctx, resp); err != nil {
					slog.Error("InboundHandler failed to process message", "error", err, "from", resp.From)
				}
			}(resp)
		}
	}
}

// HandleInbound processes a single inbound message end to end: canonicalize,
// deduplicate, load or create the conversation, run the bot turn, persist
// and reply.
//
// On a persistence failure during completion no reply is sent and the
// conversation does not advance, so the user's next message retries the
// identical completion.
func (h *InboundHandler) HandleInbound(ctx context.Context, resp models.Response) error {
	phone, err := h.service.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		slog.Warn("InboundHandler dropping message with invalid sender", "from", resp.From, "error", err)
		return nil
	}

	if resp.MessageID != "" {
		fresh, err := h.recordInbound(resp.MessageID, phone)
		if err != nil {
			return fmt.Errorf("inbound dedup check failed: %w", err)
		}
		if !fresh {
			slog.Debug("InboundHandler skipping duplicate delivery", "messageID", resp.MessageID, "phone", phone)
			return nil
		}
	}

	lock := h.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	conv, err := h.store.GetActiveConversationByPhone(phone)
	if err != nil {
		return fmt.Errorf("failed to load conversation for %s: %w", phone, err)
	}
	now := time.Now()
	if conv == nil {
		conv = &models.Conversation{
			ID:            uuid.NewString(),
			PhoneNumber:   phone,
			Status:        models.ConversationStatusBot,
			Stage:         models.StageIdentify,
			CollectedData: make(map[string]string),
			LastMessageAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := h.store.SaveConversation(*conv); err != nil {
			return fmt.Errorf("failed to create conversation for %s: %w", phone, err)
		}
		slog.Info("InboundHandler opened new conversation", "conversationID", conv.ID, "phone", phone)
	}

	inbound := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Direction:      models.MessageDirectionInbound,
		Type:           "text",
		Content:        resp.Body,
		ExternalID:     resp.MessageID,
		CreatedAt:      now,
	}
	if err := h.store.AddMessage(inbound); err != nil {
		return fmt.Errorf("failed to record inbound message: %w", err)
	}

	if !conv.InBotMode() {
		// A human agent owns this conversation; the bot stays silent.
		conv.LastMessageAt = now
		conv.UpdatedAt = now
		if err := h.store.SaveConversation(*conv); err != nil {
			return fmt.Errorf("failed to touch conversation %s: %w", conv.ID, err)
		}
		h.markProcessed(resp.MessageID)
		return nil
	}

	result, err := h.engine.ProcessTurn(ctx, conv, resp.Body)
	if err != nil {
		// No advance, no reply: the next message retries this turn.
		return fmt.Errorf("bot turn failed for conversation %s: %w", conv.ID, err)
	}

	if result.Completed {
		// CompleteIntake already persisted the conversation transition.
		slog.Info("InboundHandler intake completed", "conversationID", conv.ID, "customerID", result.CustomerID, "ticketID", result.TicketID)
	} else {
		conv.Stage = result.NextStage
		conv.CollectedData = result.Collected
		conv.LastMessageAt = now
		conv.UpdatedAt = now
		if err := h.store.SaveConversation(*conv); err != nil {
			return fmt.Errorf("failed to persist conversation %s: %w", conv.ID, err)
		}
	}

	if result.Reply != "" {
		if err := h.service.SendMessage(ctx, phone, result.Reply); err != nil {
			// State already advanced; the reply is lost but the flow stays
			// consistent and re-prompts on the next message.
			slog.Error("InboundHandler failed to send reply", "error", err, "conversationID", conv.ID)
		} else {
			outbound := models.Message{
				ID:             uuid.NewString(),
				ConversationID: conv.ID,
				Direction:      models.MessageDirectionOutbound,
				Type:           "text",
				Content:        result.Reply,
				CreatedAt:      time.Now(),
			}
			if err := h.store.AddMessage(outbound); err != nil {
				slog.Error("InboundHandler failed to record reply", "error", err, "conversationID", conv.ID)
			}
		}
	}

	h.markProcessed(resp.MessageID)
	return nil
}

// recordInbound checks the in-process cache before the store so provider
// retries within the cache window never hit the database.
func (h *InboundHandler) recordInbound(messageID, phone string) (bool, error) {
	if h.dedupCache != nil {
		if _, err := h.dedupCache.Get(messageID); err == nil {
			return false, nil
		}
	}
	fresh, err := h.store.RecordInbound(messageID, phone)
	if err != nil {
		return false, err
	}
	if h.dedupCache != nil {
		if err := h.dedupCache.Set(messageID, []byte{1}); err != nil {
			slog.Debug("InboundHandler dedup cache set failed", "error", err)
		}
	}
	return fresh, nil
}

func (h *InboundHandler) markProcessed(messageID string) {
	if messageID == "" {
		return
	}
	if err := h.store.MarkProcessed(messageID); err != nil {
		slog.Warn("InboundHandler failed to mark message processed", "error", err, "messageID", messageID)
	}
}

// phoneLock returns the mutex serializing turns for one phone number.
func (h *InboundHandler) phoneLock(phone string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[phone] = lock
	}
	return lock
}
