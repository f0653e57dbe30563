// Package scheduler implements the single-consumer event loop: it owns
// the Conversations map, drains the shared EventQueue, selects the
// appropriate Orchestrator per event, and arms the next heartbeat.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/internal/prompt"
	"github.com/sentineld/agent/pkg/models"
)

const (
	cmdNew       = "/new"
	cmdHeartbeat = "/heartbeat"
	cmdCompress  = "/compress"
)

// ResponseLogger optionally records the final assistant response of each
// run, mirroring EventLogger.log_agent_response.
type ResponseLogger interface {
	LogAgentResponse(ctx context.Context, content string)
}

// Metrics optionally observes dispatch outcomes for every event the
// Scheduler processes.
type Metrics interface {
	RecordMessageProcessed(channel, outcome string)
	RecordHeartbeat(outcome string)
}

// Scheduler is the sole writer of the Conversations map: exactly one
// goroutine (Run) ever touches it, so no lock is needed around it.
type Scheduler struct {
	queue                  *EventQueue
	conversations          map[string]*Conversation
	agent                  *agent.Agent
	baseRegistry           *agent.ToolRegistry
	messaging              agent.Messaging
	registerInstanceTools  agent.RegisterInstanceTools
	promptBuilder          *prompt.Builder
	logger                 *observability.Logger
	responseLogger         ResponseLogger
	metrics                Metrics
	store                  Store
	wakeInterval           time.Duration
	contextMaxTokens       int
	timezone               string
	armTimer               *time.Timer
	armCancel              context.CancelFunc
}

// Config collects every dependency the Scheduler needs.
type Config struct {
	Queue                 *EventQueue
	Agent                 *agent.Agent
	BaseRegistry          *agent.ToolRegistry
	Messaging             agent.Messaging
	RegisterInstanceTools agent.RegisterInstanceTools
	PromptBuilder         *prompt.Builder
	Logger                *observability.Logger
	ResponseLogger        ResponseLogger
	Metrics               Metrics
	Store                 Store
	WakeInterval          time.Duration
	ContextMaxTokens      int
}

// New builds a Scheduler, optionally warming the Conversations map from a
// durable Store.
func New(config Config) (*Scheduler, error) {
	conversations := make(map[string]*Conversation)
	if config.Store != nil {
		loaded, err := config.Store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load persisted conversations: %w", err)
		}
		conversations = loaded
	}

	return &Scheduler{
		queue:                 config.Queue,
		conversations:         conversations,
		agent:                 config.Agent,
		baseRegistry:          config.BaseRegistry,
		messaging:             config.Messaging,
		registerInstanceTools: config.RegisterInstanceTools,
		promptBuilder:         config.PromptBuilder,
		logger:                config.Logger,
		responseLogger:        config.ResponseLogger,
		metrics:               config.Metrics,
		store:                 config.Store,
		wakeInterval:          config.WakeInterval,
		contextMaxTokens:      config.ContextMaxTokens,
		timezone:              localTimezoneName(),
	}, nil
}

// Run drains the event queue until ctx is cancelled. Exactly one event is
// fully processed — including every inner LLM/tool iteration — before the
// next is taken.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.cancelArm()

	for {
		event, ok := s.queue.take(ctx)
		if !ok {
			return nil
		}

		s.cancelArm()

		if err := s.dispatch(ctx, event); err != nil {
			s.logger.Error(ctx, "error during event processing", "error", err.Error())
			_ = s.messaging.Notify(ctx, "Error during event processing: "+err.Error())
		}

		s.armHeartbeat()
	}
}

// armHeartbeat schedules a HeartbeatEvent after wakeInterval, replacing
// any previously armed timer. Cancellation is idempotent.
func (s *Scheduler) armHeartbeat() {
	s.cancelArm()
	if s.wakeInterval <= 0 {
		return
	}
	armCtx, cancel := context.WithCancel(context.Background())
	s.armCancel = cancel
	s.armTimer = time.AfterFunc(s.wakeInterval, func() {
		_ = s.queue.Enqueue(armCtx, models.Heartbeat())
	})
}

func (s *Scheduler) cancelArm() {
	if s.armTimer != nil {
		s.armTimer.Stop()
		s.armTimer = nil
	}
	if s.armCancel != nil {
		s.armCancel()
		s.armCancel = nil
	}
}

func (s *Scheduler) dispatch(ctx context.Context, event models.Event) error {
	if event.IsHeartbeat() {
		err := s.dispatchHeartbeat(ctx)
		s.recordHeartbeat(err)
		return err
	}
	err := s.dispatchHumanInput(ctx, event.HumanInput)
	s.recordMessage(event.HumanInput.Channel, err)
	return err
}

func (s *Scheduler) recordHeartbeat(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordHeartbeat(outcome)
}

func (s *Scheduler) recordMessage(channel models.ChannelType, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordMessageProcessed(string(channel), outcome)
}

func (s *Scheduler) dispatchHeartbeat(ctx context.Context) error {
	systemPrompt := s.promptBuilder.Build("")
	content := fmt.Sprintf("Current Time: %s\nTimezone: %s\nSYSTEM EVENT: Heartbeat", s.now(), s.timezone)
	userMessage := models.ChatMessage{Role: models.RoleUser, Content: &content}

	orchestrator := agent.NewHeartbeatOrchestrator(s.baseRegistry, s.messaging)
	result, err := s.agent.Run(ctx, systemPrompt, []models.ChatMessage{userMessage}, orchestrator)
	if err != nil {
		return fmt.Errorf("heartbeat run: %w", err)
	}
	s.logResponse(ctx, result)
	return nil
}

func (s *Scheduler) dispatchHumanInput(ctx context.Context, event *models.HumanInputEvent) error {
	text := strings.TrimSpace(event.Message)
	switch text {
	case cmdNew:
		s.conversations[event.ChatID] = NewConversation(event.ChatID)
		s.persist(event.ChatID)
		return s.reply(ctx, event.ChatID, "New session started")
	case cmdHeartbeat:
		if err := s.queue.Enqueue(ctx, models.Heartbeat()); err != nil {
			return err
		}
		return s.reply(ctx, event.ChatID, "New heartbeat started")
	case cmdCompress:
		return s.handleCompress(ctx, event.ChatID)
	}

	return s.handleMessage(ctx, event)
}

func (s *Scheduler) handleCompress(ctx context.Context, chatID string) error {
	conversation := s.conversationFor(chatID)
	if conversation.TotalTokens < s.contextMaxTokens {
		return s.reply(ctx, chatID, fmt.Sprintf("No need to compress, total tokens: %d", conversation.TotalTokens))
	}

	summary, err := s.agent.Compress(ctx, conversation.Messages)
	if err != nil {
		return fmt.Errorf("compress conversation %s: %w", chatID, err)
	}

	conversation.PreviousSummary = summary
	conversation.Messages = nil
	conversation.TotalTokens = 0
	s.persist(chatID)

	return s.reply(ctx, chatID, "Conversation compressed")
}

func (s *Scheduler) handleMessage(ctx context.Context, event *models.HumanInputEvent) error {
	conversation := s.conversationFor(event.ChatID)
	if conversation.Seen(event.MessageID) {
		return nil
	}
	conversation.MarkSeen(event.MessageID)

	content := fmt.Sprintf("Message Time: %s\nTimezone: %s\n\n%s", s.now(), s.timezone, event.Message)
	conversation.Messages = append(conversation.Messages, models.ChatMessage{Role: models.RoleUser, Content: &content})

	systemPrompt := s.promptBuilder.Build(conversation.PreviousSummary)
	orchestrator := agent.NewHumanInputOrchestrator(s.baseRegistry, s.messaging, event.ChatID, event.MessageID, s.registerInstanceTools)

	result, err := s.agent.Run(ctx, systemPrompt, conversation.Messages, orchestrator)
	if err != nil {
		return fmt.Errorf("human input run for %s: %w", event.ChatID, err)
	}

	conversation.Messages = result.Messages
	conversation.TotalTokens = result.Usage.TotalTokens
	s.logResponse(ctx, result)
	s.persist(event.ChatID)
	return nil
}

func (s *Scheduler) conversationFor(chatID string) *Conversation {
	conversation, ok := s.conversations[chatID]
	if !ok {
		conversation = NewConversation(chatID)
		s.conversations[chatID] = conversation
	}
	return conversation
}

func (s *Scheduler) persist(chatID string) {
	if s.store == nil {
		return
	}
	conversation, ok := s.conversations[chatID]
	if !ok {
		return
	}
	if err := s.store.Save(conversation); err != nil {
		s.logger.Warn(context.Background(), "failed to persist conversation", "chat_id", chatID, "error", err.Error())
	}
}

func (s *Scheduler) reply(ctx context.Context, chatID, text string) error {
	return s.messaging.SendMessage(ctx, chatID, text)
}

func (s *Scheduler) logResponse(ctx context.Context, result agent.CompletionResult) {
	if s.responseLogger == nil || result.Message.Content == nil {
		return
	}
	s.responseLogger.LogAgentResponse(ctx, *result.Message.Content)
}

func (s *Scheduler) now() string {
	return time.Now().Format(time.RFC3339)
}

func localTimezoneName() string {
	name, _ := time.Now().Zone()
	return name
}
