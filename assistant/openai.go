package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/onboardhq/hr-assistant/knowledge"
)

// maxToolRounds bounds the tool-calling loop so a misbehaving model cannot
// spin a request forever.
const maxToolRounds = 5

const systemPrompt = "You are a helpful HR assistant for new employees. " +
	"Use the hr_knowledge_base tool to answer questions about company policies, " +
	"onboarding, benefits, and HR procedures. " +
	"Always search the knowledge base before answering HR-related questions. " +
	"If the information isn't in the knowledge base, politely say so. " +
	"Keep your answers concise and helpful."

// chatCompleter is the slice of the OpenAI client the agent uses.
// *openai.Client satisfies it; tests substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Agent is an Azure-OpenAI-backed Assistant with calendar and knowledge
// tools.
type Agent struct {
	client    chatCompleter
	model     string
	retriever knowledge.Retriever
	calendar  Calendar
	now       func() time.Time
}

// NewAgent builds the agent against Azure OpenAI.
func NewAgent(endpoint, apiKey, deployment, apiVersion string, retriever knowledge.Retriever, calendar Calendar) (*Agent, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, ErrNotReady
	}

	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	cfg.APIVersion = apiVersion
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &Agent{
		client:    openai.NewClientWithConfig(cfg),
		model:     deployment,
		retriever: retriever,
		calendar:  calendar,
		now:       time.Now,
	}, nil
}

// Reply runs the tool-calling loop until the model produces a plain answer.
func (a *Agent) Reply(ctx context.Context, history []Message, message string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt + fmt.Sprintf(" Today is %s.", a.now().UTC().Format(time.RFC3339)),
	})
	for _, m := range history {
		role := strings.ToLower(m.Role)
		if m.Content == "" || (role != "user" && role != "assistant") {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    a.toolDefinitions(),
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}

		choice := resp.Choices[0].Message
		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		messages = append(messages, choice)
		for _, call := range choice.ToolCalls {
			result := a.executeTool(ctx, call.Function.Name, call.Function.Arguments)
			log.Debug().Str("tool", call.Function.Name).Msg("executed tool call")
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("tool call loop exceeded %d rounds", maxToolRounds)
}
