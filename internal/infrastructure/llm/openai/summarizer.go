package openai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	domainllm "juvenis/app/internal/domain/llm"
)

// SummarizerOptions configures the chat-backed extract summarizer.
type SummarizerOptions struct {
	Client       *Client
	Model        string
	Temperature  float64
	SystemPrompt string
	MaxRunes     int
}

type summarizer struct {
	client       *Client
	logger       *logrus.Logger
	model        string
	temperature  float64
	systemPrompt string
	maxRunes     int
}

const (
	defaultSummarizerSystemPrompt = `
	Eres editor de la revista académica Juvenis Sapiens.
	Resume la noticia que recibes en un extracto de una o dos frases, en español, con tono sobrio e informativo.
	Responde solo con el texto del extracto, sin comillas, sin HTML y sin encabezados.`
	defaultSummarizerTemperature = 0.3
	defaultExtractRunes          = 280
)

var _ domainllm.Summarizer = (*summarizer)(nil)

// NewSummarizer constructs a Summarizer backed by the chat completions API.
func NewSummarizer(opts SummarizerOptions) (domainllm.Summarizer, error) {
	if opts.Client == nil {
		return nil, eris.New("llm client is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("summarizer model is required")
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultSummarizerTemperature
	}

	systemPrompt := strings.TrimSpace(opts.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = strings.TrimSpace(defaultSummarizerSystemPrompt)
	}

	maxRunes := opts.MaxRunes
	if maxRunes <= 0 {
		maxRunes = defaultExtractRunes
	}

	return &summarizer{
		client:       opts.Client,
		logger:       opts.Client.logger,
		model:        model,
		temperature:  temperature,
		systemPrompt: systemPrompt,
		maxRunes:     maxRunes,
	}, nil
}

func (s *summarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	trimmedTitle := strings.TrimSpace(title)
	trimmedContent := strings.TrimSpace(content)
	if trimmedContent == "" {
		return "", eris.New("content is required")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(s.systemPrompt),
			openai.UserMessage(fmt.Sprintf("Título: %s\n\nContenido:\n%s", trimmedTitle, trimmedContent)),
		},
		Temperature: openai.Float(s.temperature),
	}

	completion, err := s.client.chat.New(ctx, params)
	if err != nil {
		s.logError(logrus.Fields{"title": trimmedTitle}, err, "requesting chat completion")
		return "", eris.Wrap(err, "requesting chat completion")
	}

	if len(completion.Choices) == 0 {
		err := eris.New("llm completion returned no choices")
		s.logError(logrus.Fields{"title": trimmedTitle}, err, "processing chat completion")
		return "", err
	}

	choice := completion.Choices[0]
	if reason := strings.TrimSpace(choice.FinishReason); strings.EqualFold(reason, "content_filter") {
		err := eris.New("llm blocked the request via content filter")
		s.logError(logrus.Fields{"title": trimmedTitle}, err, "summarizer blocked")
		return "", err
	}

	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		err := eris.Errorf("llm refused to summarize content: %s", refusal)
		s.logError(logrus.Fields{"title": trimmedTitle}, err, "summarizer refused")
		return "", err
	}

	extract := cleanExtract(choice.Message.Content, s.maxRunes)
	if extract == "" {
		err := eris.New("llm response content is empty")
		s.logError(logrus.Fields{"title": trimmedTitle}, err, "empty llm response")
		return "", err
	}

	return extract, nil
}

func (s *summarizer) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

// cleanExtract reduces a model reply to a single line of plain text no longer than maxRunes.
func cleanExtract(content string, maxRunes int) string {
	text := stripCodeFence(strings.TrimSpace(content))
	if strings.Contains(text, "<") {
		text = textContent(text)
	}

	text = strings.Join(strings.Fields(text), " ")
	text = strings.Trim(text, "\"'«»“”")
	text = strings.TrimSpace(text)

	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		cut := string(runes[:maxRunes])
		if idx := strings.LastIndex(cut, " "); idx > maxRunes/2 {
			cut = cut[:idx]
		}
		text = strings.TrimRight(cut, " ,;:.") + "…"
	}

	return text
}

func textContent(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch strings.ToLower(node.Data) {
			case "head", "script", "style":
				return
			}
		}
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
			builder.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return builder.String()
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	body := content[3:]
	newline := strings.IndexByte(body, '\n')
	if newline == -1 {
		return content
	}
	body = body[newline+1:]

	trimmedBody := strings.TrimRight(body, " \t\r\n")
	if !strings.HasSuffix(trimmedBody, "```") {
		return content
	}

	trimmedBody = strings.TrimRight(trimmedBody[:len(trimmedBody)-3], " \t\r\n")
	return strings.TrimSpace(trimmedBody)
}
