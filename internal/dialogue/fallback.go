package dialogue

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

//go:embed prompts/ravi_reply.txt
var raviReplyPrompt string

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Request is the context handed to a Fallback.
type Request struct {
	PlayerName   string
	Input        string
	Mood         string
	Relationship float64
	Location     string
}

// Fallback phrases a reply to input the keyword classifier did not
// understand.
type Fallback interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// GeminiFallback asks a Gemini model to answer in Ravi's voice.
type GeminiFallback struct {
	client *genai.Client
	model  *genai.GenerativeModel
	tmpl   *template.Template
}

// NewGeminiFallback connects to Gemini with apiKey.
func NewGeminiFallback(ctx context.Context, apiKey, modelName string) (*GeminiFallback, error) {
	tmpl, err := template.New("ravi_reply").Parse(raviReplyPrompt)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	// Replies are one or two sentences of terminal text.
	model.SetMaxOutputTokens(120)
	model.SetTemperature(0.8)

	return &GeminiFallback{client: client, model: model, tmpl: tmpl}, nil
}

// Close releases the client.
func (g *GeminiFallback) Close() {
	g.client.Close()
}

// Reply implements Fallback.
func (g *GeminiFallback) Reply(ctx context.Context, req Request) (string, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, req); err != nil {
		return "", err
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(buf.String()))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}

	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}

	reply := strings.TrimSpace(string(text))
	if reply == "" {
		return "", fmt.Errorf("empty reply from Gemini")
	}
	return reply, nil
}
