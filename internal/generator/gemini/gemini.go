// Package gemini generates initiatives with Google's Gemini models.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"scorecard/internal/core"
	"scorecard/internal/generator"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

const maxSuggestions = 5

var ErrEmptyResponse = errors.New("gemini: empty response from model")

// generateFunc is the model call; tests substitute it.
type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Generator asks a Gemini model for initiatives matching a benchmark.
type Generator struct {
	model    string
	generate generateFunc
}

// New creates a Generator. An empty apiKey lets the SDK read GEMINI_API_KEY or
// GOOGLE_API_KEY from the environment.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create genai client: %w", err)
	}
	return newGenerator(model, func(ctx context.Context, model, prompt string) (string, error) {
		contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
		resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
		if err != nil {
			return "", fmt.Errorf("gemini: generate content: %w", err)
		}
		return resp.Text(), nil
	}), nil
}

func newGenerator(model string, fn generateFunc) *Generator {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Generator{model: model, generate: fn}
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

func (g *Generator) Generate(ctx context.Context, req generator.Request) ([]core.GeneratedInitiative, error) {
	raw, err := g.generate(ctx, g.model, buildPrompt(req))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}
	return parseInitiatives(raw, req)
}

func buildPrompt(req generator.Request) string {
	var b strings.Builder
	b.WriteString("You are a marketing planner building initiatives for a scorecard benchmark.\n\n")
	fmt.Fprintf(&b, "Benchmark: %s\n", req.BenchmarkTitle)
	fmt.Fprintf(&b, "Metric: %s\n", req.MetricName)
	if req.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", req.Goal)
	}
	if req.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", req.Industry)
	}
	if req.Products != "" {
		fmt.Fprintf(&b, "Products: %s\n", req.Products)
	}
	if len(req.Channels) > 0 {
		fmt.Fprintf(&b, "Channels: %s\n", strings.Join(req.Channels, ", "))
	}
	fmt.Fprintf(&b, "Total budget: %.2f\n", req.TotalBudget)
	fmt.Fprintf(&b, "Available personnel: %s\n\n", strings.Join(req.Personnel, ", "))

	fmt.Fprintf(&b, "Propose between 1 and %d initiatives.\n", maxSuggestions)
	b.WriteString("Output a JSON array of objects with these fields:\n" +
		"- \"name\": string\n" +
		"- \"cost\": number, a share of the total budget\n" +
		"- \"difficulty\": integer 1 (easy) to 3 (hard)\n" +
		"- \"personnel\": array of names taken only from the available personnel\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}

// parseInitiatives decodes the model output and bounds every field:
// costs to [0, budget], difficulty to [1,3] and personnel to known names.
func parseInitiatives(raw string, req generator.Request) ([]core.GeneratedInitiative, error) {
	var parsed []core.GeneratedInitiative
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("gemini: unmarshal initiatives: %w", err)
	}
	budget := max(req.TotalBudget, 0)
	known := make(map[string]bool, len(req.Personnel))
	for _, p := range req.Personnel {
		known[p] = true
	}

	out := make([]core.GeneratedInitiative, 0, min(len(parsed), maxSuggestions))
	for _, in := range parsed {
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			continue
		}
		in.Cost = min(max(in.Cost, 0), budget)
		in.Difficulty = core.ClampDifficulty(in.Difficulty)
		staff := make([]string, 0, len(in.Personnel))
		for _, p := range in.Personnel {
			if known[p] {
				staff = append(staff, p)
			}
		}
		in.Personnel = staff
		out = append(out, in)
		if len(out) == maxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("gemini: no usable initiatives in response")
	}
	return out, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
