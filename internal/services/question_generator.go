package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"trivia-backend/internal/catalog"
	"trivia-backend/internal/models"
)

const (
	geminiModelName       = "gemini-3-flash-preview"
	maxGeneratedQuestions = 20
)

// TextModel turns a prompt into raw text.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QuestionSink persists newly accepted questions.
type QuestionSink interface {
	InsertMany(ctx context.Context, questions []models.Question) error
}

// JobRecorder stores the outcome of a generation job.
type JobRecorder interface {
	Complete(ctx context.Context, id uuid.UUID, resultCount int) error
}

type geminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiModel connects to Gemini with apiKey.
func NewGeminiModel(ctx context.Context, apiKey string) (TextModel, func(), error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(geminiModelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"

	return &geminiModel{client: client, model: model}, func() { client.Close() }, nil
}

func (g *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}
	return extractText(resp), nil
}

// QuestionGenerator asks a language model for new trivia questions and adds
// the ones that pass catalog validation.
type QuestionGenerator struct {
	model    TextModel
	catalog  *catalog.Catalog
	sink     QuestionSink
	jobs     JobRecorder
	notifier Notifier
	rateChan chan struct{} // Token bucket
}

func NewQuestionGenerator(model TextModel, concurrentReqs int, cat *catalog.Catalog, sink QuestionSink, jobs JobRecorder, notifier Notifier) *QuestionGenerator {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &QuestionGenerator{
		model:    model,
		catalog:  cat,
		sink:     sink,
		jobs:     jobs,
		notifier: notifier,
		rateChan: rateChan,
	}
}

// acquireRate blocks until a rate slot is available
func (g *QuestionGenerator) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (g *QuestionGenerator) releaseRate() {
	g.rateChan <- struct{}{}
}

// PublishUpdate sends a job progress message to the job owner.
func (g *QuestionGenerator) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	g.notifier.Notify(ctx, userID.String(), msg)
}

// Generate runs one question-generation job end to end. It returns the
// number of questions added to the catalog.
func (g *QuestionGenerator) Generate(ctx context.Context, job *models.Job) (int, error) {
	var req models.GenerateQuestionsRequest
	if err := json.Unmarshal(job.ConfigJSON, &req); err != nil {
		return 0, fmt.Errorf("invalid job config: %w", err)
	}

	if err := g.acquireRate(ctx); err != nil {
		return 0, err
	}
	defer g.releaseRate()

	g.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type:    models.WSStatusUpdate,
		Payload: models.StatusUpdate{JobID: job.ID, Step: 2, StepName: "Generating questions"},
	})

	raw, err := g.model.Generate(ctx, buildQuestionPrompt(req, g.existingTexts(req.Sport)))
	if err != nil {
		return 0, err
	}

	candidates := parseGeneratedQuestions(raw, req, job.ID)
	if len(candidates) == 0 {
		return 0, errors.New("model returned no usable questions")
	}

	g.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type:    models.WSStatusUpdate,
		Payload: models.StatusUpdate{JobID: job.ID, Step: 3, StepName: "Validating questions"},
	})

	added, rejected := g.catalog.Add(candidates...)
	for _, r := range rejected {
		log.Printf("question generation %s: rejected %v", job.ID, r)
	}
	if len(added) == 0 {
		return 0, errors.New("no generated question passed validation")
	}

	if err := g.sink.InsertMany(ctx, added); err != nil {
		return 0, fmt.Errorf("failed to store generated questions: %w", err)
	}
	if err := g.jobs.Complete(ctx, job.ID, len(added)); err != nil {
		return 0, err
	}
	return len(added), nil
}

// existingTexts lists a sample of current prompts so the model avoids
// repeating them.
func (g *QuestionGenerator) existingTexts(sport models.Sport) []string {
	pool := g.catalog.ForSport(sport)
	texts := make([]string, 0, len(pool))
	for i, q := range pool {
		if i >= 40 {
			break
		}
		texts = append(texts, q.Text)
	}
	return texts
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func buildQuestionPrompt(req models.GenerateQuestionsRequest, avoid []string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("You are an expert %s trivia writer. Generate multiple-choice trivia questions.\n\n", req.Sport))
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", req.Count))

	if req.Category != "" {
		b.WriteString(fmt.Sprintf("Topic category: %s\n", strings.ReplaceAll(string(req.Category), "_", " ")))
	}
	if req.Difficulty != "" {
		b.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
		switch req.Difficulty {
		case models.DifficultyEasy:
			b.WriteString("Easy = facts a casual fan knows.\n")
		case models.DifficultyMedium:
			b.WriteString("Medium = facts a regular follower knows.\n")
		case models.DifficultyHard:
			b.WriteString("Hard = deep cuts, exact numbers and history.\n")
		}
	}

	b.WriteString(`
JSON schema per question:
{"question": "string", "options": ["string", "string", "string", "string"], "correct_answer": "string"}

Rules:
- exactly 4 distinct options
- correct_answer must equal one of the options exactly
- facts must be verifiable; avoid anything that changes season to season
`)

	if len(avoid) > 0 {
		b.WriteString("\nDo not repeat these existing questions:\n")
		for _, t := range avoid {
			b.WriteString("- ")
			b.WriteString(t)
			b.WriteString("\n")
		}
	}

	return b.String()
}

type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// parseGeneratedQuestions decodes the model output into catalog questions.
// Ids are derived from the job so retries of the same job do not duplicate.
func parseGeneratedQuestions(raw string, req models.GenerateQuestionsRequest, jobID uuid.UUID) []models.Question {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &generated); err != nil {
		// Try to extract JSON array
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start >= 0 && end > start {
			json.Unmarshal([]byte(raw[start:end+1]), &generated)
		}
	}

	prefix := "gen-" + strings.ReplaceAll(jobID.String(), "-", "")[:12]
	questions := make([]models.Question, 0, len(generated))
	for i, gq := range generated {
		options := make([]string, 0, len(gq.Options))
		for _, opt := range gq.Options {
			options = append(options, strings.TrimSpace(opt))
		}
		q := models.Question{
			ID:            fmt.Sprintf("%s-%02d", prefix, i+1),
			Text:          strings.TrimSpace(gq.Question),
			Options:       options,
			CorrectAnswer: strings.TrimSpace(gq.CorrectAnswer),
			Sport:         req.Sport,
			Category:      req.Category,
			Difficulty:    req.Difficulty,
		}
		questions = append(questions, catalog.Enrich(q))
	}
	return questions
}
