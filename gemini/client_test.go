package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/FrontDesk/domain"
)

type fakeModels struct {
	reply   string
	err     error
	model   string
	prompt  string
	persona string
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if cfg != nil && cfg.SystemInstruction != nil {
		f.persona = cfg.SystemInstruction.Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func TestSendTurnCleansReply(t *testing.T) {
	fake := &fakeModels{reply: "**Great!** Your session is _scheduled_ for 2025-05-15 at 11:00.\n\nWhat else can I help you with?"}
	c := newClient(fake, "", "Regex Software", zap.NewNop())

	got, err := c.SendTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Great! Your session is scheduled for 2025-05-15 at 11:00. What else can I help you with?", got)
	assert.Equal(t, DefaultModel, fake.model)
	assert.Contains(t, fake.persona, "HR assistant at Regex Software")
}

func TestCounselUsesStoredDetails(t *testing.T) {
	fake := &fakeModels{reply: "Python opens doors, Asha."}
	c := newClient(fake, "gemini-test", "Regex Software", nil)

	course := domain.SeedCatalog()[0]
	got, err := c.Counsel(context.Background(), "Asha", course)
	require.NoError(t, err)
	assert.Equal(t, "Python opens doors, Asha.", got)
	assert.Contains(t, fake.prompt, "Python Programming")
	assert.Contains(t, fake.prompt, "INR 15000.00")
	assert.Contains(t, fake.prompt, course.Duration)
	assert.Equal(t, "gemini-test", fake.model)
}

func TestGenerateErrors(t *testing.T) {
	c := newClient(&fakeModels{err: errors.New("quota")}, "", "Regex Software", nil)
	_, err := c.SendTurn(context.Background(), "hi")
	assert.ErrorContains(t, err, "quota")

	c = newClient(&fakeModels{reply: "   "}, "", "Regex Software", nil)
	_, err = c.SendTurn(context.Background(), "hi")
	assert.Error(t, err)
}

func TestCleanMarkdown(t *testing.T) {
	tests := map[string]string{
		"## Python\n- **Fees:** INR 15000": "Python Fees: INR 15000",
		"Use ```go\nfmt.Println()\n``` here": "Use here",
		"plain   text\n\n":                  "plain text",
		"keep snake_case_words":             "keep snake_case_words",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanMarkdown(in), in)
	}
}
