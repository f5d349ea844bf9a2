package searchstore

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	pollInitialDelay = 500 * time.Millisecond
	pollMaxDelay     = 4 * time.Second
)

// Gemini implements Client on top of the Gemini File Search API.
type Gemini struct {
	client  *genai.Client
	model   string
	maxWait time.Duration
}

// NewGemini creates a Gemini-backed search store client. model is used for
// Query; maxWait bounds how long Upload polls for indexing to complete
// (<= 0 defaults to 30s).
func NewGemini(ctx context.Context, apiKey, model string, maxWait time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{client: client, model: model, maxWait: maxWait}, nil
}

// CreateStore creates a new file search store and returns its handle.
func (g *Gemini) CreateStore(ctx context.Context, displayName string) (RemoteStore, error) {
	store, err := g.client.FileSearchStores.Create(ctx, &genai.CreateFileSearchStoreConfig{
		DisplayName: displayName,
	})
	if err != nil {
		return RemoteStore{}, fmt.Errorf("creating file search store: %w", err)
	}
	return RemoteStore{Name: store.Name}, nil
}

// Upload pushes a file into a store and waits, with bounded exponential
// backoff, for the indexing operation to complete. If the operation is still
// running when maxWait elapses, the unfinished operation is returned without
// error; only transport failures are errors.
func (g *Gemini) Upload(ctx context.Context, req UploadRequest) (Operation, error) {
	op, err := g.client.FileSearchStores.UploadToFileSearchStoreFromPath(ctx, req.FilePath, req.StoreName,
		&genai.UploadToFileSearchStoreConfig{DisplayName: req.DisplayName})
	if err != nil {
		return Operation{}, fmt.Errorf("uploading %s: %w", req.DisplayName, err)
	}

	deadline := time.Now().Add(g.maxWait)
	delay := pollInitialDelay
	for !op.Done && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return Operation{}, ctx.Err()
		case <-time.After(delay):
		}

		op, err = g.client.Operations.GetUploadToFileSearchStoreOperation(ctx, op, nil)
		if err != nil {
			return Operation{}, fmt.Errorf("polling upload of %s: %w", req.DisplayName, err)
		}
		delay = nextPollDelay(delay)
	}

	return Operation{Done: op.Done, Name: op.Name}, nil
}

// Query asks a question grounded in the store's documents and returns the
// answer text.
func (g *Gemini) Query(ctx context.Context, req QueryRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{
			FileSearch: &genai.FileSearch{
				FileSearchStoreNames: []string{req.StoreName},
			},
		}},
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.SystemPrompt)},
		}
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Question), cfg)
	if err != nil {
		return "", fmt.Errorf("querying store: %w", err)
	}
	return resp.Text(), nil
}

// nextPollDelay doubles the delay up to pollMaxDelay.
func nextPollDelay(d time.Duration) time.Duration {
	d *= 2
	if d > pollMaxDelay {
		return pollMaxDelay
	}
	return d
}
