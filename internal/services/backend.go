package services

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
)

// Backend is a client for the playground backend HTTP API. It lists models, tags and stored parts, manages
// uploads, and runs generations over the request/response path.
type Backend struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// APIError is returned for any non-2xx response of the backend.
type APIError struct {
	StatusCode int
	// Detail is the "detail" field of the error body, or the whole body when it has none.
	Detail string
}

type uploadRepoRequest struct {
	RepoPath   string `json:"repoPath"`
	RepoBranch string `json:"repoBranch"`
}

const (
	errLoggerKey = "err"

	maxErrorBody = 64 << 10
)

// NewBackend creates a new Backend for the API rooted at baseURL, e.g. "http://localhost:8081/api". A nil
// client means http.DefaultClient.
func NewBackend(baseURL string, client *http.Client, logger *slog.Logger) Backend {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With(slog.String("module", "backend")),
	}
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded with status %d: %s", e.StatusCode, e.Detail)
}

// Models returns the models that can generate chat responses, largest input token limit first.
func (b Backend) Models(ctx context.Context) ([]models.ModelInfo, error) {
	var all []models.ModelInfo
	if err := b.do(ctx, http.MethodGet, "/models", nil, "", &all); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	ms := slices.DeleteFunc(all, func(m models.ModelInfo) bool {
		return !m.SupportsGeneration()
	})
	slices.SortStableFunc(ms, func(a, b models.ModelInfo) int {
		return cmp.Compare(b.InputTokenLimit, a.InputTokenLimit)
	})
	return ms, nil
}

// Tags returns the references that can be attached to a user message.
func (b Backend) Tags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := b.do(ctx, http.MethodGet, "/tags", nil, "", &tags); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// Parts returns the files and repositories stored by the backend.
func (b Backend) Parts(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	if err := b.do(ctx, http.MethodGet, "/parts", nil, "", &parts); err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	return parts, nil
}

// DeletePart deletes the stored part with the given name.
func (b Backend) DeletePart(ctx context.Context, name string) error {
	if err := b.do(ctx, http.MethodDelete, "/parts/"+url.PathEscape(name), nil, "", nil); err != nil {
		return fmt.Errorf("failed to delete part %q: %w", name, err)
	}
	return nil
}

// DeleteAllParts deletes every stored part.
func (b Backend) DeleteAllParts(ctx context.Context) error {
	if err := b.do(ctx, http.MethodDelete, "/deleteAllFiles", nil, "", nil); err != nil {
		return fmt.Errorf("failed to delete all parts: %w", err)
	}
	return nil
}

// UploadFile uploads the content of r as a file called name.
func (b Backend) UploadFile(ctx context.Context, name string, r io.Reader) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	if err := b.do(ctx, http.MethodPost, "/uploadFile", &body, w.FormDataContentType(), nil); err != nil {
		return fmt.Errorf("failed to upload %q: %w", name, err)
	}
	return nil
}

// UploadRepo asks the backend to import the repository at path, checked out at branch.
func (b Backend) UploadRepo(ctx context.Context, path, branch string) error {
	body, err := json.Marshal(uploadRepoRequest{RepoPath: path, RepoBranch: branch})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := b.do(ctx, http.MethodPost, "/uploadRepo", bytes.NewReader(body), "application/json", nil); err != nil {
		return fmt.Errorf("failed to upload repository %q: %w", path, err)
	}
	return nil
}

// Generate runs one generation over HTTP and returns its candidates.
func (b Backend) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.GenerateResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var res models.GenerateResult
	if err := b.do(ctx, http.MethodPost, "/generate", bytes.NewReader(body), "application/json", &res); err != nil {
		return models.GenerateResult{}, fmt.Errorf("failed to generate: %w", err)
	}
	return res, nil
}

// do sends one request and decodes a 2xx JSON response into out, if out is not nil.
func (b Backend) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		b.logger.Warn("Backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String(errLoggerKey, apiErr.Error()))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// decodeAPIError builds an APIError from a FastAPI style {"detail": ...} body. Detail may be a string or any
// JSON value, which is kept as is.
func decodeAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return apiErr
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		apiErr.Detail = s
		return apiErr
	}
	apiErr.Detail = string(body.Detail)
	return apiErr
}
