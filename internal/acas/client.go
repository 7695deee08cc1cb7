// Package acas wraps authentication and submission against the ACAS
// GenericDataParser. Submissions run in dry-run (validate-only) or commit mode;
// commit-mode calls are NOT idempotent and may create duplicate downstream
// records if repeated.
package acas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/constants"
	"github.com/acaslabs/mcp-server/internal/artifact"
	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
	"github.com/acaslabs/mcp-server/internal/llm"
)

// Submitter is the submission gateway the orchestrator depends on.
type Submitter interface {
	Submit(ctx context.Context, job entity.Job, mode entity.SubmissionMode) (entity.SubmissionOutcome, error)
}

// Config for the ACAS client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client drives the convert-authenticate-post sequence for one job submission.
type Client struct {
	cfg       Config
	http      *http.Client
	converter llm.FormatConverter
	store     *artifact.Store
	logger    *slog.Logger
}

func NewClient(cfg Config, converter llm.FormatConverter, store *artifact.Store, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.Timeout},
		converter: converter,
		store:     store,
		logger:    logger,
	}
}

// parserResponse is the decoded GenericDataParser payload.
type parserResponse struct {
	HasError      bool `json:"hasError"`
	ErrorMessages []struct {
		ErrorLevel string `json:"errorLevel"`
		Message    string `json:"message"`
	} `json:"errorMessages"`
	Results struct {
		ExperimentCode string `json:"experimentCode"`
		HTMLSummary    string `json:"htmlSummary"`
	} `json:"results"`
}

// Submit converts the job's primary ISA-Tab artifact to ACAS format, persists
// the converted file under the job's namespace, authenticates, and posts the
// multipart submission with the dry-run/commit flag.
func (c *Client) Submit(ctx context.Context, job entity.Job, mode entity.SubmissionMode) (entity.SubmissionOutcome, error) {
	rid := uuid.New().String()
	start := time.Now()
	dryRun := mode != entity.ModeCommit

	outcome := entity.SubmissionOutcome{Mode: mode}

	primary, ok := job.Result.PrimaryArtifact()
	if !ok {
		return outcome, common.MissingArtifactError("no investigation file found in ISA-Tab output")
	}

	c.logger.Info("acas.submit.start",
		"req_id", rid,
		"job_id", job.ID,
		"mode", mode,
		"primary", primary.Filename,
	)

	isaContent, err := c.store.Read(primary.StoragePath)
	if err != nil {
		return outcome, err
	}

	converted, err := c.converter.ConvertToACAS(ctx, string(isaContent), constants.DefaultACASFormat)
	if err != nil {
		return outcome, err
	}

	base := strings.TrimSuffix(primary.Filename, path.Ext(primary.Filename))
	acasFilename := base + "_acas.csv"
	acasPath, err := c.store.Write(job.ID, path.Join(constants.ACASSubdir, acasFilename), []byte(converted))
	if err != nil {
		return outcome, err
	}
	outcome.ACASFile = &entity.Artifact{Filename: acasFilename, StoragePath: acasPath}

	cookies, err := c.login(ctx)
	if err != nil {
		return outcome, err
	}

	resp, err := c.postSubmission(ctx, cookies, acasFilename, converted, dryRun)
	if err != nil {
		return outcome, err
	}

	if resp.HasError {
		msg := "Unknown error processing ISA-Tab files"
		if len(resp.ErrorMessages) > 0 && resp.ErrorMessages[0].Message != "" {
			msg = resp.ErrorMessages[0].Message
		}
		c.logger.Error("acas.submit.parser_error", "req_id", rid, "job_id", job.ID, "message", msg)
		return outcome, common.SubmissionError("ACAS GenericDataParser error: "+msg, nil)
	}

	outcome.Success = true
	outcome.ExperimentCode = resp.Results.ExperimentCode
	outcome.HTMLSummary = resp.Results.HTMLSummary

	c.logger.Info("acas.submit.ok",
		"req_id", rid,
		"job_id", job.ID,
		"dry_run", dryRun,
		"experiment_code", outcome.ExperimentCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outcome, nil
}

// login performs the credential exchange and returns the session cookies.
func (c *Client) login(ctx context.Context) ([]string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return nil, common.AuthenticationError("build login request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The login endpoint answers 200 or a 302 redirect; a redirect back to
	// /login means the credentials were rejected.
	client := &http.Client{
		Timeout: c.http.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, common.AuthenticationError("login request failed", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("acas.login.body_close_error", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return nil, common.AuthenticationError(fmt.Sprintf("login status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode == http.StatusFound && resp.Header.Get("Location") == "/login" {
		return nil, common.AuthenticationError("failed to login to ACAS, check credentials", nil)
	}

	cookies := resp.Header.Values("Set-Cookie")
	if len(cookies) == 0 {
		return nil, common.AuthenticationError("no cookies received after successful authentication", nil)
	}
	return cookies, nil
}

// postSubmission sends the converted file as a multipart form to the parser.
func (c *Client) postSubmission(ctx context.Context, cookies []string, filename, content string, dryRun bool) (parserResponse, error) {
	var out parserResponse

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("fileToParse", filename)
	if err != nil {
		return out, common.SubmissionError("build multipart form", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		return out, common.SubmissionError("write multipart file", err)
	}
	_ = mw.WriteField("dryRunMode", fmt.Sprintf("%t", dryRun))
	_ = mw.WriteField("user", c.cfg.Username)
	_ = mw.WriteField("testMode", "true")
	if err := mw.Close(); err != nil {
		return out, common.SubmissionError("finalize multipart form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/genericDataParser", &buf)
	if err != nil {
		return out, common.SubmissionError("build submission request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Cookie", strings.Join(cookies, "; "))

	resp, err := c.http.Do(req)
	if err != nil {
		return out, common.SubmissionError("submission request failed", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("acas.submit.body_close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, common.SubmissionError("read submission response", err)
	}
	if resp.StatusCode/100 != 2 {
		return out, common.SubmissionError(fmt.Sprintf("submission status %d: %s", resp.StatusCode, truncate(string(raw), 300)), nil)
	}

	if err := ValidateJSONAgainstSchema(parserResponseSchema(), raw); err != nil {
		return out, common.SubmissionError("unexpected GenericDataParser response shape", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, common.SubmissionError("decode GenericDataParser response", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
