package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acaslabs/mcp-server/constants"
	"github.com/acaslabs/mcp-server/internal/common"
	"github.com/acaslabs/mcp-server/internal/entity"
	"github.com/acaslabs/mcp-server/internal/llm"
)

// chatCompletion is the subset of the chat/completions response we consume.
type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateISATab implements llm.ISATabGenerator. The backend response is parsed
// for fenced ISA sub-documents; every parsed (or fallback) artifact is persisted
// under the job's isatab/ namespace before the call returns.
func (c *Client) GenerateISATab(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.generate.start",
		"req_id", rid,
		"job_id", req.JobID,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"files", len(req.Files),
		"experiment_id", req.Metadata.ExperimentID,
		"protocol_id", req.Metadata.ProtocolID,
	)

	sys := llm.BuildGenerationSystemPrompt(req.Metadata)
	user := llm.BuildGenerationUserPrompt(req.Files)

	content, err := c.complete(ctx, sys, user)
	if err != nil {
		c.logger.Error("llm.generate.backend_error",
			"req_id", rid, "job_id", req.JobID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.GenerateResult{}, common.TransformationError("isa-tab generation failed", err)
	}
	if strings.TrimSpace(content) == "" {
		c.logger.Error("llm.generate.empty_content", "req_id", rid, "job_id", req.JobID)
		return llm.GenerateResult{}, common.TransformationError("backend returned empty content", nil)
	}

	parsed := llm.ParseISADocuments(content)

	var artifacts []entity.Artifact
	if parsed.Fallback {
		storedPath, werr := c.store.Write(req.JobID, path.Join(constants.ISATabSubdir, constants.FallbackArtifactName), []byte(content))
		if werr != nil {
			return llm.GenerateResult{}, common.TransformationError("persist fallback artifact", werr)
		}
		artifacts = append(artifacts, entity.Artifact{
			Filename:    constants.FallbackArtifactName,
			StoragePath: storedPath,
		})
	} else {
		for _, doc := range parsed.Documents {
			storedPath, werr := c.store.Write(req.JobID, path.Join(constants.ISATabSubdir, doc.Filename), []byte(doc.Content))
			if werr != nil {
				// All-or-nothing: a partial artifact set is never returned.
				return llm.GenerateResult{}, common.TransformationError("persist artifact "+doc.Filename, werr)
			}
			artifacts = append(artifacts, entity.Artifact{
				Filename:    doc.Filename,
				StoragePath: storedPath,
			})
		}
	}

	c.logger.Info("llm.generate.ok",
		"req_id", rid,
		"job_id", req.JobID,
		"artifacts", len(artifacts),
		"fallback", parsed.Fallback,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.GenerateResult{Artifacts: artifacts, RawResponse: content}, nil
}

// ConvertToACAS implements llm.FormatConverter via exemplar-pair retrieval.
func (c *Client) ConvertToACAS(ctx context.Context, isaTabContent, targetFormat string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	if targetFormat == "" {
		targetFormat = constants.DefaultACASFormat
	}

	pairs, err := llm.LoadExemplarPairs(c.cfg.ExampleISADir, c.cfg.ExampleACASDir, c.logger)
	if err != nil {
		c.logger.Error("llm.convert.exemplar_error", "req_id", rid, "error", err)
		return "", common.ConversionError("load format exemplars", err)
	}
	if len(pairs) == 0 {
		c.logger.Error("llm.convert.no_exemplars", "req_id", rid,
			"isa_dir", c.cfg.ExampleISADir, "acas_dir", c.cfg.ExampleACASDir)
		return "", common.ConversionError("no format exemplars available", nil)
	}

	c.logger.Info("llm.convert.start",
		"req_id", rid,
		"target_format", targetFormat,
		"pairs", len(pairs),
		"input_len", len(isaTabContent),
	)

	prompt := llm.BuildConversionPrompt(pairs, isaTabContent, targetFormat)
	content, err := c.complete(ctx, llm.ConversionSystemPrompt, prompt)
	if err != nil {
		c.logger.Error("llm.convert.backend_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.ConversionError("acas conversion failed", err)
	}

	clean := llm.StripFencing(content)
	if clean == "" {
		return "", common.ConversionError("backend returned empty conversion", nil)
	}

	c.logger.Info("llm.convert.ok",
		"req_id", rid,
		"output_len", len(clean),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return clean, nil
}

// complete issues one chat/completions call and returns the first choice.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", err
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return cc.Choices[0].Message.Content, nil
}
