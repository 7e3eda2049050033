package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hyperjump/mcpws/internal/models"
	"go.uber.org/zap"
)

// Ingest uploads files to docling.ingest. metas, when non-nil, is sent as
// the JSON "metas" form field.
func (c *Client) Ingest(ctx context.Context, paths []string, metas map[string]interface{}) (*models.IngestResult, error) {
	fields := map[string]string{}
	if metas != nil {
		data, err := json.Marshal(metas)
		if err != nil {
			return nil, fmt.Errorf("encode metas: %w", err)
		}
		fields["metas"] = string(data)
	}
	var out models.IngestResult
	if err := c.upload(ctx, "docling.ingest", "files", paths, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Parse uploads one file to docling.parse.
func (c *Client) Parse(ctx context.Context, path string, withImages bool) (*models.ParseResult, error) {
	fields := map[string]string{"return_images": strconv.FormatBool(withImages)}
	var out models.ParseResult
	if err := c.upload(ctx, "docling.parse", "file", []string{path}, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) upload(ctx context.Context, tool, field string, paths []string, fields map[string]string, out interface{}) error {
	started := time.Now()
	ctx, corr := ensureCorrelation(ctx)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, p := range paths {
		if err := addFile(mw, field, p); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/call/"+tool, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	if err := c.do(req, out); err != nil {
		return err
	}
	c.logger.Info("tool.invoke.ok",
		zap.String("tool", tool),
		zap.String("corr", corr),
		zap.Int("files", len(paths)),
		zap.Int64("latency_ms", time.Since(started).Milliseconds()))
	return nil
}

func addFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
