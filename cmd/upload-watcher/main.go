// Command upload-watcher detects new raw-data files in a directory and uploads
// them to the MCP server with the service API token. Run it one-shot from cron,
// or with --watch to keep monitoring via fsnotify.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// processedMarker is appended to a file's path once it has been uploaded.
const processedMarker = ".processed"

var (
	experimentIDPattern = regexp.MustCompile(`EXPT-\d+`)
	protocolIDPattern   = regexp.MustCompile(`PROT-\d+`)
)

type uploader struct {
	serverURL string
	apiToken  string
	http      *http.Client
	logger    *slog.Logger
}

func main() {
	_ = godotenv.Load()

	var (
		dir      = flag.String("dir", os.Getenv("WATCH_DIR"), "directory to watch for new raw data files (required)")
		url      = flag.String("url", envOr("MCP_URL", "http://localhost:3002/api/v1"), "MCP server API base URL")
		token    = flag.String("token", envOr("API_TOKEN", "cron-job-token"), "service API token")
		watch    = flag.Bool("watch", false, "keep running and watch for new files")
		debounce = flag.Duration("debounce", 2*time.Second, "settle time before uploading a changed file")
	)
	flag.Parse()

	logger := slog.Default()

	if *dir == "" {
		logger.Error("--dir is required (or set WATCH_DIR)")
		os.Exit(1)
	}

	up := &uploader{
		serverURL: strings.TrimRight(*url, "/"),
		apiToken:  *token,
		http:      &http.Client{Timeout: 60 * time.Second},
		logger:    logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := up.scanOnce(ctx, *dir)
	if err != nil {
		logger.Error("scan failed", "dir", *dir, "error", err)
		os.Exit(1)
	}

	if !*watch {
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	if err := up.watchLoop(ctx, *dir, *debounce); err != nil {
		logger.Error("watch failed", "dir", *dir, "error", err)
		os.Exit(1)
	}
}

// scanOnce walks the directory and uploads every file without a marker.
// Returns the number of failed uploads.
func (u *uploader) scanOnce(ctx context.Context, dir string) (int, error) {
	var candidates []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !eligible(path) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return 0, err
	}

	u.logger.Info("scan", "dir", dir, "new_files", len(candidates))
	failed := 0
	for _, path := range candidates {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if err := u.processFile(ctx, path); err != nil {
			u.logger.Error("upload failed", "path", path, "error", err)
			failed++
		}
	}
	return failed, nil
}

// watchLoop keeps uploading files as they appear, coalescing rapid writes.
func (u *uploader) watchLoop(ctx context.Context, dir string, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()

	// Watch the tree recursively; new subdirectories get added as they appear.
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			return nil
		})
	}
	if err := addDir(dir); err != nil {
		return err
	}

	pending := map[string]*time.Timer{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
					_ = addDir(e.Name)
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !eligible(e.Name) {
				continue
			}
			path := e.Name
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(debounce, func() {
				if err := u.processFile(ctx, path); err != nil {
					u.logger.Error("upload failed", "path", path, "error", err)
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			u.logger.Error("watcher error", "error", err)
		}
	}
}

// eligible filters out markers, hidden files, and already-processed files.
func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, processedMarker) {
		return false
	}
	_, err := os.Stat(path + processedMarker)
	return os.IsNotExist(err)
}

// processFile uploads one file and writes its marker on success.
func (u *uploader) processFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fileName := filepath.Base(path)

	payload := map[string]string{
		"fileName":     fileName,
		"fileContent":  base64.StdEncoding.EncodeToString(content),
		"experimentId": matchOr(experimentIDPattern, fileName, "unknown"),
		"protocolId":   matchOr(protocolIDPattern, fileName, "unknown"),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.serverURL+"/process/raw-data", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token", u.apiToken)

	resp, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var ack struct {
		JobID string `json:"jobId"`
	}
	_ = json.Unmarshal(raw, &ack)
	u.logger.Info("file uploaded", "path", path, "job_id", ack.JobID)

	return os.WriteFile(path+processedMarker, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

func matchOr(re *regexp.Regexp, s, fallback string) string {
	if m := re.FindString(s); m != "" {
		return m
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
