package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DownloadVoice fetches a Telegram voice attachment into a local temp file.
// The caller removes the file when done.
func (t *Transport) DownloadVoice(ctx context.Context, fileRef string) (string, error) {
	fileURL, err := t.bot.GetFileDirectURL(fileRef)
	if err != nil {
		return "", fmt.Errorf("telegram: get file URL: %w", err)
	}

	data, err := downloadFile(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("telegram: download voice: %w", err)
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("deskbot_voice_%d.ogg", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("telegram: save voice: %w", err)
	}
	return path, nil
}

func downloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
