package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DirGateway writes every message as a JSON file into a directory instead
// of sending it anywhere. Meant for local development.
type DirGateway struct {
	dir string
	now func() time.Time
}

// NewDirGateway creates a gateway writing into dir, created on first send.
func NewDirGateway(dir string) *DirGateway {
	return &DirGateway{dir: dir, now: time.Now}
}

func (d *DirGateway) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Join(ErrSendFailed, fmt.Errorf("create directory: %w", err))
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return errors.Join(ErrSendFailed, fmt.Errorf("marshal message: %w", err))
	}

	name := fmt.Sprintf("%s_%s.json", d.now().Format("2006_01_02_150405"), sanitizeFilename(msg.NotificationID))
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return errors.Join(ErrSendFailed, fmt.Errorf("write file: %w", err))
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
