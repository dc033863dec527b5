package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/invoice-batch/internal/logging"
)

// FileEmailSender implements the Sender interface by writing each message to
// its own .eml file in a directory.
type FileEmailSender struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
}

// NewFileEmailSender creates a new FileEmailSender.
// It ensures the outbox directory exists.
func NewFileEmailSender(dir string, logger logging.Logger) (*FileEmailSender, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("email outbox directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create email outbox '%s': %w", dir, err)
	}
	return &FileEmailSender{dir: dir, logger: logging.OrNop(logger), now: time.Now}, nil
}

// Send writes the raw email message to a new file in the outbox.
func (s *FileEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%s.eml", s.now().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, rawMessage, 0644); err != nil {
		return fmt.Errorf("failed to write email to outbox: %w", err)
	}

	s.logger.Info("Email to %v (Subject: %s) written to %s", to, subject, path)
	return nil
}
