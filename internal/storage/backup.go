package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skibook/internal/config"
)

const backupPrefix = "backup_"

type BackupService struct {
	db       *DB
	config   config.BackupConfig
	interval time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, interval time.Duration, logger *zerolog.Logger) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{
		db:       db,
		config:   cfg,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs a backup immediately and then on every interval until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	s.logger.Info().Dur("interval", s.interval).Str("path", s.config.Path).Msg("Backup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes a consistent snapshot of the database with VACUUM INTO
// and returns the backup path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.db", backupPrefix, s.now().Format("20060102_150405"))
	backupPath := filepath.Join(s.config.Path, name)

	s.logger.Info().Str("source", s.db.Path()).Str("path", backupPath).Msg("Performing database backup")

	// VACUUM INTO refuses to overwrite an existing file
	if err := os.Remove(backupPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale backup: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, backupPath); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", backupPath, err)
	}

	s.logger.Info().Msg("Backup completed successfully")
	return backupPath, nil
}

// CleanupOldBackups removes backups older than the retention period and returns
// how many were removed.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), backupPrefix) {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.Path, file.Name())); err != nil {
				s.logger.Error().Err(err).Str("file", file.Name()).Msg("Failed to delete backup")
				continue
			}
			removed++
		}
	}
	return removed
}
