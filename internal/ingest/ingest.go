// Package ingest normalizes and registers paper records with the store.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trihuynhnhut0107/SciFind/internal/models"
	"github.com/trihuynhnhut0107/SciFind/internal/store"
)

// Ingestor validates, normalizes, and persists papers.
type Ingestor struct {
	store  *store.PaperStore
	logger *zap.Logger
}

// NewIngestor creates an ingestor writing to ps.
func NewIngestor(ps *store.PaperStore, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: ps, logger: logger}
}

// IngestPaper normalizes the record and writes it to the store. Papers
// without an id are assigned a generated one; a title is required. The
// normalized id is returned.
func (in *Ingestor) IngestPaper(ctx context.Context, p *models.Paper) (string, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return "", &models.ValidationError{Msg: "title is required"}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.UpdateDate != "" {
		if _, err := models.ParseDate(p.UpdateDate); err != nil {
			return "", &models.ValidationError{Msg: fmt.Sprintf("invalid update_date %q", p.UpdateDate)}
		}
	}

	if err := in.store.SavePaper(ctx, p); err != nil {
		return "", err
	}
	in.logger.Debug("paper ingested", zap.String("id", p.ID), zap.String("title", p.Title))
	return p.ID, nil
}

// IngestFile reads newline-delimited JSON paper records from path and ingests
// each. Returns the number ingested; a malformed or invalid record aborts
// with the line number attached.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open papers file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	count := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var p models.Paper
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return count, fmt.Errorf("line %d: failed to parse paper: %w", line, err)
		}
		if _, err := in.IngestPaper(ctx, &p); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read papers file: %w", err)
	}
	return count, nil
}
