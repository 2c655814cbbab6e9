// Copyright 2026 The txindexer Authors
// This file is part of the txindexer library.
//
// The txindexer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The txindexer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the txindexer library. If not, see <http://www.gnu.org/licenses/>.

// Package backup is the periodic snapshot exporter (SPEC_FULL §6.N):
// best-effort operational tooling, not part of recovery correctness
// (spec §7 already places durability on the chain source's ability to
// replay). It calls Store.Checkpoint for a consistent point-in-time
// copy and ships the result to S3-compatible object storage.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cespare/cp"

	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/storage"
)

var logger = log.NewModuleLogger("backup")

// Config names where checkpoints are staged locally and where they are
// shipped.
type Config struct {
	StageDir string
	Bucket   string
	Prefix   string
	Region   string
	Interval time.Duration
}

// Exporter periodically checkpoints a Store and uploads the result.
type Exporter struct {
	store    storage.Store
	cfg      Config
	uploader *s3manager.Uploader
	stop     chan struct{}
}

func New(store storage.Store, cfg Config) (*Exporter, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, err
	}
	return &Exporter{
		store:    store,
		cfg:      cfg,
		uploader: s3manager.NewUploader(sess),
		stop:     make(chan struct{}),
	}, nil
}

// Run blocks, exporting one checkpoint every Config.Interval, until
// Stop is called. Intended to be launched on its own goroutine.
func (e *Exporter) Run() {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := e.ExportOnce(); err != nil {
				logger.Error("checkpoint export failed", "err", err)
			}
		case <-e.stop:
			return
		}
	}
}

func (e *Exporter) Stop() {
	close(e.stop)
}

// ExportOnce checkpoints the store to a staged local file (via
// Store.Checkpoint), then uploads it to S3. The local checkpoint file
// is removed once the upload succeeds.
func (e *Exporter) ExportOnce() error {
	if err := os.MkdirAll(e.cfg.StageDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("checkpoint-%d.db", time.Now().UTC().Unix())
	stagePath := filepath.Join(e.cfg.StageDir, name)

	if err := e.store.Checkpoint(stagePath); err != nil {
		return err
	}

	f, err := os.Open(stagePath)
	if err != nil {
		return err
	}

	key := e.cfg.Prefix + name
	_, err = e.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(e.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	f.Close()
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchBucket {
			return fmt.Errorf("backup: bucket %q does not exist, checkpoint left at %s: %w", e.cfg.Bucket, stagePath, err)
		}
		return fmt.Errorf("backup: uploading %s to s3://%s/%s: %w", stagePath, e.cfg.Bucket, key, err)
	}
	os.Remove(stagePath)
	logger.Info("exported checkpoint", "key", key)
	return nil
}

// CopyLocal is the cespare/cp-based local fallback for operators who
// haven't configured S3: the checkpoint is staged in Config.StageDir and
// then copied into destDir, and both files are kept (not deleted) for
// manual archival.
func (e *Exporter) CopyLocal(destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("checkpoint-%d.db", time.Now().UTC().Unix())
	stagePath := filepath.Join(e.cfg.StageDir, name)
	if err := e.store.Checkpoint(stagePath); err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, name)
	if err := cp.CopyFile(destPath, stagePath); err != nil {
		return "", err
	}
	return destPath, nil
}
