package storage

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backup writes every note of store into a zip archive in dir, one
// notes/<id>.json entry per note, and returns the archive path
func Backup(ctx context.Context, store Store, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	notes, err := store.ListNotes(ctx)
	if err != nil {
		return "", fmt.Errorf("list notes: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	zipPath := filepath.Join(dir, "backup-"+timestamp+".zip")
	tmpPath := zipPath + ".tmp"

	zipFile, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}
	zipWriter := zip.NewWriter(zipFile)

	fail := func(err error) (string, error) {
		zipWriter.Close()
		zipFile.Close()
		os.Remove(tmpPath)
		return "", err
	}

	for _, note := range notes {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		data, err := json.MarshalIndent(note, "", "  ")
		if err != nil {
			return fail(fmt.Errorf("encode note %s: %w", note.ID, err))
		}
		w, err := zipWriter.Create("notes/" + note.ID + ".json")
		if err != nil {
			return fail(err)
		}
		if _, err := w.Write(data); err != nil {
			return fail(err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		zipFile.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := zipFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, zipPath); err != nil {
		return "", err
	}
	return zipPath, nil
}
