package storage

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justanote/pkg/crypto"
	"justanote/pkg/models"
)

func TestFileStoreWritesOneFilePerNote(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	note, err := s.CreateNote(context.Background(), adminRecord("Jane"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, note.ID+".json"))
	require.NoError(t, err)
	var onDisk models.PersistedNote
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, note.ID, onDisk.ID)
	assert.Equal(t, "Jane", onDisk.RecipientName)
	assert.Equal(t, models.StatusPending, onDisk.Status)
}

func TestFileStoreReloadsExistingNotes(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	note, err := s.CreateNote(context.Background(), adminRecord("Jane"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetNote(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.RecipientName)
}

func TestFileStoreMovesCorruptedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABCDEFGH.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	notes, err := s.ListNotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.FileExists(t, filepath.Join(dir, "corrupted", "ABCDEFGH.json"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestFileStoreFollowsExternalChanges(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	note, err := s.CreateNote(ctx, adminRecord("Jane"))
	require.NoError(t, err)

	edited := note.Clone()
	edited.RecipientName = "Janet"
	data, err := json.Marshal(edited)
	require.NoError(t, err)
	// make sure the mtime moves past our own write
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, note.ID+".json"), data, 0644))

	assert.Eventually(t, func() bool {
		got, err := s.GetNote(ctx, note.ID)
		return err == nil && got.RecipientName == "Janet"
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, note.ID+".json")))
	assert.Eventually(t, func() bool {
		_, err := s.GetNote(ctx, note.ID)
		return err == ErrNotFound
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSealedStoreEncryptsContactsAtRest(t *testing.T) {
	dir := t.TempDir()
	inner, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	sealer, err := crypto.NewSealer("test-passphrase", []byte("salt"))
	require.NoError(t, err)
	s := NewSealedStore(inner, sealer)
	defer s.Close()

	note, err := s.CreateNote(context.Background(), adminRecord("Jane"))
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", note.SenderEmail)

	data, err := os.ReadFile(filepath.Join(dir, note.ID+".json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sender@example.com")
	assert.NotContains(t, string(data), "jane_doe")
	assert.Contains(t, string(data), "Jane", "non-contact fields stay readable")
}

func TestBackupArchivesEveryNote(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	a, err := s.CreateNote(ctx, adminRecord("A"))
	require.NoError(t, err)
	b, err := s.CreateNote(ctx, selfRecord("B"))
	require.NoError(t, err)

	backupDir := t.TempDir()
	path, err := Backup(ctx, s, backupDir)
	require.NoError(t, err)
	assert.Equal(t, backupDir, filepath.Dir(path))

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	want := []string{"notes/" + a.ID + ".json", "notes/" + b.ID + ".json"}
	sort.Strings(want)
	assert.Equal(t, want, names)

	leftovers, err := filepath.Glob(filepath.Join(backupDir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
