package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestFindCSVFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{"only csv", []string{"a.csv", "b.CSV"}, []string{"a.csv", "b.CSV"}},
		{"mixed types", []string{"a.csv", "b.xlsx", "c.txt"}, []string{"a.csv"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			now := time.Now()
			for _, f := range tt.files {
				touch(t, dir, f, now)
			}

			got, err := NewDiscovery(dir).FindCSVFiles(".")
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names(got))
		})
	}
}

func TestFindFilesSortsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	touch(t, dir, "old.csv", base)
	touch(t, dir, "new.csv", base.Add(30*time.Minute))
	touch(t, dir, "mid.csv", base.Add(10*time.Minute))

	got, err := NewDiscovery("").FindCSVFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.csv", "mid.csv", "old.csv"}, names(got))
}

func TestFindSourceCandidates(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, dir, "Zomato_Bangalore.csv", now)
	touch(t, dir, "zomato.xlsx", now.Add(-time.Minute))
	touch(t, dir, "other.csv", now)
	touch(t, dir, "zomato-notes.txt", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zomato_dir.csv"), 0755))

	got, err := NewDiscovery(dir).FindSourceCandidates(".", "zomato")
	require.NoError(t, err)
	assert.Equal(t, []string{"Zomato_Bangalore.csv", "zomato.xlsx"}, names(got))
}

func TestFindSourceCandidatesMissingDirectory(t *testing.T) {
	got, err := NewDiscovery(t.TempDir()).FindSourceCandidates("does-not-exist", "zomato")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindFilesByPattern(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, dir, "zomato_cleaned_20250101_000000.csv", now)
	touch(t, dir, "quality_report_20250101_000000.json", now)

	got, err := NewDiscovery(dir).FindFilesByPattern(".", "zomato_cleaned_*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"zomato_cleaned_20250101_000000.csv"}, names(got))

	_, err = NewDiscovery(dir).FindFilesByPattern(".", "[")
	assert.Error(t, err)
}

func TestGetLatestFile(t *testing.T) {
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	now := time.Now()
	latest, ok := GetLatestFile([]FileInfo{
		{Name: "a", ModTime: now.Add(-time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Minute)},
	})
	require.True(t, ok)
	assert.Equal(t, "b", latest.Name)
}
