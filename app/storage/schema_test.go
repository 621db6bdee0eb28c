package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnDefaults_CoverEveryColumnAfterV1(t *testing.T) {
	v1 := map[string]bool{
		"id": true, "title": true, "description": true, "url": true,
		"published_date": true, "fetched_date": true, "source": true, "type": true,
		"cpe_hours": true, "domain": true, "notes": true, "status": true,
	}

	for _, col := range Columns {
		if v1[col] {
			continue
		}
		def, ok := columnDefaults[col]
		require.True(t, ok, "column %s has no default", col)
		assert.NotEqual(t, "1.0", def.since, "column %s", col)
	}
	assert.Equal(t, "certifications", Columns[len(Columns)-1])
}

func TestMigrateRow_V1Row(t *testing.T) {
	rec := migrateRow(map[string]string{
		"id":     "abc",
		"title":  "Old",
		"url":    "https://example.com/old",
		"domain": "Asset Security",
		"status": "approved",
	})

	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, "Asset Security", rec.Domains)
	assert.Equal(t, StatusSubmitted, rec.Status)
	assert.Empty(t, rec.Presenter)
	assert.Empty(t, rec.Certifications)
}

func TestMigrateRow_LegacySummaryColumn(t *testing.T) {
	rec := migrateRow(map[string]string{"id": "a", "isc2_summary": "legacy text"})
	assert.Equal(t, "legacy text", rec.Summary)

	rec = migrateRow(map[string]string{"id": "b", "isc2_summary": "legacy", "cpe_summary": "current"})
	assert.Equal(t, "current", rec.Summary)
}

func TestMigrateRow_KeepsExplicitEmptyDomains(t *testing.T) {
	rec := migrateRow(map[string]string{"id": "a", "domain": "Asset Security", "domains": ""})
	assert.Empty(t, rec.Domains)
}

func TestRecordStore_ReadsLegacyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpes.csv")
	legacy := "id,title,description,url,published_date,fetched_date,source,type,cpe_hours,domain,notes,status,isc2_summary,extra\n" +
		"1,Episode,desc,https://example.com/1,2024-01-01T00:00:00Z,2024-01-02T00:00:00Z,Manual,podcast,1.5,Asset Security,,approved,my summary,junk\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	store := NewRecordStore(path)
	rows, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rec := rows[0]
	assert.Equal(t, StatusSubmitted, rec.Status)
	assert.Equal(t, "my summary", rec.Summary)
	assert.Equal(t, "Asset Security", rec.Domains)
	assert.InDelta(t, 1.5, rec.Hours(), 0.0001)

	// The legacy file is rewritten in the current layout on the next write.
	_, err = store.Update("1", map[string]string{"notes": "migrated"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "isc2_summary")
	assert.NotContains(t, string(data), "junk")
	assert.Contains(t, string(data), "cpe_summary")
}
