package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// updatableColumns lists the columns Update may change. id, url, source,
// type and the dates set at insertion are read-only.
var updatableColumns = map[string]bool{
	"cpe_hours":      true,
	"domain":         true,
	"domains":        true,
	"notes":          true,
	"status":         true,
	"title":          true,
	"description":    true,
	"presenter":      true,
	"cpe_summary":    true,
	"proof_image":    true,
	"subtitle":       true,
	"duration":       true,
	"submitted_date": true,
	"certifications": true,
}

// RecordStore persists records in a single CSV file. Every public method
// holds mu for its whole read-modify-write cycle; load and save expect the
// caller to hold it already.
type RecordStore struct {
	path string
	mu   sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewRecordStore(path string) *RecordStore {
	return &RecordStore{
		path:  path,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *RecordStore) ReadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Get returns nil when no record has the given id.
func (s *RecordStore) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if rows[i].ID == id {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// Add appends a record without checking its url against existing rows.
func (s *RecordStore) Add(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return Record{}, err
	}

	s.prepare(&rec)
	if err := s.save(append(rows, rec)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Create is Add for manually entered records: a non-empty url that is
// already stored (in any status) fails with ErrDuplicateURL.
func (s *RecordStore) Create(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return Record{}, err
	}

	if rec.URL != "" {
		for _, row := range rows {
			if row.URL == rec.URL {
				return Record{}, ErrDuplicateURL
			}
		}
	}

	s.prepare(&rec)
	if err := s.save(append(rows, rec)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// AddMany inserts every record whose url is not yet stored, soft-deleted
// rows included, and returns the inserted subset. The file is written at
// most once.
func (s *RecordStore) AddMany(recs []Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows)+len(recs))
	for _, row := range rows {
		if row.URL != "" {
			seen[row.URL] = struct{}{}
		}
	}

	var added []Record
	for _, rec := range recs {
		if _, dup := seen[rec.URL]; dup {
			continue
		}
		s.prepare(&rec)
		rows = append(rows, rec)
		added = append(added, rec)
		seen[rec.URL] = struct{}{}
	}

	if len(added) == 0 {
		return nil, nil
	}

	if err := s.save(rows); err != nil {
		return nil, err
	}
	return added, nil
}

// Update applies a partial update and returns the new record, or nil when
// the id is unknown. Keys outside updatableColumns are ignored.
func (s *RecordStore) Update(id string, fields map[string]string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		s.apply(&rows[i], fields)
		if err := s.save(rows); err != nil {
			return nil, err
		}
		updated := rows[i]
		return &updated, nil
	}
	return nil, nil
}

// UpdateMany applies several partial updates, keyed by record id, in one
// write. It returns the number of records found.
func (s *RecordStore) UpdateMany(patches map[string]map[string]string) (int, error) {
	if len(patches) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range rows {
		fields, ok := patches[rows[i].ID]
		if !ok {
			continue
		}
		s.apply(&rows[i], fields)
		count++
	}

	if count == 0 {
		return 0, nil
	}
	if err := s.save(rows); err != nil {
		return 0, err
	}
	return count, nil
}

// SoftDelete marks a record deleted. The row stays so its url keeps
// blocking re-ingestion.
func (s *RecordStore) SoftDelete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return false, err
	}

	for i := range rows {
		if rows[i].ID == id {
			rows[i].Status = StatusDeleted
			return true, s.save(rows)
		}
	}
	return false, nil
}

// Purge removes a record and its proof image for good.
func (s *RecordStore) Purge(id string) (bool, error) {
	removed, err := s.purgeWhere(func(r Record) bool { return r.ID == id })
	return removed > 0, err
}

// PurgeBySource removes every record ingested from the named source.
func (s *RecordStore) PurgeBySource(source string) (int, error) {
	return s.purgeWhere(func(r Record) bool { return r.Source == source })
}

func (s *RecordStore) purgeWhere(match func(Record) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return 0, err
	}

	keep := make([]Record, 0, len(rows))
	var removed []Record
	for _, row := range rows {
		if match(row) {
			removed = append(removed, row)
		} else {
			keep = append(keep, row)
		}
	}

	if len(removed) == 0 {
		return 0, nil
	}

	for _, row := range removed {
		if row.ProofImage != "" {
			s.removeAttachment(row.ProofImage)
		}
	}

	if err := s.save(keep); err != nil {
		return 0, err
	}
	return len(removed), nil
}

// Path returns the CSV location, creating the file when needed.
func (s *RecordStore) Path() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return "", err
	}
	return s.path, nil
}

// AttachmentsDir returns the proof image directory next to the CSV file.
func (s *RecordStore) AttachmentsDir() (string, error) {
	dir := filepath.Join(filepath.Dir(s.path), "attachments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachments directory: %w", err)
	}
	return dir, nil
}

// AttachmentPath resolves a stored proof image name inside AttachmentsDir.
func (s *RecordStore) AttachmentPath(name string) (string, error) {
	dir, err := s.AttachmentsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(name)), nil
}

// SetProof stores r as the proof image "<id>.<ext>" and points the record
// at it, replacing any previous image. The image is staged in a temp file
// and renamed into place. nil is returned for an unknown id, in which case
// nothing is written.
func (s *RecordStore) SetProof(id, ext string, r io.Reader) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(rows, func(row Record) bool { return row.ID == id })
	if idx < 0 {
		return nil, nil
	}

	name := filepath.Base(id + "." + ext)
	dest, err := s.AttachmentPath(name)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(dest, r); err != nil {
		return nil, err
	}

	previous := rows[idx].ProofImage
	rows[idx].ProofImage = name
	if err := s.save(rows); err != nil {
		if previous != name {
			s.removeAttachment(name)
		}
		return nil, err
	}

	if previous != "" && previous != name {
		s.removeAttachment(previous)
	}

	updated := rows[idx]
	return &updated, nil
}

// ClearProof removes the proof image of a record and clears the column.
// It reports false for an unknown id.
func (s *RecordStore) ClearProof(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return false, err
	}

	idx := slices.IndexFunc(rows, func(row Record) bool { return row.ID == id })
	if idx < 0 {
		return false, nil
	}
	if rows[idx].ProofImage == "" {
		return true, nil
	}

	name := rows[idx].ProofImage
	rows[idx].ProofImage = ""
	if err := s.save(rows); err != nil {
		return false, err
	}
	s.removeAttachment(name)
	return true, nil
}

func writeFileAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp attachment: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close attachment: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	return nil
}

func (s *RecordStore) removeAttachment(name string) {
	path, err := s.AttachmentPath(name)
	if err != nil {
		slog.Warn("Failed to resolve attachment", "file", name, "error", err)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to remove attachment", "file", path, "error", err)
	}
}

func (s *RecordStore) prepare(rec *Record) {
	rec.ID = s.newID()
	if rec.FetchedDate == "" {
		rec.FetchedDate = s.now().Format(time.RFC3339)
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.Domains == "" {
		rec.Domains = rec.Domain
	}
}

func (s *RecordStore) apply(rec *Record, fields map[string]string) {
	for key, value := range fields {
		if updatableColumns[key] {
			rec.set(key, value)
		}
	}

	if domains, ok := fields["domains"]; ok {
		if _, explicit := fields["domain"]; !explicit {
			first := strings.TrimSpace(strings.Split(domains, ListSeparator)[0])
			if first != "" {
				rec.Domain = first
			}
		}
	}

	if fields["status"] == StatusSubmitted && fields["submitted_date"] == "" && rec.SubmittedDate == "" {
		rec.SubmittedDate = s.now().Format(time.RFC3339)
	}
}

func (s *RecordStore) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return s.save(nil)
}

func (s *RecordStore) load() ([]Record, error) {
	if err := s.ensureFile(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows []Record
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		raw := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(values) {
				raw[col] = values[i]
			}
		}
		rows = append(rows, migrateRow(raw))
	}

	return rows, nil
}

func (s *RecordStore) save(rows []Record) error {
	tmpPath := s.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(Columns); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range rows {
		if err := writer.Write(recordValues(&rows[i])); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
