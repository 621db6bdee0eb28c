package storage

// SchemaVersion is the version of the newest column in Columns.
const SchemaVersion = "1.7"

// Columns is the on-disk column order. New columns are only ever appended.
var Columns = []string{
	"id", "title", "description", "url", "published_date",
	"fetched_date", "source", "type", "cpe_hours", "domain",
	"notes", "status",
	"presenter", "cpe_summary", "domains",
	"proof_image",
	"subtitle",
	"duration",
	"submitted_date",
	"certifications",
}

const legacySummaryColumn = "isc2_summary"

type columnDefault struct {
	since string
	fill  func(raw map[string]string) string
}

func empty(map[string]string) string { return "" }

// columnDefaults fills columns missing from rows written by older versions.
// Columns not listed here default to the empty string.
var columnDefaults = map[string]columnDefault{
	"status":         {since: "1.0", fill: func(map[string]string) string { return StatusPending }},
	"presenter":      {since: "1.2", fill: empty},
	"cpe_summary":    {since: "1.2", fill: empty},
	"domains":        {since: "1.2", fill: func(raw map[string]string) string { return raw["domain"] }},
	"proof_image":    {since: "1.3", fill: empty},
	"subtitle":       {since: "1.4", fill: empty},
	"duration":       {since: "1.5", fill: empty},
	"submitted_date": {since: "1.6", fill: empty},
	"certifications": {since: "1.7", fill: empty},
}

// migrateRow turns a raw header->value row of any schema version into a
// current Record. Unknown columns are dropped.
func migrateRow(raw map[string]string) Record {
	if legacy, ok := raw[legacySummaryColumn]; ok {
		if _, has := raw["cpe_summary"]; !has {
			raw["cpe_summary"] = legacy
		}
		delete(raw, legacySummaryColumn)
	}

	var rec Record
	for _, col := range Columns {
		value, ok := raw[col]
		if !ok {
			if def, found := columnDefaults[col]; found {
				value = def.fill(raw)
			}
		}
		rec.set(col, value)
	}

	if rec.Status == legacyStatusApproved {
		rec.Status = StatusSubmitted
	}

	return rec
}

func recordValues(rec *Record) []string {
	values := make([]string, len(Columns))
	for i, col := range Columns {
		values[i] = rec.get(col)
	}
	return values
}
