// Package track is the job-tracking core: submission, bounded polling and
// history reconciliation against the evaluation service.
package track

import (
	"bytes"
	"encoding/json"

	"github.com/Thekirgo/calcwatch/internal/domain"
	apperrors "github.com/Thekirgo/calcwatch/internal/errors"
)

// The server does not guarantee a single history payload shape. Observed
// variants: a bare array, {expressions: [...]}, {expressions: {items: [...]}},
// {expressions: {expressions: [...]}} and {expressions: {key: record, ...}}.
// Normalization runs an ordered list of shape extractors; the first match
// wins. Nothing matching is a malformed response.
type extractor func(payload []byte) ([]json.RawMessage, bool)

var extractors = []extractor{
	fromBareArray,
	fromExpressionsArray,
	fromExpressionsObject,
}

// Normalize converts a raw history payload into the canonical record list:
// repaired, filtered and ordered newest-first.
func Normalize(payload []byte) ([]domain.JobRecord, error) {
	var raws []json.RawMessage
	matched := false
	for _, extract := range extractors {
		if recs, ok := extract(payload); ok {
			raws = recs
			matched = true
			break
		}
	}
	if !matched {
		return nil, apperrors.New(apperrors.KindMalformedResponse, "history payload has no recognizable shape")
	}

	records := make([]domain.JobRecord, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := decodeRecord(raw); ok {
			records = append(records, rec)
		}
	}

	// The server returns oldest-first; presentation wants newest-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Partition splits normalized records into in-flight and settled lists.
// Settled covers everything that is not actively processing, including
// PENDING, COMPLETED and ERROR.
func Partition(records []domain.JobRecord) domain.HistorySnapshot {
	snapshot := domain.HistorySnapshot{
		Processing: make([]domain.JobRecord, 0, len(records)),
		Settled:    make([]domain.JobRecord, 0, len(records)),
	}
	for _, rec := range records {
		if rec.Status == domain.StatusProcessing {
			snapshot.Processing = append(snapshot.Processing, rec)
		} else {
			snapshot.Settled = append(snapshot.Settled, rec)
		}
	}
	return snapshot
}

func fromBareArray(payload []byte) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, false
	}
	return raws, true
}

func expressionsField(payload []byte) (json.RawMessage, bool) {
	var envelope struct {
		Expressions json.RawMessage `json:"expressions"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, false
	}
	if len(envelope.Expressions) == 0 {
		return nil, false
	}
	return envelope.Expressions, true
}

func fromExpressionsArray(payload []byte) ([]json.RawMessage, bool) {
	field, ok := expressionsField(payload)
	if !ok {
		return nil, false
	}
	if string(field) == "null" {
		// an explicit null expression list reads as empty history
		return []json.RawMessage{}, true
	}
	return fromBareArray(field)
}

func fromExpressionsObject(payload []byte) ([]json.RawMessage, bool) {
	field, ok := expressionsField(payload)
	if !ok {
		return nil, false
	}

	var nested struct {
		Items       json.RawMessage `json:"items"`
		Expressions json.RawMessage `json:"expressions"`
	}
	if err := json.Unmarshal(field, &nested); err != nil {
		return nil, false
	}

	if raws, ok := fromBareArray(nested.Items); ok {
		return raws, true
	}
	if raws, ok := fromBareArray(nested.Expressions); ok {
		return raws, true
	}
	return objectValues(field)
}

// objectValues treats the object's own values, in document order, as the
// record list. A json.Decoder walk keeps the order the server sent, which a
// map round-trip would destroy.
func objectValues(obj []byte) ([]json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}

	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		values = append(values, value)
	}
	return values, true
}

// decodeRecord turns one raw record into a JobRecord. A record without a
// usable text (after falling back to the legacy "expression" field) is
// malformed and dropped, as is anything that is not an object.
func decodeRecord(raw json.RawMessage) (domain.JobRecord, bool) {
	var r struct {
		ID         string          `json:"id"`
		Text       string          `json:"text"`
		Expression string          `json:"expression"`
		Status     string          `json:"status"`
		Result     json.RawMessage `json:"result"`
		CreatedAt  string          `json:"created_at"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.JobRecord{}, false
	}

	text := r.Text
	if text == "" {
		text = r.Expression
	}
	if text == "" {
		return domain.JobRecord{}, false
	}

	rec := domain.JobRecord{
		ID:        r.ID,
		Text:      text,
		Status:    domain.CanonicalStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if len(r.Result) > 0 && string(r.Result) != "null" {
		var result any
		if err := json.Unmarshal(r.Result, &result); err == nil {
			rec.Result = result
		}
	}
	return rec, true
}
