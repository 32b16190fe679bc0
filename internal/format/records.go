// Package format renders comparison results as the two emitted JSON
// records: common objects and the merged type graph.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/dbsmedya/layoutdiff/internal/compare"
	"github.com/dbsmedya/layoutdiff/internal/types"
)

// CommonObjectRecord is one entry of the common-objects record.
type CommonObjectRecord struct {
	Label     string `json:"label"`
	Type      string `json:"type"`
	OldSlot   string `json:"oldSlot"`
	NewSlot   string `json:"newSlot"`
	OldOffset uint64 `json:"oldOffset"`
	NewOffset uint64 `json:"newOffset"`
}

// MemberRecord is an emitted struct member. The compiler AST id, declaring
// contract, label and raw slot are not part of it.
type MemberRecord struct {
	Type      string `json:"type"`
	Offset    uint64 `json:"offset"`
	OldSlot   string `json:"oldSlot"`
	NewSlot   string `json:"newSlot"`
	OldOffset uint64 `json:"oldOffset"`
	NewOffset uint64 `json:"newOffset"`
}

// TypeRecord is one entry of the type-graph record. Base and Members are
// emitted as null when absent. Byte sizes are JSON integers of up to 256 bits.
type TypeRecord struct {
	Type             string         `json:"type"`
	Label            string         `json:"label"`
	Encoding         string         `json:"encoding"`
	NumberOfBytes    string         `json:"numberOfBytes"`
	Key              string         `json:"key,omitempty"`
	Value            string         `json:"value,omitempty"`
	Base             *string        `json:"base"`
	OldNumberOfBytes json.Number    `json:"oldNumberOfBytes"`
	NewNumberOfBytes json.Number    `json:"newNumberOfBytes"`
	Members          []MemberRecord `json:"members"`
}

func byteSize(v *uint256.Int) json.Number {
	if v == nil {
		return "0"
	}
	return json.Number(v.Dec())
}

// CommonObjects converts matched storage entries to records.
func CommonObjects(objects []compare.CommonObject) []CommonObjectRecord {
	records := make([]CommonObjectRecord, 0, len(objects))
	for _, o := range objects {
		records = append(records, CommonObjectRecord{
			Label:     o.Label,
			Type:      o.Type,
			OldSlot:   o.OldSlot,
			NewSlot:   o.NewSlot,
			OldOffset: o.OldOffset,
			NewOffset: o.NewOffset,
		})
	}
	return records
}

// Types converts merged types to records, rendering member slots as 64-digit
// hex. A slot above 256 bits fails the whole conversion.
func Types(merged []compare.MergedType) ([]TypeRecord, error) {
	records := make([]TypeRecord, 0, len(merged))
	for _, m := range merged {
		rec := TypeRecord{
			Type:             m.ID,
			Label:            m.Descriptor.Label,
			Encoding:         m.Descriptor.Encoding,
			NumberOfBytes:    m.Descriptor.NumberOfBytes,
			Key:              m.Descriptor.Key,
			Value:            m.Descriptor.Value,
			OldNumberOfBytes: byteSize(m.OldNumberOfBytes),
			NewNumberOfBytes: byteSize(m.NewNumberOfBytes),
		}
		if m.HasBase() {
			base := m.Base
			rec.Base = &base
		}

		if m.Members != nil {
			rec.Members = make([]MemberRecord, 0, len(m.Members))
			for _, member := range m.Members {
				mr, err := memberRecord(member)
				if err != nil {
					return nil, fmt.Errorf("type %s member %q: %w", m.ID, member.Label, err)
				}
				rec.Members = append(rec.Members, mr)
			}
		}

		records = append(records, rec)
	}
	return records, nil
}

func memberRecord(m compare.MergedMember) (MemberRecord, error) {
	oldSlot, err := types.FormatSlot(m.OldSlot)
	if err != nil {
		return MemberRecord{}, err
	}
	newSlot, err := types.FormatSlot(m.NewSlot)
	if err != nil {
		return MemberRecord{}, err
	}
	return MemberRecord{
		Type:      m.Type,
		Offset:    m.Offset,
		OldSlot:   oldSlot,
		NewSlot:   newSlot,
		OldOffset: m.OldOffset,
		NewOffset: m.NewOffset,
	}, nil
}

// Marshal encodes v as JSON indented by indent spaces (compact when indent
// is 0), without HTML escaping and with a trailing newline.
func Marshal(v interface{}, indent int) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
