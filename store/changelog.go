package store

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/learn-decentralized-systems/toytlv"
	"github.com/pkg/errors"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

// A change record frames the document id and its serialized body:
// 'O' carries the id, 'D' the JSON document.
func changeRecord(id string, data []byte) []byte {
	return toytlv.Concat(
		toytlv.Record('O', []byte(id)),
		toytlv.Record('D', data),
	)
}

// ParseChangeRecord splits a changelog/broadcast record back into the
// document id and its JSON body.
func ParseChangeRecord(rec []byte) (id string, data []byte, err error) {
	idb, rest := toytlv.Take('O', rec)
	if idb == nil {
		return "", nil, classmodel_errors.ErrBadLogRecord
	}
	data, _ = toytlv.Take('D', rest)
	if data == nil {
		return "", nil, classmodel_errors.ErrBadLogRecord
	}
	return string(idb), data, nil
}

// LogEntry is one persisted changelog record.
type LogEntry struct {
	Seq  uint64
	ID   string
	Data []byte
}

// Changelog returns every record with a sequence number above since,
// oldest first.
func (s *Store) Changelog(since uint64) (entries []LogEntry, err error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: logKey(since + 1),
		UpperBound: []byte{logKeyPrefix + 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "store: iterator")
	}
	for it.First(); it.Valid(); it.Next() {
		if len(it.Key()) != 9 {
			continue
		}
		id, data, perr := ParseChangeRecord(it.Value())
		if perr != nil {
			_ = it.Close()
			return nil, perr
		}
		body := make([]byte, len(data))
		copy(body, data)
		entries = append(entries, LogEntry{
			Seq:  binary.BigEndian.Uint64(it.Key()[1:]),
			ID:   id,
			Data: body,
		})
	}
	return entries, it.Close()
}
