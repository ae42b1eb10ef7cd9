package felt

import (
	"fmt"
	"strings"
)

// Delimiter is the single fixed separator used to serialize felt lists
// (entity keys, event keys, event data) into a single SQL column.
const Delimiter = "/"

// JoinList serializes a list of felts with Delimiter, stripping empty
// trailing segments per spec.md §6 ("Felt lists serialized with a single
// fixed delimiter; empty trailing segments are stripped").
func JoinList(fs []Felt) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = trimHexPrefix(f.Hex())
	}
	s := strings.Join(parts, Delimiter)
	return strings.TrimRight(s, Delimiter)
}

// SplitList parses a Delimiter-joined felt list, ignoring empty segments
// produced by a trailing delimiter.
func SplitList(s string) ([]Felt, error) {
	s = strings.TrimRight(s, Delimiter)
	if s == "" {
		return nil, nil
	}
	segs := strings.Split(s, Delimiter)
	out := make([]Felt, 0, len(segs))
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		f, err := FromHex(seg)
		if err != nil {
			return nil, fmt.Errorf("felt: splitting list %q: %w", s, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func trimHexPrefix(s string) string {
	return strings.TrimPrefix(s, "0x")
}

// EventID formats the canonical, lexicographically block-sortable event
// identifier described in spec.md §3/§6:
// "{block:064x}:{tx_hash:x}:{event_idx:04x}".
func EventID(blockNumber uint64, txHash Felt, eventIdx int) string {
	return fmt.Sprintf("%064x:%s:%04x", blockNumber, strings.TrimPrefix(txHash.Hex(), "0x"), eventIdx)
}

// TransactionHashFromEventID recovers the transaction-hash segment of an
// event_id produced by EventID. Carried over from the original
// implementation's get_transaction_hash_from_event_id helper (see
// SPEC_FULL.md §12). No processor calls it; processors receive the
// transaction hash directly in processor.Event.
func TransactionHashFromEventID(eventID string) (string, error) {
	parts := strings.Split(eventID, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("felt: malformed event id %q", eventID)
	}
	return parts[1], nil
}
