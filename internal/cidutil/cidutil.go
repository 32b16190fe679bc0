// Package cidutil derives content identifiers for comparison reports.
package cidutil

import (
	"encoding/binary"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	c, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only fails for unknown codes or bad lengths.
		return ""
	}
	return c.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ReportCID identifies a comparison by its two emitted records. Each record
// is length-prefixed so moving bytes between them changes the identifier.
func ReportCID(commonObjects, typeGraph []byte) string {
	return CIDv1RawSHA256(reportBytes(commonObjects, typeGraph))
}

// VerifyReport reports whether id is the ReportCID of the two records.
func VerifyReport(id string, commonObjects, typeGraph []byte) (bool, error) {
	want, err := cid.Decode(id)
	if err != nil {
		return false, fmt.Errorf("decode report cid %q: %w", id, err)
	}
	got, err := CIDv1RawSHA256CID(reportBytes(commonObjects, typeGraph))
	if err != nil {
		return false, err
	}
	return want.Equals(got), nil
}

func reportBytes(commonObjects, typeGraph []byte) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(commonObjects)+len(typeGraph))
	buf = binary.AppendUvarint(buf, uint64(len(commonObjects)))
	buf = append(buf, commonObjects...)
	buf = binary.AppendUvarint(buf, uint64(len(typeGraph)))
	buf = append(buf, typeGraph...)
	return buf
}
