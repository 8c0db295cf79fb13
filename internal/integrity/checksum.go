// Package integrity computes the checksums that make stored records and
// evidence tamper-evident.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/jsonutil"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// RecordChecksum hashes the canonical JSON of rec with the Checksum field
// cleared, so the value can be stored inside the record it covers.
func RecordChecksum(rec *model.InspectionRecord) (model.HashValue, error) {
	body := *rec
	body.Checksum = ""

	data, err := jsonutil.CanonicalMarshal(&body)
	if err != nil {
		return "", fmt.Errorf("canonical marshal record: %w", err)
	}
	sum := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(sum[:])), nil
}

// Seal stores the record's checksum in rec.Checksum.
func Seal(rec *model.InspectionRecord) error {
	sum, err := RecordChecksum(rec)
	if err != nil {
		return err
	}
	rec.Checksum = sum
	return nil
}

// VerifyRecord recomputes the checksum and compares it with the stored one.
func VerifyRecord(rec *model.InspectionRecord) error {
	if rec.Checksum == "" {
		return errclass.ErrRecordCorrupt.WithMessagef("record %s has no checksum", rec.RecordID)
	}
	sum, err := RecordChecksum(rec)
	if err != nil {
		return err
	}
	if sum != rec.Checksum {
		return errclass.ErrRecordCorrupt.WithMessagef("record %s: checksum mismatch (stored %s, computed %s)",
			rec.RecordID, short(rec.Checksum), short(sum))
	}
	return nil
}

// HashReader returns the hex SHA-256 of everything read from r.
func HashReader(r io.Reader) (model.HashValue, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hash content: %w", err)
	}
	return model.HashValue(hex.EncodeToString(h.Sum(nil))), n, nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (model.HashValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	sum, _, err := HashReader(f)
	return sum, err
}

func short(h model.HashValue) string {
	if len(h) > 12 {
		return string(h[:12])
	}
	return string(h)
}
