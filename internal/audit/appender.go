// Package audit keeps a hash-chained JSONL log of inspection events.
//
// Every record carries the hash of its predecessor, so deleting or editing
// a line breaks the chain and is caught by VerifyChain.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppecheck/ppecheck/pkg/errclass"
	"github.com/ppecheck/ppecheck/pkg/jsonutil"
	"github.com/ppecheck/ppecheck/pkg/model"
)

// FileAppender appends audit records to a JSONL file with hash chain.
type FileAppender struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path, now: time.Now}
}

// Path returns the log location.
func (a *FileAppender) Path() string { return a.path }

// Append adds a new audit record to the log.
func (a *FileAppender) Append(eventType model.AuditEventType, sessionID model.SessionID, recordID model.RecordID, details map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("flock audit log: %w", err)
	}
	defer unlockFile(file)

	prevHash, err := lastRecordHash(file)
	if err != nil {
		return fmt.Errorf("get last record hash: %w", err)
	}

	record := &model.AuditRecord{
		Timestamp: a.now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		RecordID:  recordID,
		Details:   details,
		PrevHash:  prevHash,
	}
	record.RecordHash, err = computeRecordHash(record)
	if err != nil {
		return fmt.Errorf("compute record hash: %w", err)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// Records returns every well-formed record in file order. A missing log
// yields no records.
func (a *FileAppender) Records() ([]model.AuditRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var out []model.AuditRecord
	err = scan(file, func(_ int, rec model.AuditRecord, perr error) error {
		if perr == nil {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// VerifyChain walks the log and checks every record hash and back link.
// It returns the number of records checked.
func (a *FileAppender) VerifyChain() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var prev model.HashValue
	count := 0
	err = scan(file, func(lineNo int, rec model.AuditRecord, perr error) error {
		if perr != nil {
			return errclass.ErrAuditChainBroken.WithMessagef("line %d: %v", lineNo, perr)
		}
		if rec.PrevHash != prev {
			return errclass.ErrAuditChainBroken.WithMessagef("line %d: prev_hash does not match preceding record", lineNo)
		}
		want, err := computeRecordHash(&rec)
		if err != nil {
			return err
		}
		if want != rec.RecordHash {
			return errclass.ErrAuditChainBroken.WithMessagef("line %d: record_hash mismatch", lineNo)
		}
		prev = rec.RecordHash
		count++
		return nil
	})
	return count, err
}

func scan(r io.Reader, fn func(lineNo int, rec model.AuditRecord, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec model.AuditRecord
		err := json.Unmarshal(scanner.Bytes(), &rec)
		if err := fn(lineNo, rec, err); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan audit log: %w", err)
	}
	return nil
}

// lastRecordHash skips malformed lines so a torn final write does not
// block further appends; VerifyChain reports them.
func lastRecordHash(file *os.File) (model.HashValue, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek to start: %w", err)
	}
	var last model.HashValue
	err := scan(file, func(_ int, rec model.AuditRecord, perr error) error {
		if perr == nil {
			last = rec.RecordHash
		}
		return nil
	})
	return last, err
}

func computeRecordHash(record *model.AuditRecord) (model.HashValue, error) {
	body := *record
	body.RecordHash = ""

	data, err := jsonutil.CanonicalMarshal(&body)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}
	hash := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(hash[:])), nil
}
