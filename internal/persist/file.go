package persist

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/session"
)

// binaryPath is the CBOR snapshot written next to the JSON document.
func binaryPath(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx > 0 {
		return path[:idx] + ".cbor"
	}
	return path + ".cbor"
}

// SaveFile writes doc to path as the JSON interchange document plus the
// CBOR sibling snapshot, each via write-temp-then-rename so a crash
// mid-flush never leaves a torn file.
func SaveFile(path string, doc Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(path, raw); err != nil {
		return err
	}

	bin, err := EncodeBinary(doc)
	if err != nil {
		return err
	}
	return writeAtomic(binaryPath(path), bin)
}

// LoadFile restores the persisted document, preferring the JSON form
// and falling back to the CBOR snapshot when the JSON is missing or
// unreadable.
func LoadFile(path string, log logger.FuncLog) (Document, []*session.UserSession, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		doc, sessions, jerr := Restore(raw, log)
		if jerr == nil {
			return doc, sessions, nil
		}
		err = jerr
	}

	bin, berr := os.ReadFile(binaryPath(path))
	if berr != nil {
		return Document{}, nil, err
	}
	doc, derr := DecodeBinary(bin)
	if derr != nil {
		return Document{}, nil, derr
	}
	return doc, RestoreSessions(doc, log), nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
