package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesMappedJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", &buf)
	log.WithField("campaign_id", 7).Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	for _, key := range []string{"timestamp", "severity", "message", "campaign_id"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("missing key %q in %v", key, entry)
		}
	}
	if entry["severity"] != "debug" {
		t.Errorf("severity = %v", entry["severity"])
	}
}

func TestNewUnknownLevel(t *testing.T) {
	log := New("loud", nil)
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s", log.GetLevel())
	}
}
