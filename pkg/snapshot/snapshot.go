// Package snapshot compares values against JSON golden files in testdata
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fhepoker-client/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// UpdateEnv rewrites every golden file when set to "1"
const UpdateEnv = "FHEPOKER_UPDATE_SNAPSHOTS"

var (
	calls   = make(map[string]int)
	callsMu sync.Mutex
)

// Match asserts obj encodes to the JSON stored for the current test
// A missing file is written and the assertion passes
func Match(t *testing.T, obj interface{}, msgAndArgs ...interface{}) {
	t.Helper()

	actual, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		t.Fatalf("could not encode snapshot: %s", err)
	}

	filename := path(t.Name())
	expects, err := os.ReadFile(filename)
	if os.IsNotExist(err) || util.Getenv(UpdateEnv, "") == "1" {
		write(t, filename, actual)
		return
	} else if err != nil {
		t.Fatalf("could not read snapshot: %s", err)
	}

	if !assert.Equal(t, strings.TrimSpace(string(expects)), strings.TrimSpace(string(actual)), msgAndArgs...) {
		t.Logf("snapshot %s, set %s=1 to rewrite", filename, UpdateEnv)
	}
}

// path numbers the files when a test matches more than once
func path(testName string) string {
	name := strings.ReplaceAll(testName, "/", "_")

	callsMu.Lock()
	call := calls[name]
	calls[name] = call + 1
	callsMu.Unlock()

	if call > 0 {
		name = fmt.Sprintf("%s-%d", name, call)
	}

	return filepath.Join("testdata", name+".json")
}

func write(t *testing.T, filename string, data []byte) {
	t.Helper()
	logrus.WithField("filename", filename).Info("writing snapshot file")

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		t.Fatalf("could not create testdata: %s", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("could not write snapshot: %s", err)
	}
}
