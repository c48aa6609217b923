package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// resetSession clears the global session ID so each test gets its own run
func resetSession(t *testing.T) {
	t.Helper()

	origSessionID := sessionID
	origSessionIDOnce := sessionIDOnce

	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		sessionID = origSessionID
		sessionIDOnce = origSessionIDOnce
	})
}

func TestNewLogger(t *testing.T) {
	resetSession(t)

	logger := NewLogger("test-component")
	defer logger.Close()

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}

	if logger.sessionID == "" {
		t.Error("Expected non-empty session ID")
	}

	if logger.LogPath() != "" {
		t.Errorf("Expected empty log path for stderr-only logger, got %q", logger.LogPath())
	}
}

func TestFileLoggerFormatting(t *testing.T) {
	resetSession(t)

	logger, err := NewFileLogger("test", t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Printf("Test message %d", 123)
	logger.Debugf("Debug message")
	logger.Infof("Info message")
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	// Give file system time to flush
	time.Sleep(50 * time.Millisecond)

	content, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	logContent := string(content)

	expectedPatterns := []string{
		"[test] [INFO] Test message 123",
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	}

	for _, pattern := range expectedPatterns {
		if !strings.Contains(logContent, pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, logContent)
		}
	}
}

func TestWithComponentSharesOutputs(t *testing.T) {
	resetSession(t)

	parent, err := NewFileLogger("runner", t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer parent.Close()

	child := parent.WithComponent("browser")

	if parent.sessionID != child.sessionID {
		t.Errorf("Expected same session ID, got %q and %q", parent.sessionID, child.sessionID)
	}

	if parent.LogPath() != child.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", parent.LogPath(), child.LogPath())
	}

	parent.Printf("Message from runner")
	child.Printf("Message from browser")

	time.Sleep(50 * time.Millisecond)

	content, err := os.ReadFile(parent.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	logContent := string(content)

	if !strings.Contains(logContent, "[runner]") {
		t.Error("Log missing runner entries")
	}
	if !strings.Contains(logContent, "[browser]") {
		t.Error("Log missing browser entries")
	}
}

func TestGetSessionID(t *testing.T) {
	resetSession(t)

	id1 := GetSessionID()
	id2 := GetSessionID()

	if id1 != id2 {
		t.Errorf("Expected consistent session ID, got %q and %q", id1, id2)
	}

	if id1 == "" {
		t.Error("Expected non-empty session ID")
	}
}

func TestLoggerClose(t *testing.T) {
	resetSession(t)

	logger, err := NewFileLogger("test", t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// Close once
	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}

	// Close again should be safe
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	resetSession(t)

	logger, err := NewFileLogger("test", t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	// Verify log file name format: <session-id>-vigil.log
	fileName := filepath.Base(logger.LogPath())
	if !strings.HasSuffix(fileName, "-vigil.log") {
		t.Errorf("Expected log file to end with '-vigil.log', got %q", fileName)
	}

	// Verify it starts with a UUID-like session ID (has dashes)
	sessionPart := strings.TrimSuffix(fileName, "-vigil.log")
	if !strings.Contains(sessionPart, "-") {
		t.Errorf("Expected session ID part to contain dashes (UUID format), got %q", sessionPart)
	}
}

func TestFileLoggerBadDirectoryFallsBack(t *testing.T) {
	resetSession(t)

	// A file where the directory should be makes MkdirAll fail
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}

	logger, err := NewFileLogger("test", filepath.Join(blocker, "logs"))
	if err == nil {
		t.Error("Expected an error for an uncreatable log directory")
	}
	if logger == nil {
		t.Fatal("Expected a fallback stderr logger")
	}
	if logger.LogPath() != "" {
		t.Errorf("Expected fallback logger without a file, got path %q", logger.LogPath())
	}

	// The fallback logger must still work
	logger.Infof("still logging")
}
