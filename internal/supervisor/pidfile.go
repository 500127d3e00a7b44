package supervisor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/soliveri/stagehand/internal/detector"
)

type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

// writePIDFile records the backend PID plus its start time so a later
// launcher invocation can tell a live backend from a recycled PID.
func (s *Supervisor) writePIDFile() {
	s.mu.Lock()
	pidFile := s.spec.PIDFile
	pid := s.pid
	s.mu.Unlock()

	if pidFile == "" || pid == 0 {
		return
	}
	_ = os.MkdirAll(filepath.Dir(pidFile), 0o750)
	meta, _ := json.Marshal(pidMeta{StartUnix: detector.ProcStartUnix(pid)})
	_ = os.WriteFile(pidFile, []byte(strconv.Itoa(pid)+"\n"+string(meta)+"\n"), 0o600)
}

// removePIDFile is best-effort.
func (s *Supervisor) removePIDFile() {
	s.mu.Lock()
	pidFile := s.spec.PIDFile
	s.mu.Unlock()

	if pidFile == "" {
		return
	}
	_ = os.Remove(pidFile)
}
