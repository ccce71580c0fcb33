package api

import (
	"net/http"
	"runtime"

	"github.com/shaharia-lab/ntfy-go/internal/build"
)

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    build.Version,
		"commit":     build.CommitSHA,
		"build_date": build.BuildDate,
		"go":         runtime.Version(),
	})
}
