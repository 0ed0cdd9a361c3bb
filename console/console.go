// Package console is scout's JSON REST surface: job dispatch for workers,
// page ingestion, domain listing and the worker lifecycle reports that
// feed the limiter.
package console

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/scrutinize/scout"
)

// Run serves the handler's routes on the configured console port. It
// blocks until the server dies.
func Run(h *Handler) error {
	addr := fmt.Sprintf(":%d", scout.Config.Console.Port)
	logrus.Infof("Starting scout console on %v", addr)
	return http.ListenAndServe(addr, h.Router())
}
