package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/briannabrownOE/amaxa/internal/config"
	"github.com/briannabrownOE/amaxa/pkg/transport"
)

// newTransportClient resolves a connection descriptor into a live
// transport.Client. Authentication and the CRM's wire protocol are out
// of scope for this module (spec §1) — amaxa is built and tested
// entirely against the transport.Client interface — so the minimal
// runnable CLI reports that no client is wired rather than fabricating
// one. A real deployment replaces this with a constructor for its CRM
// and typically wraps the result in transport.NewRetryingClient.
var newTransportClient = func(conn config.ConnectionConfig, logger zerolog.Logger) (transport.Client, error) {
	return nil, fmt.Errorf("amaxa: no transport client is wired for %s; construct one (OAuth/JWT login, REST/SOAP/Bulk wire format) and wire it in before running this command", conn.LoginURL)
}
