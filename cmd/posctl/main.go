// posctl is the operations CLI for the POS backend: schema migration, demo data,
// outbox dispatch and administrative account/tenant switches.
//
// Usage:
//
//	DB_DRIVER=mysql DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/posctl migrate
package main

import "github.com/grocerypos/pos_backend/cmd/posctl/commands"

func main() {
	commands.Execute()
}
