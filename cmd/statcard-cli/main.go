package main

import (
	"context"
	"statcard-backend/cmd/statcard-cli/commands"
	"statcard-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "statcard-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
