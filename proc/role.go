package proc

import (
	"context"
	"os"

	"github.com/turtlegfx/canvas/ipc"
	"github.com/turtlegfx/canvas/render"
)

// RoleEnvVar is the environment variable marking a process instance as the server.
// It is set only when spawning the companion process, never by end users.
const RoleEnvVar = "RUN_TURTLE_CANVAS"

const roleServerValue = "true"

// Role is the part a process instance plays, decided once per process.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// RoleFromEnv derives the role of the current process from the role marker.
func RoleFromEnv() Role {
	if os.Getenv(RoleEnvVar) == roleServerValue {
		return RoleServer
	}
	return RoleClient
}

// Start must be the very first call in main. If the current process carries the role
// marker it becomes the server and never returns; otherwise Start returns immediately
// and the process proceeds as the client.
//
// The spawned server instance receives no arguments, no environment, and no input
// beyond the handshake name, so a program that does not call Start first cannot work
// in the server role. Calling Start again on the client path is harmless.
func Start() {
	StartWithRole(RoleFromEnv())
}

// StartWithRole is Start with the role decided by the caller instead of read from the
// environment. On RoleServer it hands the process over to the render loop and exits
// when the loop stops; it never returns.
func StartWithRole(role Role, opts ...Option) {
	if role != RoleServer {
		return
	}

	o := buildOptions(opts)
	log := o.logger.Sugar().Named("server_role")

	ctx := context.Background()
	conn, err := ipc.ConnectStdin(ctx, ipc.WithLogger(o.logger))
	if err != nil {
		log.Fatalf("connecting back to client: %s", err)
	}

	// The render loop decides when to stop; quit detection on the client side happens
	// by observing this process's exit, so the done signal never fires.
	done := make(chan struct{})
	if err := render.Run(ctx, conn, done, render.WithLogger(o.logger)); err != nil {
		log.Errorf("render loop failed: %s", err)
		os.Exit(1)
	}
	os.Exit(0)
}
